// Package events publishes pipeline results to Kafka as JSON messages.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"pdfscan/internal/pipeline"
)

// Event types.
const (
	TypeFileProcessed = "file.processed"
	TypeFileFailed    = "file.failed"
	TypeRunFinished   = "run.finished"
)

// FileEvent is published once per file handled by a run.
type FileEvent struct {
	Type       string    `json:"type"`
	File       string    `json:"file"`
	Status     string    `json:"status,omitempty"`
	Engine     string    `json:"engine,omitempty"`
	TextPath   string    `json:"text_path,omitempty"`
	DestPath   string    `json:"dest_path,omitempty"`
	Matches    int       `json:"matches"`
	Inserted   int       `json:"inserted"`
	Stage      string    `json:"stage,omitempty"`
	Error      string    `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// RunEvent is published when a run finishes.
type RunEvent struct {
	Type       string    `json:"type"`
	RunID      uuid.UUID `json:"run_id"`
	Files      int       `json:"files"`
	Processed  int       `json:"processed"`
	Failed     int       `json:"failed"`
	Moved      int       `json:"moved"`
	Matches    int       `json:"matches"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// NewFileEvent builds the event for a file report.
func NewFileEvent(r *pipeline.FileReport) FileEvent {
	e := FileEvent{
		Type:       TypeFileProcessed,
		File:       r.File,
		Status:     r.Status,
		Engine:     r.Engine,
		TextPath:   r.TextPath,
		DestPath:   r.DestPath,
		Matches:    r.Matches,
		Inserted:   r.Inserted,
		OccurredAt: time.Now().UTC(),
	}
	if r.Failure != nil {
		e.Type = TypeFileFailed
		e.Stage = r.Failure.Stage()
		e.Error = r.Failure.Err.Error()
	}
	return e
}

// NewRunEvent builds the event for finished run stats.
func NewRunEvent(s *pipeline.Stats) RunEvent {
	return RunEvent{
		Type:       TypeRunFinished,
		RunID:      s.RunID,
		Files:      s.Files,
		Processed:  s.Processed,
		Failed:     s.Failed,
		Moved:      s.Moved,
		Matches:    s.Matches,
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
	}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher sends pipeline events to a Kafka topic. It implements
// pipeline.Notifier; publish errors are logged and otherwise ignored.
type Publisher struct {
	writer  messageWriter
	timeout time.Duration
	logger  *slog.Logger
}

var _ pipeline.Notifier = (*Publisher)(nil)

// NewPublisher creates a publisher for topic on the given brokers.
func NewPublisher(brokers []string, topic string) *Publisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireAll,
	}
	return newPublisher(w, topic)
}

func newPublisher(w messageWriter, topic string) *Publisher {
	return &Publisher{
		writer:  w,
		timeout: 10 * time.Second,
		logger:  slog.Default().With("component", "kafka-publisher", "topic", topic),
	}
}

// FileFinished publishes a file.processed or file.failed event.
func (p *Publisher) FileFinished(ctx context.Context, r *pipeline.FileReport) {
	e := NewFileEvent(r)
	if err := p.publish(ctx, r.File, e); err != nil {
		p.logger.Error("failed to publish file event", "file", r.File, "type", e.Type, "error", err)
	}
}

// RunFinished publishes a run.finished event.
func (p *Publisher) RunFinished(ctx context.Context, s *pipeline.Stats) {
	if err := p.publish(ctx, s.RunID.String(), NewRunEvent(s)); err != nil {
		p.logger.Error("failed to publish run event", "run_id", s.RunID, "error", err)
	}
}

func (p *Publisher) publish(ctx context.Context, key string, value any) error {
	body, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: body}); err != nil {
		return fmt.Errorf("publishing to kafka: %w", err)
	}
	p.logger.Debug("event published", "key", key, "value_size", len(body))
	return nil
}

// Close flushes pending writes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
