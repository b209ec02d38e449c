package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfscan/internal/models"
	"pdfscan/internal/pipeline"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestFileFinished_Processed(t *testing.T) {
	w := &fakeWriter{}
	p := newPublisher(w, "pdfscan.events")

	p.FileFinished(context.Background(), &pipeline.FileReport{
		File:     "a.pdf",
		Status:   models.StatusProcessed,
		Engine:   "layout",
		Matches:  2,
		Inserted: 2,
		DestPath: "/done/a.pdf",
	})

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "a.pdf", string(w.msgs[0].Key))

	var e FileEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &e))
	assert.Equal(t, TypeFileProcessed, e.Type)
	assert.Equal(t, 2, e.Matches)
	assert.Empty(t, e.Error)
}

func TestFileFinished_Failed(t *testing.T) {
	w := &fakeWriter{}
	p := newPublisher(w, "pdfscan.events")

	p.FileFinished(context.Background(), &pipeline.FileReport{
		File:    "bad.pdf",
		Status:  models.StatusFailed,
		Failure: &pipeline.Failure{Kind: pipeline.ErrExtraction, File: "bad.pdf", Err: errors.New("corrupt")},
	})

	require.Len(t, w.msgs, 1)
	var e FileEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &e))
	assert.Equal(t, TypeFileFailed, e.Type)
	assert.Equal(t, "extraction", e.Stage)
	assert.Equal(t, "corrupt", e.Error)
}

func TestRunFinished(t *testing.T) {
	w := &fakeWriter{}
	p := newPublisher(w, "pdfscan.events")
	id := uuid.New()

	p.RunFinished(context.Background(), &pipeline.Stats{
		RunID:      id,
		Files:      3,
		Processed:  2,
		Failed:     1,
		StartedAt:  time.Now().Add(-time.Minute),
		FinishedAt: time.Now(),
	})

	require.Len(t, w.msgs, 1)
	assert.Equal(t, id.String(), string(w.msgs[0].Key))
	var e RunEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &e))
	assert.Equal(t, TypeRunFinished, e.Type)
	assert.Equal(t, 3, e.Files)
}

func TestPublishErrorIsSwallowed(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker unavailable")}
	p := newPublisher(w, "pdfscan.events")

	assert.NotPanics(t, func() {
		p.FileFinished(context.Background(), &pipeline.FileReport{File: "a.pdf"})
	})
	assert.Empty(t, w.msgs)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}
