// Package extract turns PDF documents into UTF-8 text using an ordered chain
// of extraction engines.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"
)

// ErrNoText is returned by an engine that opened the document but found no text.
var ErrNoText = errors.New("no extractable text")

// Page is the rune offset range [Start, End) of one page inside Result.Text.
type Page struct {
	Number int
	Start  int
	End    int
}

// Result is the text produced by the first engine that yielded any.
type Result struct {
	Text   string
	Engine string
	Pages  []Page
}

// PageAt returns the page number containing the rune offset, if the engine
// reported page boundaries.
func (r *Result) PageAt(offset int) (int, bool) {
	i := sort.Search(len(r.Pages), func(i int) bool { return r.Pages[i].End > offset })
	if i < len(r.Pages) && r.Pages[i].Start <= offset {
		return r.Pages[i].Number, true
	}
	return 0, false
}

// EnsureUTF8 replaces invalid byte sequences in Text with U+FFFD. Page ranges
// no longer line up after a replacement and are dropped.
func (r *Result) EnsureUTF8() {
	if utf8.ValidString(r.Text) {
		return
	}
	r.Text = strings.ToValidUTF8(r.Text, "\uFFFD")
	r.Pages = nil
}

// Engine produces text from a document.
type Engine interface {
	Name() string
	Extract(ctx context.Context, path string) (*Result, error)
}

// EngineError records why one engine in the chain produced nothing.
type EngineError struct {
	Engine string
	Err    error
}

func (e *EngineError) Error() string {
	return e.Engine + ": " + e.Err.Error()
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// Failure is returned when no engine yielded text for a document.
type Failure struct {
	Path   string
	Errors []*EngineError
}

func (f *Failure) Error() string {
	msgs := make([]string, len(f.Errors))
	for i, e := range f.Errors {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("extract %s: %s", f.Path, strings.Join(msgs, "; "))
}

func (f *Failure) Unwrap() []error {
	errs := make([]error, len(f.Errors))
	for i, e := range f.Errors {
		errs[i] = e
	}
	return errs
}

// Extractor runs its engines in order and returns the first non-blank result.
type Extractor struct {
	engines []Engine
	logger  *slog.Logger
}

// New creates an extractor over the given engines, tried in order.
func New(engines ...Engine) *Extractor {
	return &Extractor{
		engines: engines,
		logger:  slog.Default().With("component", "extractor"),
	}
}

// Engines returns the engine names in the order they are tried.
func (x *Extractor) Engines() []string {
	names := make([]string, len(x.engines))
	for i, e := range x.engines {
		names[i] = e.Name()
	}
	return names
}

// Extract returns the text of the document at path. The error, if any, is a *Failure.
func (x *Extractor) Extract(ctx context.Context, path string) (*Result, error) {
	failure := &Failure{Path: path}

	for i, engine := range x.engines {
		if err := ctx.Err(); err != nil {
			failure.Errors = append(failure.Errors, &EngineError{Engine: engine.Name(), Err: err})
			return nil, failure
		}

		res, err := engine.Extract(ctx, path)
		if err == nil && (res == nil || strings.TrimSpace(res.Text) == "") {
			err = ErrNoText
		}
		if err != nil {
			failure.Errors = append(failure.Errors, &EngineError{Engine: engine.Name(), Err: err})
			if i < len(x.engines)-1 {
				x.logger.Info("engine produced no text, falling back",
					"file", path,
					"engine", engine.Name(),
					"next", x.engines[i+1].Name(),
					"error", err,
				)
			}
			continue
		}

		res.Engine = engine.Name()
		res.EnsureUTF8()
		return res, nil
	}

	if len(failure.Errors) == 0 {
		failure.Errors = append(failure.Errors, &EngineError{Engine: "none", Err: errors.New("no engines configured")})
	}
	return nil, failure
}

// recoverPanic converts a panic inside a PDF library into an engine error.
func recoverPanic(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("pdf library panic: %v", r)
	}
}
