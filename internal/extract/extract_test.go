package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	name  string
	text  string
	err   error
	calls int
}

func (f *fakeEngine) Name() string { return f.name }

func (f *fakeEngine) Extract(ctx context.Context, path string) (*Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &Result{Text: f.text}, nil
}

func TestExtractor_PrimaryWins(t *testing.T) {
	primary := &fakeEngine{name: "primary", text: "page one"}
	fallback := &fakeEngine{name: "fallback", text: "other"}

	res, err := New(primary, fallback).Extract(context.Background(), "doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, "page one", res.Text)
	assert.Equal(t, "primary", res.Engine)
	assert.Equal(t, 0, fallback.calls)
}

func TestExtractor_FallsBackOnWhitespace(t *testing.T) {
	primary := &fakeEngine{name: "primary", text: " \n\n \t"}
	fallback := &fakeEngine{name: "fallback", text: "fallback text"}

	res, err := New(primary, fallback).Extract(context.Background(), "doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, "fallback text", res.Text)
	assert.Equal(t, "fallback", res.Engine)
	assert.Equal(t, 1, primary.calls)
}

func TestExtractor_FallsBackOnError(t *testing.T) {
	primary := &fakeEngine{name: "primary", err: errors.New("boom")}
	fallback := &fakeEngine{name: "fallback", text: "ok"}

	res, err := New(primary, fallback).Extract(context.Background(), "doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, "fallback", res.Engine)
}

func TestExtractor_AllEnginesEmpty(t *testing.T) {
	openErr := errors.New("encrypted")
	primary := &fakeEngine{name: "primary", err: openErr}
	fallback := &fakeEngine{name: "fallback", text: "   "}

	_, err := New(primary, fallback).Extract(context.Background(), "doc.pdf")
	require.Error(t, err)

	var failure *Failure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, "doc.pdf", failure.Path)
	require.Len(t, failure.Errors, 2)
	assert.Equal(t, "primary", failure.Errors[0].Engine)
	assert.True(t, errors.Is(err, openErr))
	assert.True(t, errors.Is(err, ErrNoText))
}

func TestExtractor_NoEngines(t *testing.T) {
	_, err := New().Extract(context.Background(), "doc.pdf")
	var failure *Failure
	assert.True(t, errors.As(err, &failure))
}

func TestExtractor_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	primary := &fakeEngine{name: "primary", text: "text"}
	_, err := New(primary).Extract(ctx, "doc.pdf")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, primary.calls)
}

func TestExtractor_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("this is not a pdf"), 0o644))

	x, err := NewFromNames(nil)
	require.NoError(t, err)

	_, err = x.Extract(context.Background(), path)
	var failure *Failure
	require.True(t, errors.As(err, &failure))
	assert.Len(t, failure.Errors, 2)
}

func TestExtractor_MissingFile(t *testing.T) {
	x := New(NewLayoutEngine(), NewPlainEngine())
	_, err := x.Extract(context.Background(), filepath.Join(t.TempDir(), "nope.pdf"))
	assert.Error(t, err)
}

func TestNewFromNames(t *testing.T) {
	x, err := NewFromNames([]string{"Layout", " plain "})
	require.NoError(t, err)
	assert.Equal(t, []string{"layout", "plain"}, x.Engines())

	_, err = NewFromNames([]string{"ocr"})
	assert.Error(t, err)
}

func TestResult_PageAt(t *testing.T) {
	res := &Result{Pages: []Page{
		{Number: 1, Start: 0, End: 10},
		{Number: 2, Start: 12, End: 12},
		{Number: 3, Start: 14, End: 20},
	}}

	tests := []struct {
		offset int
		page   int
		ok     bool
	}{
		{0, 1, true},
		{9, 1, true},
		{10, 0, false},
		{15, 3, true},
		{25, 0, false},
	}
	for _, tt := range tests {
		page, ok := res.PageAt(tt.offset)
		assert.Equal(t, tt.ok, ok, "offset %d", tt.offset)
		assert.Equal(t, tt.page, page, "offset %d", tt.offset)
	}

	_, ok := (&Result{}).PageAt(0)
	assert.False(t, ok)
}

func TestAssembleRows(t *testing.T) {
	glyphs := []pdf.Text{
		{S: "world", X: 40, Y: 700, W: 25, FontSize: 10},
		{S: "Hello", X: 10, Y: 700, W: 25, FontSize: 10},
		{S: "Second", X: 10, Y: 680.2, W: 30, FontSize: 10},
		{S: "line", X: 45, Y: 680, W: 20, FontSize: 10},
		{S: "Tight", X: 10, Y: 660, W: 25, FontSize: 10},
		{S: "ly", X: 35, Y: 660, W: 10, FontSize: 10},
	}

	got := assembleRows(glyphs)
	assert.Equal(t, "Hello world\nSecond line\nTightly", got)
}

func TestAssembleRows_Empty(t *testing.T) {
	assert.Equal(t, "", assembleRows(nil))
}

func TestExtractor_InvalidUTF8Replaced(t *testing.T) {
	primary := &fakeEngine{name: "primary", text: "caf\xe9 au lait"}

	res, err := New(primary).Extract(context.Background(), "doc.pdf")
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(res.Text))
	assert.Equal(t, "caf\uFFFD au lait", res.Text)
}

func TestResult_EnsureUTF8(t *testing.T) {
	valid := &Result{Text: "ok", Pages: []Page{{Number: 1, Start: 0, End: 2}}}
	valid.EnsureUTF8()
	assert.Len(t, valid.Pages, 1)

	broken := &Result{Text: "a\xff\xfeb", Pages: []Page{{Number: 1, Start: 0, End: 4}}}
	broken.EnsureUTF8()
	assert.Equal(t, "a\uFFFDb", broken.Text)
	assert.Nil(t, broken.Pages)
}

func TestLayoutEngine_Pages(t *testing.T) {
	res, err := NewLayoutEngine().Extract(context.Background(), filepath.Join("testdata", "three_pages.pdf"))
	require.NoError(t, err)

	assert.Equal(t, "Hello keyword1 world\nSecond line here\n\n\n\nThird page KEYWORD1 end", res.Text)
	assert.Equal(t, []Page{
		{Number: 1, Start: 0, End: 37},
		{Number: 2, Start: 39, End: 39},
		{Number: 3, Start: 41, End: 64},
	}, res.Pages)

	page, ok := res.PageAt(strings.Index(res.Text, "KEYWORD1"))
	require.True(t, ok)
	assert.Equal(t, 3, page)
}

func TestPlainEngine_ReadsText(t *testing.T) {
	res, err := NewPlainEngine().Extract(context.Background(), filepath.Join("testdata", "three_pages.pdf"))
	require.NoError(t, err)
	assert.Contains(t, res.Text, "KEYWORD1")
	assert.Empty(t, res.Pages)
}

func TestExtractor_DefaultChainOnPDF(t *testing.T) {
	x, err := NewFromNames(nil)
	require.NoError(t, err)

	res, err := x.Extract(context.Background(), filepath.Join("testdata", "three_pages.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "layout", res.Engine)
	assert.Len(t, res.Pages, 3)
}

func TestExtractor_BlankPDFFailsEveryEngine(t *testing.T) {
	x, err := NewFromNames(nil)
	require.NoError(t, err)

	_, err = x.Extract(context.Background(), filepath.Join("testdata", "blank.pdf"))
	var failure *Failure
	require.True(t, errors.As(err, &failure))
	require.Len(t, failure.Errors, 2)
	assert.Equal(t, "layout", failure.Errors[0].Engine)
	assert.Equal(t, "plain", failure.Errors[1].Engine)
	assert.ErrorIs(t, failure.Errors[0], ErrNoText)
	assert.ErrorIs(t, failure.Errors[1], ErrNoText)
}
