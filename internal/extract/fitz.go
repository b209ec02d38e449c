//go:build fitz

package extract

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gen2brain/go-fitz"
)

func init() {
	registry["fitz"] = func() Engine { return NewFitzEngine() }
}

// FitzEngine extracts text per page through MuPDF. Requires cgo.
type FitzEngine struct{}

// NewFitzEngine creates the MuPDF-backed engine.
func NewFitzEngine() *FitzEngine {
	return &FitzEngine{}
}

func (e *FitzEngine) Name() string { return "fitz" }

func (e *FitzEngine) Extract(ctx context.Context, path string) (res *Result, err error) {
	defer recoverPanic(&err)

	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	var b strings.Builder
	res = &Result{}
	offset := 0

	for n := 0; n < doc.NumPage(); n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if n > 0 {
			b.WriteString(pageSeparator)
			offset += utf8.RuneCountInString(pageSeparator)
		}

		text, err := doc.Text(n)
		if err != nil {
			text = ""
		}
		b.WriteString(text)
		size := utf8.RuneCountInString(text)
		res.Pages = append(res.Pages, Page{Number: n + 1, Start: offset, End: offset + size})
		offset += size
	}

	res.Text = b.String()
	return res, nil
}
