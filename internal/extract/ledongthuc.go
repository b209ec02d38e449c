package extract

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// pageSeparator is written between consecutive pages.
const pageSeparator = "\n\n"

// spaceGapRatio is the horizontal gap, as a fraction of the font size, above
// which two glyph runs on one row are separated by a space.
const spaceGapRatio = 0.2

// LayoutEngine extracts text page by page, rebuilding rows from glyph
// positions. Pages that fail to decode contribute no text.
type LayoutEngine struct{}

// NewLayoutEngine creates the layout-aware engine.
func NewLayoutEngine() *LayoutEngine {
	return &LayoutEngine{}
}

func (e *LayoutEngine) Name() string { return "layout" }

func (e *LayoutEngine) Extract(ctx context.Context, path string) (res *Result, err error) {
	defer recoverPanic(&err)

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	res = &Result{}
	offset := 0

	numPages := r.NumPage()
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if i > 1 {
			b.WriteString(pageSeparator)
			offset += utf8.RuneCountInString(pageSeparator)
		}

		text := strings.ToValidUTF8(pageText(r.Page(i)), "\uFFFD")
		b.WriteString(text)
		n := utf8.RuneCountInString(text)
		res.Pages = append(res.Pages, Page{Number: i, Start: offset, End: offset + n})
		offset += n
	}

	res.Text = b.String()
	return res, nil
}

// pageText returns the rebuilt text of one page, or "" if the page is empty or unreadable.
func pageText(p pdf.Page) (text string) {
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()
	if p.V.IsNull() {
		return ""
	}
	return assembleRows(p.Content().Text)
}

// assembleRows orders glyph runs top to bottom, then left to right, and joins
// them into lines.
func assembleRows(glyphs []pdf.Text) string {
	if len(glyphs) == 0 {
		return ""
	}

	rows := make(map[int64][]pdf.Text)
	for _, g := range glyphs {
		y := int64(math.Round(g.Y))
		rows[y] = append(rows[y], g)
	}

	ys := make([]int64, 0, len(rows))
	for y := range rows {
		ys = append(ys, y)
	}
	// PDF user space grows upwards.
	sort.Slice(ys, func(i, j int) bool { return ys[i] > ys[j] })

	lines := make([]string, 0, len(ys))
	for _, y := range ys {
		row := rows[y]
		sort.SliceStable(row, func(i, j int) bool { return row[i].X < row[j].X })

		var line strings.Builder
		for i, g := range row {
			if i > 0 && needsSpace(row[i-1], g, line.String()) {
				line.WriteByte(' ')
			}
			line.WriteString(g.S)
		}
		lines = append(lines, strings.TrimRight(line.String(), " \t"))
	}
	return strings.Join(lines, "\n")
}

func needsSpace(prev, next pdf.Text, written string) bool {
	if strings.HasSuffix(written, " ") || strings.HasPrefix(next.S, " ") {
		return false
	}
	size := prev.FontSize
	if size <= 0 {
		size = 1
	}
	gap := next.X - (prev.X + prev.W)
	return gap > size*spaceGapRatio
}

// PlainEngine dumps the document's text content in stream order. It keeps
// less of the layout than LayoutEngine and reports no page boundaries.
type PlainEngine struct{}

// NewPlainEngine creates the whole-document fallback engine.
func NewPlainEngine() *PlainEngine {
	return &PlainEngine{}
}

func (e *PlainEngine) Name() string { return "plain" }

func (e *PlainEngine) Extract(ctx context.Context, path string) (res *Result, err error) {
	defer recoverPanic(&err)

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("failed to extract plain text: %w", err)
	}

	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read plain text: %w", err)
	}

	return &Result{Text: strings.ToValidUTF8(string(content), "\uFFFD")}, nil
}
