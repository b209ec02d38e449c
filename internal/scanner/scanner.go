// Package scanner finds literal, case-insensitive keyword occurrences in text
// and captures a bounded window of context around each one.
package scanner

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultWindow is the number of characters captured on each side of a match.
const DefaultWindow = 500

// Occurrence is one keyword hit: its context and the rune offset of the match start.
type Occurrence struct {
	Context string
	Offset  int
}

// Scanner holds the configured keyword set. It is not safe to call SetKeywords
// concurrently with Scan or Locate.
type Scanner struct {
	keywords []string
}

// New creates a scanner for the given keywords.
func New(keywords []string) *Scanner {
	s := &Scanner{}
	s.SetKeywords(keywords)
	return s
}

// SetKeywords replaces the keyword set. Empty and repeated keywords are dropped.
func (s *Scanner) SetKeywords(keywords []string) {
	seen := make(map[string]struct{}, len(keywords))
	s.keywords = make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		s.keywords = append(s.keywords, k)
	}
}

// Keywords returns a copy of the configured keyword set.
func (s *Scanner) Keywords() []string {
	return append([]string(nil), s.keywords...)
}

// Scan returns, for every configured keyword, the contexts of its occurrences
// in document order. Keywords with no occurrence map to an empty slice.
func (s *Scanner) Scan(text string, window int) map[string][]string {
	located := s.Locate(text, window)
	results := make(map[string][]string, len(located))
	for k, occs := range located {
		contexts := make([]string, len(occs))
		for i, o := range occs {
			contexts[i] = o.Context
		}
		results[k] = contexts
	}
	return results
}

// Locate is Scan with the rune offset of each occurrence attached.
func (s *Scanner) Locate(text string, window int) map[string][]Occurrence {
	if window < 0 {
		window = 0
	}
	results := make(map[string][]Occurrence, len(s.keywords))
	if len(s.keywords) == 0 {
		return results
	}

	runes := []rune(text)
	folded, runeAt := fold(runes)

	for _, keyword := range s.keywords {
		needle := foldString(keyword)
		needleLen := utf8.RuneCountInString(needle)
		occs := []Occurrence{}

		for pos := 0; pos <= len(folded); {
			i := strings.Index(folded[pos:], needle)
			if i < 0 {
				break
			}
			startByte := pos + i
			start := runeAt[startByte]
			end := start + needleLen

			from := max(0, start-window)
			to := min(len(runes), end+window)
			occs = append(occs, Occurrence{
				Context: string(runes[from:to]),
				Offset:  start,
			})

			pos = startByte + len(needle)
		}
		results[keyword] = occs
	}
	return results
}

// fold case-folds text rune by rune, so the result has exactly as many runes
// as the input. runeAt maps each rune-start byte offset of the folded string
// (and its length) to a rune index.
func fold(runes []rune) (string, []int) {
	var b strings.Builder
	b.Grow(len(runes))
	starts := make([]int, 0, len(runes)+1)
	for _, r := range runes {
		starts = append(starts, b.Len())
		b.WriteRune(foldRune(r))
	}
	folded := b.String()

	runeAt := make([]int, len(folded)+1)
	for i, off := range starts {
		runeAt[off] = i
	}
	runeAt[len(folded)] = len(runes)
	return folded, runeAt
}

func foldString(s string) string {
	return strings.Map(foldRune, s)
}

// foldRune maps r to the smallest rune of its simple case-folding orbit, so
// every case variant of a letter folds to the same rune.
func foldRune(r rune) rune {
	lowest := r
	for f := unicode.SimpleFold(r); f != r; f = unicode.SimpleFold(f) {
		if f < lowest {
			lowest = f
		}
	}
	return lowest
}
