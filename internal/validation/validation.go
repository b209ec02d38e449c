package validation

import (
	"bufio"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Limits on user-supplied keyword data.
const (
	MaxKeywordLength     = 200
	MaxDescriptionLength = 1000
)

// NormalizeKeyword trims surrounding whitespace. Case is preserved; matching
// is case-insensitive at scan time.
func NormalizeKeyword(keyword string) string {
	return strings.TrimSpace(keyword)
}

// ValidateKeyword checks a normalized keyword: non-empty, bounded length and
// free of control characters such as line breaks.
func ValidateKeyword(keyword string) (bool, string) {
	if keyword == "" {
		return false, "Keyword is required"
	}
	if !utf8.ValidString(keyword) {
		return false, "Keyword must be valid UTF-8"
	}
	if utf8.RuneCountInString(keyword) > MaxKeywordLength {
		return false, "Keyword is too long"
	}
	for _, r := range keyword {
		if unicode.IsControl(r) {
			return false, "Keyword must be a single line of text"
		}
	}
	return true, ""
}

// ValidateDescription checks an optional keyword description.
func ValidateDescription(description string) (bool, string) {
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return false, "Description is too long"
	}
	return true, ""
}

// ParseKeywordLines reads one keyword per line. Lines are trimmed, blank lines
// are skipped and repeated keywords are kept once, in first-seen order.
func ParseKeywordLines(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var keywords []string
	seen := make(map[string]struct{})
	first := true
	for sc.Scan() {
		line := sc.Text()
		if first {
			line = strings.TrimPrefix(line, "\ufeff")
			first = false
		}
		kw := NormalizeKeyword(line)
		if kw == "" {
			continue
		}
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		keywords = append(keywords, kw)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return keywords, nil
}
