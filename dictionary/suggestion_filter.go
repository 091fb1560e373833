package dictionary

import (
	"bufio"
	"io"
	"strings"
)

// SuggestionFilter is a set of values that must never be suggested.
type SuggestionFilter struct {
	bad map[string]struct{}
}

func NewSuggestionFilter(values ...string) *SuggestionFilter {
	f := &SuggestionFilter{bad: make(map[string]struct{}, len(values))}
	for _, v := range values {
		f.bad[v] = struct{}{}
	}
	return f
}

// ReadSuggestionFilter reads one value per line, ignoring blanks and '#' lines.
func ReadSuggestionFilter(r io.Reader) (*SuggestionFilter, error) {
	f := NewSuggestionFilter()
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		v := strings.TrimSpace(sc.Text())
		if v == "" || strings.HasPrefix(v, "#") {
			continue
		}
		f.bad[v] = struct{}{}
	}
	return f, sc.Err()
}

func (f *SuggestionFilter) IsBadSuggestion(value string) bool {
	if f == nil {
		return false
	}
	_, ok := f.bad[value]
	return ok
}
