package dictionary

import (
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"henkan/model"
)

// index is a key-sorted list of entries.
type index interface {
	Len() int
	Key(i int) string
	Value(i int) string
	Token(i int) model.Token
}

// Lexicon implements Dictionary over a sorted index.
type Lexicon struct {
	ix index

	revOnce sync.Once
	byValue []int
}

func newLexicon(ix index) *Lexicon {
	return &Lexicon{ix: ix}
}

// Size is the number of entries.
func (l *Lexicon) Size() int {
	return l.ix.Len()
}

func (l *Lexicon) lowerBound(key string) int {
	return sort.Search(l.ix.Len(), func(i int) bool { return l.ix.Key(i) >= key })
}

func (l *Lexicon) hasPrefix(prefix string) bool {
	i := l.lowerBound(prefix)
	return i < l.ix.Len() && strings.HasPrefix(l.ix.Key(i), prefix)
}

// walk visits every rewriting actual of key[:consumed] present as a key
// prefix in the index, shorter ones first along each branch.
func (l *Lexicon) walk(key string, expand bool, consumed int, actual string, fn func(consumed int, actual string) TraverseResult) TraverseResult {
	if consumed > 0 {
		if fn(consumed, actual) == Stop {
			return Stop
		}
	}
	if consumed == len(key) {
		return Continue
	}
	r, n := utf8.DecodeRuneInString(key[consumed:])
	for _, alt := range alternatives(r, expand) {
		next := actual + string(alt)
		if !l.hasPrefix(next) {
			continue
		}
		if l.walk(key, expand, consumed+n, next, fn) == Stop {
			return Stop
		}
	}
	return Continue
}

// emit delivers the tokens stored under actual. key is the typed key.
func (l *Lexicon) emit(key, actual string, v Visitor) TraverseResult {
	i := l.lowerBound(actual)
	if i >= l.ix.Len() || l.ix.Key(i) != actual {
		return Continue
	}
	switch v.OnKey(key) {
	case Stop:
		return Stop
	case SkipKey:
		return Continue
	}
	switch v.OnActualKey(key, actual, key != actual) {
	case Stop:
		return Stop
	case SkipKey:
		return Continue
	}
	for ; i < l.ix.Len() && l.ix.Key(i) == actual; i++ {
		t := l.ix.Token(i)
		t.Key = key
		switch v.OnToken(key, actual, &t) {
		case Stop:
			return Stop
		case SkipKey:
			return Continue
		}
	}
	return Continue
}

func (l *Lexicon) LookupPrefix(key string, opts LookupOptions, v Visitor) {
	l.walk(key, opts.KanaModifierInsensitive, 0, "", func(consumed int, actual string) TraverseResult {
		return l.emit(key[:consumed], actual, v)
	})
}

func (l *Lexicon) LookupPredictive(key string, opts LookupOptions, v Visitor) {
	if key == "" {
		return
	}
	l.walk(key, opts.KanaModifierInsensitive, 0, "", func(consumed int, actual string) TraverseResult {
		if consumed < len(key) {
			return Continue
		}
		for i := l.lowerBound(actual); i < l.ix.Len(); {
			k := l.ix.Key(i)
			if !strings.HasPrefix(k, actual) {
				break
			}
			// typed key is the input with the predicted remainder appended
			typed := key + k[len(actual):]
			if l.emit(typed, k, v) == Stop {
				return Stop
			}
			for i < l.ix.Len() && l.ix.Key(i) == k {
				i++
			}
		}
		return Continue
	})
}

func (l *Lexicon) LookupExact(key string, v Visitor) {
	l.emit(key, key, v)
}

func (l *Lexicon) valueIndex() []int {
	l.revOnce.Do(func() {
		l.byValue = make([]int, l.ix.Len())
		for i := range l.byValue {
			l.byValue[i] = i
		}
		sort.SliceStable(l.byValue, func(a, b int) bool {
			return l.ix.Value(l.byValue[a]) < l.ix.Value(l.byValue[b])
		})
	})
	return l.byValue
}

func (l *Lexicon) LookupReverse(str string, v Visitor) {
	byValue := l.valueIndex()
	for n := 0; n < len(str); {
		_, size := utf8.DecodeRuneInString(str[n:])
		n += size
		prefix := str[:n]
		i := sort.Search(len(byValue), func(j int) bool { return l.ix.Value(byValue[j]) >= prefix })
		if i >= len(byValue) || l.ix.Value(byValue[i]) != prefix {
			if i >= len(byValue) || !strings.HasPrefix(l.ix.Value(byValue[i]), prefix) {
				return
			}
			continue
		}
		switch v.OnKey(prefix) {
		case Stop:
			return
		case SkipKey:
			continue
		}
		for ; i < len(byValue) && l.ix.Value(byValue[i]) == prefix; i++ {
			t := l.ix.Token(byValue[i])
			t.Key, t.Value = t.Value, t.Key
			r := v.OnToken(prefix, prefix, &t)
			if r == Stop {
				return
			}
			if r == SkipKey {
				break
			}
		}
	}
}

// Entries returns all tokens in key order.
func (l *Lexicon) Entries() []model.Token {
	out := make([]model.Token, l.ix.Len())
	for i := range out {
		out[i] = l.ix.Token(i)
	}
	return out
}
