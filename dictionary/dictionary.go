// Package dictionary provides reading to word lookups for the converter.
package dictionary

import "henkan/model"

// TraverseResult tells a dictionary how to continue a lookup.
type TraverseResult int

const (
	// Continue delivers the next token.
	Continue TraverseResult = iota
	// SkipKey drops the remaining tokens of the current key.
	SkipKey
	// Stop ends the lookup.
	Stop
)

// Visitor receives lookup results in order. OnKey is called once per
// matched key, OnActualKey when the dictionary key differs from the typed
// one (kana-modifier expansion), then OnToken for each entry of the key.
type Visitor interface {
	OnKey(key string) TraverseResult
	OnActualKey(key, actualKey string, expanded bool) TraverseResult
	OnToken(key, actualKey string, token *model.Token) TraverseResult
}

// LookupOptions modify a lookup.
type LookupOptions struct {
	// KanaModifierInsensitive lets か match が, は match ば and ぱ, つ match っ and so on.
	KanaModifierInsensitive bool
}

// Dictionary is a read-only token store shared by concurrent conversions.
type Dictionary interface {
	// LookupPrefix visits entries whose key is a prefix of key.
	LookupPrefix(key string, opts LookupOptions, v Visitor)
	// LookupPredictive visits entries whose key starts with key.
	LookupPredictive(key string, opts LookupOptions, v Visitor)
	// LookupExact visits entries whose key equals key.
	LookupExact(key string, v Visitor)
	// LookupReverse visits entries whose value is a prefix of str, with key
	// and value swapped.
	LookupReverse(str string, v Visitor)
}

// Collector is a Visitor that keeps every token.
type Collector struct {
	Tokens []model.Token
	// Limit stops the lookup after that many tokens when positive.
	Limit int
}

func (c *Collector) OnKey(string) TraverseResult { return Continue }

func (c *Collector) OnActualKey(string, string, bool) TraverseResult { return Continue }

func (c *Collector) OnToken(_, _ string, t *model.Token) TraverseResult {
	c.Tokens = append(c.Tokens, *t)
	if c.Limit > 0 && len(c.Tokens) >= c.Limit {
		return Stop
	}
	return Continue
}

// stopTracker remembers whether the wrapped visitor asked to stop.
type stopTracker struct {
	v       Visitor
	stopped bool
}

func (s *stopTracker) track(r TraverseResult) TraverseResult {
	if r == Stop {
		s.stopped = true
	}
	return r
}

func (s *stopTracker) OnKey(key string) TraverseResult {
	return s.track(s.v.OnKey(key))
}

func (s *stopTracker) OnActualKey(key, actual string, expanded bool) TraverseResult {
	return s.track(s.v.OnActualKey(key, actual, expanded))
}

func (s *stopTracker) OnToken(key, actual string, t *model.Token) TraverseResult {
	return s.track(s.v.OnToken(key, actual, t))
}

// Merged looks up each dictionary in order until the visitor stops.
type Merged []Dictionary

func (m Merged) each(v Visitor, fn func(d Dictionary, v Visitor)) {
	st := &stopTracker{v: v}
	for _, d := range m {
		if d == nil {
			continue
		}
		fn(d, st)
		if st.stopped {
			return
		}
	}
}

func (m Merged) LookupPrefix(key string, opts LookupOptions, v Visitor) {
	m.each(v, func(d Dictionary, v Visitor) { d.LookupPrefix(key, opts, v) })
}

func (m Merged) LookupPredictive(key string, opts LookupOptions, v Visitor) {
	m.each(v, func(d Dictionary, v Visitor) { d.LookupPredictive(key, opts, v) })
}

func (m Merged) LookupExact(key string, v Visitor) {
	m.each(v, func(d Dictionary, v Visitor) { d.LookupExact(key, v) })
}

func (m Merged) LookupReverse(str string, v Visitor) {
	m.each(v, func(d Dictionary, v Visitor) { d.LookupReverse(str, v) })
}
