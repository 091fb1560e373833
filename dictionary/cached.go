package dictionary

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"henkan/model"
)

// DefaultCacheSize is the number of lookup keys Cached remembers.
const DefaultCacheSize = 4096

type eventKind uint8

const (
	eventKey eventKind = iota
	eventActualKey
	eventToken
)

type event struct {
	kind     eventKind
	key      string
	actual   string
	expanded bool
	token    model.Token
}

type recorder struct {
	events []event
}

func (r *recorder) OnKey(key string) TraverseResult {
	r.events = append(r.events, event{kind: eventKey, key: key})
	return Continue
}

func (r *recorder) OnActualKey(key, actual string, expanded bool) TraverseResult {
	r.events = append(r.events, event{kind: eventActualKey, key: key, actual: actual, expanded: expanded})
	return Continue
}

func (r *recorder) OnToken(key, actual string, t *model.Token) TraverseResult {
	r.events = append(r.events, event{kind: eventToken, key: key, actual: actual, token: *t})
	return Continue
}

type cacheKey struct {
	key    string
	expand bool
}

// Cached memoizes prefix lookups of a dictionary. Other lookups pass through.
type Cached struct {
	Dictionary
	cache *lru.Cache[cacheKey, []event]
}

func NewCached(d Dictionary, size int) (*Cached, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[cacheKey, []event](size)
	if err != nil {
		return nil, err
	}
	return &Cached{Dictionary: d, cache: cache}, nil
}

func (c *Cached) LookupPrefix(key string, opts LookupOptions, v Visitor) {
	ck := cacheKey{key: key, expand: opts.KanaModifierInsensitive}
	events, ok := c.cache.Get(ck)
	if !ok {
		rec := &recorder{}
		c.Dictionary.LookupPrefix(key, opts, rec)
		events = rec.events
		c.cache.Add(ck, events)
	}
	replay(events, v)
}

// replay feeds recorded events to v, honoring SkipKey and Stop.
func replay(events []event, v Visitor) {
	skipping := false
	for i := range events {
		e := &events[i]
		if e.kind == eventKey {
			skipping = false
		} else if skipping {
			continue
		}
		var r TraverseResult
		switch e.kind {
		case eventKey:
			r = v.OnKey(e.key)
		case eventActualKey:
			r = v.OnActualKey(e.key, e.actual, e.expanded)
		case eventToken:
			t := e.token
			r = v.OnToken(e.key, e.actual, &t)
		}
		switch r {
		case Stop:
			return
		case SkipKey:
			skipping = true
		}
	}
}

// Purge drops every cached lookup.
func (c *Cached) Purge() {
	c.cache.Purge()
}
