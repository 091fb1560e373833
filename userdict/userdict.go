// Package userdict keeps words users register by hand and turns them into a
// dictionary and a suppression list for the converter.
package userdict

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"henkan/dictionary"
	"henkan/model"
	"henkan/pos"
	"henkan/script"
)

// SuppressionPOS marks an entry that hides a word instead of adding one.
const SuppressionPOS = "抑制単語"

// WordCost is the cost of every user word: cheap enough to beat most
// system words of the same reading.
const WordCost = 3000

// ErrInvalidEntry rejects entries that cannot be stored or looked up.
var ErrInvalidEntry = errors.New("invalid user dictionary entry")

// Entry is one user word. POS is a table name such as "名詞,一般", padded
// with "*" on load, or SuppressionPOS.
type Entry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	POS   string `json:"pos"`
}

// Validate checks that e can be stored and converted.
func (e Entry) Validate() error {
	switch {
	case e.Value == "":
		return fmt.Errorf("%w: empty value", ErrInvalidEntry)
	case e.Key == "" && e.POS != SuppressionPOS:
		return fmt.Errorf("%w: empty reading", ErrInvalidEntry)
	case e.POS == "":
		return fmt.Errorf("%w: empty POS", ErrInvalidEntry)
	case strings.ContainsAny(e.Key+e.Value+e.POS, "\t\n\r"):
		return fmt.Errorf("%w: control characters", ErrInvalidEntry)
	}
	return nil
}

func (e Entry) String() string {
	return e.Key + "\t" + e.Value + "\t" + e.POS
}

// parseEntry is the inverse of Entry.String.
func parseEntry(s string) (Entry, error) {
	f := strings.Split(s, "\t")
	if len(f) != 3 {
		return Entry{}, fmt.Errorf("%w: %q", ErrInvalidEntry, s)
	}
	return Entry{Key: f[0], Value: f[1], POS: f[2]}, nil
}

// Store persists user entries.
type Store interface {
	Add(ctx context.Context, e Entry) error
	Remove(ctx context.Context, e Entry) error
	List(ctx context.Context) ([]Entry, error)
}

// MemoryStore keeps entries in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[Entry]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[Entry]struct{})}
}

func (m *MemoryStore) Add(_ context.Context, e Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.entries[e] = struct{}{}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Remove(_ context.Context, e Entry) error {
	m.mu.Lock()
	delete(m.entries, e)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) List(context.Context) ([]Entry, error) {
	m.mu.Lock()
	out := make([]Entry, 0, len(m.entries))
	for e := range m.entries {
		out = append(out, e)
	}
	m.mu.Unlock()
	sortEntries(out)
	return out, nil
}

func sortEntries(es []Entry) {
	sort.Slice(es, func(i, j int) bool {
		if es[i].Key != es[j].Key {
			return es[i].Key < es[j].Key
		}
		if es[i].Value != es[j].Value {
			return es[i].Value < es[j].Value
		}
		return es[i].POS < es[j].POS
	})
}

// Load reads every entry of store. Words become a dictionary whose tokens
// carry TokenUserDictionary; SuppressionPOS entries go to the returned
// suppression list. Words whose POS the table does not know are logged and
// registered as general nouns.
func Load(ctx context.Context, store Store, table *pos.Table) (*dictionary.Memory, *dictionary.Suppression, error) {
	entries, err := store.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list user dictionary: %w", err)
	}
	suppression := dictionary.NewSuppression()
	var tokens []model.Token
	for _, e := range entries {
		if e.POS == SuppressionPOS {
			suppression.Add(script.KatakanaToHiragana(e.Key), e.Value)
			continue
		}
		if e.Validate() != nil {
			log.Printf("[userdict] skipping invalid entry %q", e.String())
			continue
		}
		name := pos.FeatureName(strings.Split(e.POS, ","), "")
		id, ok := table.Lookup(name)
		if !ok {
			log.Printf("[userdict] unknown POS %q for %s, using %s", e.POS, e.Value, table.Name(pos.NounID))
			id = pos.NounID
		}
		tokens = append(tokens, model.Token{
			Key:        script.KatakanaToHiragana(e.Key),
			Value:      e.Value,
			Cost:       WordCost,
			LID:        id,
			RID:        id,
			Attributes: model.TokenUserDictionary,
		})
	}
	log.Printf("[userdict] loaded %d words", len(tokens))
	return dictionary.NewMemory(tokens), suppression, nil
}
