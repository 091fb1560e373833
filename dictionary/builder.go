package dictionary

import (
	"log"
	"math"
	"sort"

	"henkan/connector"
	"henkan/model"
	"henkan/pos"
	"henkan/script"
)

// MaxWordCost bounds word costs emitted by the builder.
const MaxWordCost = 32767

type entryKey struct {
	key, value string
	lid, rid   uint16
}

// Builder accumulates analyzed corpus sentences and explicit entries into a
// dictionary image.
type Builder struct {
	table *pos.Table

	counts map[entryKey]int
	total  int
	bigram map[[2]uint16]int

	explicit map[entryKey]model.Token
}

func NewBuilder(table *pos.Table) *Builder {
	return &Builder{
		table:    table,
		counts:   make(map[entryKey]int),
		bigram:   make(map[[2]uint16]int),
		explicit: make(map[entryKey]model.Token),
	}
}

// readingOf returns the hiragana reading of m, or "" when it has none.
func readingOf(m model.Morpheme) string {
	if m.Reading != "" && m.Reading != "*" {
		return script.KatakanaToHiragana(m.Reading)
	}
	if script.IsHiragana(m.Surface) {
		return m.Surface
	}
	if script.IsKatakana(m.Surface) {
		return script.KatakanaToHiragana(m.Surface)
	}
	return ""
}

// AddSentence counts the morphemes of one sentence and the POS transitions
// between them, BOS and EOS included.
func (b *Builder) AddSentence(ms []model.Morpheme) {
	prev := pos.BOSEOSID
	for _, m := range ms {
		lid := b.table.ID(m.LeftPOS())
		rid := b.table.ID(m.RightPOS())
		b.bigram[[2]uint16{prev, lid}]++
		prev = rid
		reading := readingOf(m)
		if reading == "" || m.Surface == "" {
			continue
		}
		b.counts[entryKey{reading, m.Surface, lid, rid}]++
		b.total++
	}
	if len(ms) > 0 {
		b.bigram[[2]uint16{prev, pos.BOSEOSID}]++
	}
}

// AddTokens registers entries with explicit costs. Corpus counts for the same
// entry win when they give a lower cost.
func (b *Builder) AddTokens(tokens []model.Token) {
	for _, t := range tokens {
		k := entryKey{t.Key, t.Value, t.LID, t.RID}
		if old, ok := b.explicit[k]; ok && old.Cost <= t.Cost {
			continue
		}
		b.explicit[k] = t
	}
}

func wordCost(count, total int) int {
	c := int(-500 * math.Log(float64(count)/float64(total)))
	if c < 0 {
		return 0
	}
	if c > MaxWordCost {
		return MaxWordCost
	}
	return c
}

// Build emits the image: system tokens, a suffix dictionary drawn from
// suffix and functional entries, and a connector estimated from the counted
// transitions.
func (b *Builder) Build() *ImageData {
	merged := make(map[entryKey]model.Token, len(b.counts)+len(b.explicit))
	for k, c := range b.counts {
		merged[k] = model.Token{Key: k.key, Value: k.value, Cost: wordCost(c, b.total), LID: k.lid, RID: k.rid}
	}
	for k, t := range b.explicit {
		if old, ok := merged[k]; ok && old.Cost <= t.Cost {
			continue
		}
		merged[k] = t
	}

	matcher := pos.NewMatcher(b.table)
	system := make([]model.Token, 0, len(merged))
	var suffix []model.Token
	for _, t := range merged {
		system = append(system, t)
		if matcher.IsSuffixWord(t.LID) || matcher.IsFunctional(t.LID) {
			st := t
			st.Attributes |= model.TokenSuffixDictionary
			suffix = append(suffix, st)
		}
	}
	sortDeterministic(system)
	sortDeterministic(suffix)

	conn := connector.Estimate(b.table.Len(), b.bigram)
	log.Printf("[build] %d entries, %d suffix entries, %d POS ids, %d corpus tokens",
		len(system), len(suffix), b.table.Len(), b.total)
	return &ImageData{
		Table:     b.table,
		Connector: conn,
		System:    system,
		Suffix:    suffix,
	}
}

func sortDeterministic(tokens []model.Token) {
	sort.Slice(tokens, func(i, j int) bool {
		a, c := tokens[i], tokens[j]
		if a.Key != c.Key {
			return a.Key < c.Key
		}
		if a.Cost != c.Cost {
			return a.Cost < c.Cost
		}
		if a.Value != c.Value {
			return a.Value < c.Value
		}
		if a.LID != c.LID {
			return a.LID < c.LID
		}
		return a.RID < c.RID
	})
}
