// Package lookup turns dictionary lookup results into lattice nodes.
package lookup

import (
	"henkan/dictionary"
	"henkan/keycorrector"
	"henkan/lattice"
	"henkan/model"
	"henkan/pos"
)

// Policy selects how tokens become nodes.
type Policy int

const (
	// Prefix makes one node per token.
	Prefix Policy = iota
	// Cached skips keys shorter than MinKeyLength and marks nodes so they
	// survive Lattice.ResetNodeCost.
	Cached
	// Predictive adds the POS-tuned penalty of speculative completions.
	Predictive
	// KeyCorrected rebases nodes found with a corrected key onto the
	// original key.
	KeyCorrected
)

// KanaModifierPenalty is added to nodes found through kana-modifier
// expansion.
const KanaModifierPenalty = 1151

const (
	predictiveDefaultPenalty = 900 // ~ -500*log(1/6)
	predictiveSuffixBonus    = 700
	predictiveUniqueNounCost = 500
	predictiveNumberCost     = 4000
)

// Config parameterizes a Builder. Fields irrelevant to Policy are ignored.
type Config struct {
	Policy Policy
	// Limit caps the number of nodes. Zero means lattice.MaxNodesSize.
	Limit int

	MinKeyLength int
	Matcher      *pos.Matcher

	Corrector   *keycorrector.KeyCorrector
	Pos         int
	OriginalKey string
}

// Builder is a dictionary.Visitor that allocates a node per token.
type Builder struct {
	lat     *lattice.Lattice
	cfg     Config
	limit   int
	penalty int
	nodes   []*lattice.Node
}

func New(lat *lattice.Lattice, cfg Config) *Builder {
	limit := cfg.Limit
	if limit <= 0 {
		limit = lattice.MaxNodesSize
	}
	return &Builder{lat: lat, cfg: cfg, limit: limit}
}

func (b *Builder) OnKey(key string) dictionary.TraverseResult {
	if b.cfg.Policy == Cached && len(key) < b.cfg.MinKeyLength {
		return dictionary.SkipKey
	}
	return dictionary.Continue
}

func (b *Builder) OnActualKey(_, _ string, expanded bool) dictionary.TraverseResult {
	b.penalty = 0
	if expanded {
		b.penalty = KanaModifierPenalty
	}
	return dictionary.Continue
}

func (b *Builder) OnToken(_, _ string, t *model.Token) dictionary.TraverseResult {
	if b.cfg.Policy == KeyCorrected {
		return b.onCorrectedToken(t)
	}
	n := b.newNode(t)
	switch b.cfg.Policy {
	case Cached:
		n.Attributes |= lattice.EnableCache
		n.RawWCost = n.WCost
	case Predictive:
		n.WCost += b.predictivePenalty(n)
	}
	return b.add(n)
}

func (b *Builder) onCorrectedToken(t *model.Token) dictionary.TraverseResult {
	kc := b.cfg.Corrector
	offset := kc.OriginalOffset(b.cfg.Pos, len(t.Key))
	if offset <= 0 || b.cfg.Pos+offset > len(b.cfg.OriginalKey) {
		return dictionary.SkipKey
	}
	n := b.newNode(t)
	n.Key = b.cfg.OriginalKey[b.cfg.Pos : b.cfg.Pos+offset]
	n.WCost += keycorrector.CostPenalty(n.Key)
	return b.add(n)
}

func (b *Builder) predictivePenalty(n *lattice.Node) int {
	m := b.cfg.Matcher
	cost := predictiveDefaultPenalty
	if m == nil {
		return cost
	}
	if m.IsSuffixWord(n.RID) && m.IsSuffixWord(n.LID) {
		cost -= predictiveSuffixBonus
	}
	if m.IsUniqueNoun(n.RID) || m.IsUniqueNoun(n.LID) {
		cost += predictiveUniqueNounCost
	}
	if m.IsNumber(n.RID) || m.IsNumber(n.LID) {
		cost += predictiveNumberCost
	}
	return cost
}

func (b *Builder) newNode(t *model.Token) *lattice.Node {
	n := b.lat.NewNode()
	n.Key = t.Key
	n.Value = t.Value
	n.LID = t.LID
	n.RID = t.RID
	n.WCost = t.Cost + b.penalty
	n.RawWCost = n.WCost
	n.Type = lattice.NormalNode
	if b.penalty > 0 {
		n.Attributes |= lattice.KeyExpanded
	}
	if t.Attributes&model.TokenSpellingCorrection != 0 {
		n.Attributes |= lattice.SpellingCorrection
	}
	if t.Attributes&model.TokenUserDictionary != 0 {
		n.Attributes |= lattice.UserDictionary | lattice.NoVariantsExpansion
	}
	return n
}

func (b *Builder) add(n *lattice.Node) dictionary.TraverseResult {
	b.nodes = append(b.nodes, n)
	b.limit--
	if b.limit <= 0 {
		return dictionary.Stop
	}
	return dictionary.Continue
}

// Nodes returns the built nodes. Key-corrected nodes keep lookup order;
// the other policies list the most recent node first.
func (b *Builder) Nodes() []*lattice.Node {
	if b.cfg.Policy == KeyCorrected {
		return b.nodes
	}
	out := make([]*lattice.Node, len(b.nodes))
	for i, n := range b.nodes {
		out[len(out)-1-i] = n
	}
	return out
}
