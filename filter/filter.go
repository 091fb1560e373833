// Package filter decides which enumerated paths become candidates.
package filter

import (
	"math"
	"unicode/utf8"

	"henkan/lattice"
	"henkan/model"
	"henkan/pos"
	"henkan/script"
)

// Result of FilterCandidate.
type Result int

const (
	Good Result = iota
	Bad
	// Stop ends the enumeration for the segment.
	Stop
)

func (r Result) String() string {
	switch r {
	case Good:
		return "good"
	case Bad:
		return "bad"
	case Stop:
		return "stop"
	}
	return "unknown"
}

// Costs are -500*log(p); an offset of 500*log(C) means C times less likely.
const (
	minCost                  = 100
	costOffset               = 6907 // C = 1000000
	structureCostOffset      = 3453 // C = 1000
	minStructureCostOffset   = 1151 // C = 10
	earlyCostOffset          = 2302 // C = 100
	maxCandidatesSize        = 200
	stopEnumerationCacheSize = 15
	weakCompoundSizeLimit    = 10
	earlyCandidatesSize      = 3
)

// Suppressor reports words the user never wants to see.
type Suppressor interface {
	IsSuppressed(key, value string) bool
}

// SuggestionFilter reports values unfit for unsolicited suggestion.
type SuggestionFilter interface {
	IsBadSuggestion(value string) bool
}

// Filter holds the per-segment state: seen values and the top candidate.
type Filter struct {
	lat         *lattice.Lattice
	suppressor  Suppressor
	suggestions SuggestionFilter
	matcher     *pos.Matcher

	seen map[string]struct{}
	top  *model.Candidate
}

func New(lat *lattice.Lattice, suppressor Suppressor, suggestions SuggestionFilter, matcher *pos.Matcher) *Filter {
	return &Filter{
		lat:         lat,
		suppressor:  suppressor,
		suggestions: suggestions,
		matcher:     matcher,
		seen:        make(map[string]struct{}),
	}
}

// Reset forgets the seen values and the top candidate.
func (f *Filter) Reset() {
	f.seen = make(map[string]struct{})
	f.top = nil
}

// FilterCandidate classifies cand, built from nodes. topNodes is the best
// path of the segment; it never lets a candidate skip cost pruning.
// Accepted values are remembered, so the same value is Good once and Bad
// afterwards.
func (f *Filter) FilterCandidate(originalKey string, cand *model.Candidate, topNodes, nodes []*lattice.Node, reqType model.RequestType) Result {
	if reqType == model.ReverseConversion {
		if _, ok := f.seen[cand.Value]; ok {
			return Bad
		}
		f.seen[cand.Value] = struct{}{}
		return Good
	}
	r := f.filter(originalKey, cand, nodes, reqType)
	if r == Good {
		f.seen[cand.Value] = struct{}{}
	}
	return r
}

func (f *Filter) suppressed(key, value string) bool {
	return f.suppressor != nil && f.suppressor.IsSuppressed(key, value)
}

func (f *Filter) badSuggestion(value string) bool {
	return f.suggestions != nil && f.suggestions.IsBadSuggestion(value)
}

func (f *Filter) filter(originalKey string, cand *model.Candidate, nodes []*lattice.Node, reqType model.RequestType) Result {
	if (reqType == model.Prediction || reqType == model.Suggestion) && originalKey != cand.Key {
		if f.badSuggestion(cand.Value) {
			return Bad
		}
		for _, n := range nodes {
			if f.badSuggestion(n.Value) {
				return Bad
			}
		}
	}

	// constrained paths tend to be overestimated; never let them become top
	if cand.Attributes&model.ContextSensitive != 0 {
		return Good
	}

	size := len(f.seen)
	if f.top == nil || size == 0 {
		f.top = cand
	}
	if len(nodes) == 0 {
		return Bad
	}

	m := f.matcher
	if len(nodes) > 1 {
		for _, n := range nodes {
			if m.IsIsolatedWord(n.LID) || m.IsGeneralSymbol(n.LID) {
				return Bad
			}
		}
	}
	if (m.IsIsolatedWord(nodes[0].LID) || m.IsGeneralSymbol(nodes[0].LID)) &&
		(f.isNormalOrConstrained(nodes[0].Prev) || f.isNormalOrConstrained(nodes[0].Next)) {
		return Bad
	}

	if f.suppressed(cand.Key, cand.Value) ||
		(cand.Key != cand.ContentKey && cand.Value != cand.ContentValue &&
			f.suppressed(cand.ContentKey, cand.ContentValue)) {
		return Bad
	}

	if cand.Attributes&model.UserDictionary != 0 {
		return Good
	}

	if size+1 >= maxCandidatesSize {
		return Stop
	}

	if _, ok := f.seen[cand.Value]; ok {
		return Bad
	}

	if f.isBadConjugation(nodes) {
		return Bad
	}

	if len(nodes) == 1 {
		return Good
	}
	if utf8.RuneCountInString(cand.Value) == 1 {
		return Good
	}

	noisy := f.isNoisyWeakCompound(nodes)
	if noisy && size >= 1 {
		return Bad
	}
	if f.isConnectedWeakCompound(nodes) && size >= weakCompoundSizeLimit {
		return Bad
	}

	top := f.top
	if !noisy && top.StructureCost == 0 && cand.LID == top.LID && cand.RID == top.RID {
		return Good
	}

	// 好かっ|たり after 良かっ|たり
	if !noisy && top != cand && top.ContentValue != top.Value &&
		top.FunctionalValue() == cand.FunctionalValue() {
		return Good
	}

	if cand.Attributes&model.RealtimeConversion == 0 {
		topIsT13n := script.IsEnglishTransliteration(nodes[0].Value)
		for _, n := range nodes[1:] {
			if script.IsEnglishTransliteration(n.Value) {
				return Bad
			}
			if topIsT13n && !m.IsFunctional(n.LID) {
				return Bad
			}
		}
	}

	topCost := max(minCost, top.Cost)
	topStructureCost := max(minCost, top.StructureCost)

	if size < earlyCandidatesSize &&
		cand.Cost < topCost+earlyCostOffset &&
		cand.StructureCost < costOffset {
		return Good
	}

	// personal names are pruned by structure cost only
	offset := costOffset
	if cand.LID == m.LastNameID() || cand.LID == m.FirstNameID() {
		offset = math.MaxInt32 - topCost
	}

	if topCost+offset < cand.Cost && topStructureCost+minStructureCostOffset < cand.StructureCost {
		if size < stopEnumerationCacheSize {
			return Bad
		}
		return Stop
	}

	if max(topStructureCost, minStructureCostOffset)+structureCostOffset < cand.StructureCost {
		return Bad
	}

	return Good
}

func (f *Filter) isNormalOrConstrained(id lattice.NodeID) bool {
	if f.lat == nil {
		return false
	}
	n := f.lat.Node(id)
	return n != nil && (n.Type == lattice.NormalNode || n.Type == lattice.ConstrainedNode)
}

// isBadConjugation catches 書います and 買いて: a ka-row ta-connection verb
// followed by a suffix other than te, or a wa-row renyo verb followed by te.
func (f *Filter) isBadConjugation(nodes []*lattice.Node) bool {
	m := f.matcher
	if script.TypeOfString(nodes[0].Value) == script.Hiragana {
		return false
	}
	if len(nodes) >= 2 {
		if m.IsKagyoTaConnectionVerb(nodes[0].RID) && m.IsVerbSuffix(nodes[1].LID) && !m.IsTeSuffix(nodes[1].LID) {
			return true
		}
		if m.IsWagyoRenyoConnectionVerb(nodes[0].RID) && m.IsTeSuffix(nodes[1].LID) {
			return true
		}
	}
	if nodes[0].LID != nodes[0].RID {
		if m.IsKagyoTaConnectionVerb(nodes[0].LID) && m.IsVerbSuffix(nodes[0].RID) && !m.IsTeSuffix(nodes[0].RID) {
			return true
		}
		if m.IsWagyoRenyoConnectionVerb(nodes[0].LID) && m.IsTeSuffix(nodes[0].RID) {
			return true
		}
	}
	return false
}

// isNoisyWeakCompound: a prefix joined to content of a mismatched class,
// as in お危機します for おききします.
func (f *Filter) isNoisyWeakCompound(nodes []*lattice.Node) bool {
	m := f.matcher
	if len(nodes) <= 1 || nodes[0].LID != nodes[0].RID {
		return false
	}
	if m.IsWeakCompoundFillerPrefix(nodes[0].LID) {
		return true
	}
	if nodes[1].LID != nodes[1].RID {
		return true
	}
	if m.IsWeakCompoundNounPrefix(nodes[0].LID) && !m.IsWeakCompoundNounSuffix(nodes[1].LID) {
		return true
	}
	if m.IsWeakCompoundVerbPrefix(nodes[0].LID) && !m.IsWeakCompoundVerbSuffix(nodes[1].LID) {
		return true
	}
	return false
}

func (f *Filter) isConnectedWeakCompound(nodes []*lattice.Node) bool {
	m := f.matcher
	if len(nodes) <= 1 || nodes[0].LID != nodes[0].RID || nodes[1].LID != nodes[1].RID {
		return false
	}
	if m.IsWeakCompoundNounPrefix(nodes[0].LID) && m.IsWeakCompoundNounSuffix(nodes[1].LID) {
		return true
	}
	return m.IsWeakCompoundVerbPrefix(nodes[0].LID) && m.IsWeakCompoundVerbSuffix(nodes[1].LID)
}
