// Package segmenter decides where one conversion segment ends and the next
// begins.
package segmenter

import (
	"henkan/lattice"
	"henkan/pos"
)

// Segmenter is the boundary oracle used by the converter.
type Segmenter interface {
	IsBoundary(l, r *lattice.Node, singleSegment bool) bool
	PrefixPenalty(lid uint16) int
	SuffixPenalty(rid uint16) int
}

const (
	functionalPrefixPenalty = 2000
	prefixSuffixPenalty     = 2000
)

// Rules derives boundaries from POS classes: a segment is a content word
// followed by its functional words, and prefixes bind to the right.
type Rules struct {
	matcher  *pos.Matcher
	size     int
	boundary []uint64
	prefix   []int
	suffix   []int
}

// NewRules precomputes the boundary table for every id known to m.
func NewRules(m *pos.Matcher) *Rules {
	size := m.Table().Len()
	s := &Rules{
		matcher:  m,
		size:     size,
		boundary: make([]uint64, (size*size+63)/64),
		prefix:   make([]int, size),
		suffix:   make([]int, size),
	}
	for rid := 0; rid < size; rid++ {
		for lid := 0; lid < size; lid++ {
			if s.computeBoundary(uint16(rid), uint16(lid)) {
				bit := rid*size + lid
				s.boundary[bit/64] |= 1 << (bit % 64)
			}
		}
	}
	for id := 0; id < size; id++ {
		s.prefix[id] = s.computePrefixPenalty(uint16(id))
		s.suffix[id] = s.computeSuffixPenalty(uint16(id))
	}
	return s
}

func (s *Rules) computeBoundary(rid, lid uint16) bool {
	if rid == pos.BOSEOSID || lid == pos.BOSEOSID {
		return true
	}
	if s.matcher.IsPrefix(rid) {
		return false
	}
	if s.matcher.IsFunctional(lid) || s.matcher.IsSuffixWord(lid) {
		return false
	}
	return true
}

func (s *Rules) computePrefixPenalty(lid uint16) int {
	if s.matcher.IsFunctional(lid) || s.matcher.IsSuffixWord(lid) {
		return functionalPrefixPenalty
	}
	return 0
}

func (s *Rules) computeSuffixPenalty(rid uint16) int {
	if s.matcher.IsPrefix(rid) {
		return prefixSuffixPenalty
	}
	return 0
}

// IsBoundary reports whether a segment may end between l and r. In
// single-segment mode only the sentence ends are boundaries.
func (s *Rules) IsBoundary(l, r *lattice.Node, singleSegment bool) bool {
	if l.Type == lattice.BOSNode || r.Type == lattice.EOSNode {
		return true
	}
	if singleSegment {
		return false
	}
	if r.Attributes&lattice.StartsWithParticle != 0 {
		return false
	}
	return s.IsBoundaryID(l.RID, r.LID)
}

// IsBoundaryID is the id-level boundary table.
func (s *Rules) IsBoundaryID(rid, lid uint16) bool {
	if int(rid) >= s.size || int(lid) >= s.size {
		return s.computeBoundary(rid, lid)
	}
	bit := int(rid)*s.size + int(lid)
	return s.boundary[bit/64]&(1<<(bit%64)) != 0
}

// PrefixPenalty is added to nodes opening the conversion key.
func (s *Rules) PrefixPenalty(lid uint16) int {
	if int(lid) < s.size {
		return s.prefix[lid]
	}
	return s.computePrefixPenalty(lid)
}

// SuffixPenalty is added to nodes closing the conversion key.
func (s *Rules) SuffixPenalty(rid uint16) int {
	if int(rid) < s.size {
		return s.suffix[rid]
	}
	return s.computeSuffixPenalty(rid)
}
