package converter

import (
	"log"

	"henkan/lattice"
	"henkan/model"
	"henkan/nbest"
	"henkan/script"
)

type insertType int

const (
	// multiSegments cuts the best path into as many segments as the
	// segmenter finds and replaces the conversion segments with them.
	multiSegments insertType = iota
	// singleSegment adds whole-key candidates to the one conversion
	// segment.
	singleSegment
	// onlyFirstSegment adds candidates for the first segment of the best
	// path only.
	onlyFirstSegment
)

// makeSegments turns the solved lattice into segments and candidates.
func (c *Converter) makeSegments(req Request, lat *lattice.Lattice, group []int, segments *model.Segments) error {
	switch segments.RequestType {
	case model.Prediction, model.Suggestion:
		maxCandidates := segments.MaxPredictionCandidates
		if !req.CreatePartialCandidates {
			return c.insertCandidates(segments, lat, group, maxCandidates, singleSegment)
		}
		single := 1
		if maxCandidates > onlyFirstSegmentCandidates {
			single = maxCandidates - onlyFirstSegmentCandidates
		}
		if err := c.insertCandidates(segments, lat, group, single, singleSegment); err != nil {
			return err
		}
		// may still add some when single + 3 > max, as whole-key
		// candidates can run out early
		return c.insertFirstSegmentCandidates(segments, lat, group,
			min(maxCandidates, single+onlyFirstSegmentCandidates))
	}

	maxCandidates := segments.MaxConversionCandidates
	if segments.RequestType == model.ReverseConversion {
		maxCandidates = 1
	}
	// the old segments carry the boundary constraints until every new
	// segment is built
	old := segments.ConversionSegmentsSize()
	if err := c.insertCandidates(segments, lat, group, maxCandidates, multiSegments); err != nil {
		return err
	}
	if old > 0 {
		segments.EraseSegments(segments.HistorySegmentsSize(), old)
	}
	return nil
}

// insertFirstSegmentCandidates appends candidates that consume only the
// first segment of the key, priced above the whole-key candidates.
func (c *Converter) insertFirstSegmentCandidates(segments *model.Segments, lat *lattice.Lattice, group []int, maxCandidates int) error {
	seg := segments.ConversionSegment(0)
	from := seg.CandidatesSize()
	if err := c.insertCandidates(segments, lat, group, maxCandidates, onlyFirstSegment); err != nil {
		return err
	}
	if seg.CandidatesSize() <= from {
		return nil
	}

	costDiff := max(0, seg.Candidate(0).Cost-seg.Candidate(from).Cost)
	wcostDiff := max(0, seg.Candidate(0).WCost-seg.Candidate(from).WCost)
	for i := from; i < seg.CandidatesSize(); {
		cand := seg.Candidate(i)
		// e.g. なのは/ナノは covers the whole key
		if len(cand.Key) >= len(seg.Key()) {
			seg.EraseCandidate(i)
			continue
		}
		cand.Cost += costDiff + onlyFirstSegmentCostOffset
		cand.WCost += wcostDiff + onlyFirstSegmentCostOffset
		cand.Attributes |= model.PartiallyKeyConsumed
		cand.ConsumedKeySize = script.Len(cand.Key)
		i++
	}
	return nil
}

// insertCandidates walks the best path, cuts it at segment ends and
// expands each piece with the N-best generator.
func (c *Converter) insertCandidates(segments *model.Segments, lat *lattice.Lattice, group []int, maxCandidates int, typ insertType) error {
	prev := lat.BOS()
	for n := lat.Node(prev.Next); n != nil && n.Next != lattice.NilNode && n.Type == lattice.HistoryNode; n = lat.Node(n.Next) {
		prev = n
	}

	expand := max(1, min(maxExpandSize, maxCandidates))
	single := typ == singleSegment
	gen := nbest.New(lat, c.conn, c.seg, c.matcher, c.suppression, c.suggestions)
	originalKey := segmentKeys(segments, segments.HistorySegmentsSize(), segments.SegmentsSize())

	inserted := 0
	begin := -1
	for n := lat.Node(prev.Next); n != nil && n.Next != lattice.NilNode; n = lat.Node(n.Next) {
		if begin < 0 {
			begin = n.BeginPos
		}
		next := lat.Node(n.Next)
		if !c.isSegmentEndNode(segments, n, next, group, single) {
			continue
		}

		seg := insertTarget(lat, group, typ, begin, n, segments)
		mode := nbest.Strict
		switch {
		case single:
			mode = nbest.OnlyEdge
		case seg.Type == model.FixedBoundary:
			mode = nbest.OnlyMid
		}
		gen.Reset(prev, next, mode)
		expandCandidates(originalKey, gen, seg, segments.RequestType, expand)
		if typ != onlyFirstSegment {
			insertDummyCandidates(seg, expand)
		}
		if n.Type == lattice.ConstrainedNode {
			seg.Type = model.FixedValue
		}
		inserted++

		if typ == onlyFirstSegment {
			break
		}
		begin = -1
		prev = n
	}
	if inserted == 0 {
		log.Printf("[converter] best path %s has no segment", lat.PathDebugString(lat.EOS()))
		return ErrSegmentationFailed
	}
	return nil
}

// isSegmentEndNode reports whether a segment ends between n and next.
func (c *Converter) isSegmentEndNode(segments *model.Segments, n, next *lattice.Node, group []int, single bool) bool {
	if next.Type == lattice.EOSNode {
		return true
	}

	// reverse conversion keeps runs of whitespace in their own segment:
	// ほん むりょう becomes ほん, " ", むりょう
	if segments.RequestType == model.ReverseConversion {
		ws, nextWS := script.IsWhitespace(n.Key), script.IsWhitespace(next.Key)
		if ws {
			return !nextWS
		}
		if nextWS {
			return true
		}
	}

	g := group[n.BeginPos]
	if g == group[next.BeginPos] && segments.Segment(g).Type == model.FixedBoundary {
		return false
	}
	if g != group[next.BeginPos] {
		return true
	}
	if n.Type == lattice.ConstrainedNode {
		return true
	}
	return c.seg.IsBoundary(n, next, single)
}

// insertTarget returns the segment that receives the candidates of the
// path piece ending at n.
func insertTarget(lat *lattice.Lattice, group []int, typ insertType, begin int, n *lattice.Node, segments *model.Segments) *model.Segment {
	if typ != multiSegments {
		return segments.Segment(segments.SegmentsSize() - 1)
	}
	seg := segments.AddSegment()
	seg.SetKey(lat.Key()[begin:n.EndPos])
	seg.Type = segments.Segment(group[n.BeginPos]).Type
	return seg
}

func expandCandidates(originalKey string, gen *nbest.Generator, seg *model.Segment, reqType model.RequestType, expand int) {
	for seg.CandidatesSize() < expand {
		cand, ok := gen.Next(originalKey, reqType)
		if !ok {
			return
		}
		seg.PushBackCandidate(cand)
	}
}

// insertDummyCandidates pads a segment with kana renderings of its key so
// the user can always pick plain hiragana or katakana.
func insertDummyCandidates(seg *model.Segment, expand int) {
	var top, last *model.Candidate
	if n := seg.CandidatesSize(); n > 0 {
		top, last = seg.Candidate(0), seg.Candidate(n-1)
	}

	// katakana content keeping the functional part of the top candidate
	if top != nil && seg.CandidatesSize() < expand &&
		top.FunctionalKey() != "" && script.TypeOfString(top.ContentKey) == script.Hiragana {
		kata := script.HiraganaToKatakana(top.ContentKey)
		cand := top.Clone()
		cand.Value = kata + top.FunctionalValue()
		cand.ContentValue = kata
		cand.Cost = last.Cost + 1
		cand.WCost = last.WCost + 1
		cand.StructureCost = last.StructureCost + 1
		cand.Attributes = model.DefaultAttribute
		cand.InnerSegmentBoundary = nil
		seg.PushBackCandidate(cand)
		last = cand
	}

	if seg.CandidatesSize() == 0 ||
		(seg.CandidatesSize() < expand && script.TypeOfString(seg.Key()) == script.Hiragana) {
		cand := &model.Candidate{}
		if last != nil {
			cand = last.Clone()
			cand.InnerSegmentBoundary = nil
		}
		cand.Key, cand.Value = seg.Key(), seg.Key()
		cand.ContentKey, cand.ContentValue = seg.Key(), seg.Key()
		if last != nil {
			cand.Cost = last.Cost + 1
			cand.WCost = last.WCost + 1
			cand.StructureCost = last.StructureCost + 1
		}
		cand.Attributes = model.DefaultAttribute
		// picking シ for し must not turn しました into シました later
		if script.Len(cand.Key) <= 1 {
			cand.Attributes |= model.ContextSensitive
		}
		seg.PushBackCandidate(cand)
		last = cand
	}

	kata := script.HiraganaToKatakana(seg.Key())
	if seg.CandidatesSize() > 0 && seg.CandidatesSize() < expand &&
		script.TypeOfString(kata) == script.Katakana {
		cand := &model.Candidate{
			Key:           seg.Key(),
			Value:         kata,
			ContentKey:    seg.Key(),
			ContentValue:  kata,
			Cost:          last.Cost + 1,
			WCost:         last.WCost + 1,
			StructureCost: last.StructureCost + 1,
			LID:           last.LID,
			RID:           last.RID,
		}
		if script.Len(cand.Key) <= 1 {
			cand.Attributes |= model.ContextSensitive
		}
		seg.PushBackCandidate(cand)
	}
}
