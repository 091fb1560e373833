package converter

import (
	"log"
	"sort"

	"henkan/lattice"
	"henkan/model"
)

// reached reports whether Viterbi found a path from BOS to n.
func reached(n *lattice.Node) bool {
	return n.Type == lattice.BOSNode || n.Prev != lattice.NilNode
}

// viterbi finds the best path under the segment boundaries of segments:
// no node may cross the end of the segment it starts in.
func (c *Converter) viterbi(segments *model.Segments, lat *lattice.Lattice) error {
	key := lat.Key()
	bos := lat.BOS()

	right := len(segments.Segment(0).Key())
	for r := lat.BeginNodes(0); r != nil; r = lat.NextBegin(r) {
		if r.EndPos > right {
			continue
		}
		r.Prev = bos.ID
		r.Cost = bos.Cost + c.conn.TransitionCost(bos.RID, r.LID) + r.WCost
	}

	left := 0
	for i := 0; i < segments.SegmentsSize(); i++ {
		right := left + len(segments.Segment(i).Key())
		from := left
		if i == 0 {
			// position 0 was connected to BOS above
			from++
		}
		for at := from; at < right; at++ {
			c.viterbiAt(at, right, lat)
		}
		left = right
	}

	eos := lat.EOS()
	bestCost, best := veryBigCost, (*lattice.Node)(nil)
	for l := lat.EndNodes(len(key)); l != nil; l = lat.NextEnd(l) {
		if !reached(l) {
			continue
		}
		if cost := l.Cost + c.conn.TransitionCost(l.RID, eos.LID); cost < bestCost {
			bestCost, best = cost, l
		}
	}
	eos.Prev = lattice.NilNode
	if best != nil {
		eos.Prev = best.ID
	}
	eos.Cost = bestCost + eos.WCost

	return backtrack(lat)
}

// viterbiAt connects every node starting at at to its cheapest reached
// predecessor. right is the end of the current segment.
func (c *Converter) viterbiAt(at, right int, lat *lattice.Lattice) {
	for r := lat.BeginNodes(at); r != nil; r = lat.NextBegin(r) {
		if r.EndPos > right {
			r.Prev = lattice.NilNode
			continue
		}

		if r.ConstrainedPrev != lattice.NilNode {
			cp := lat.Node(r.ConstrainedPrev)
			if !reached(cp) {
				r.Prev = lattice.NilNode
				continue
			}
			r.Prev = cp.ID
			r.Cost = cp.Cost + r.WCost + c.conn.TransitionCost(cp.RID, r.LID)
			continue
		}

		bestCost, best := veryBigCost, (*lattice.Node)(nil)
		for l := lat.EndNodes(at); l != nil; l = lat.NextEnd(l) {
			if !reached(l) {
				continue
			}
			if cost := l.Cost + c.conn.TransitionCost(l.RID, r.LID); cost < bestCost {
				bestCost, best = cost, l
			}
		}
		r.Prev = lattice.NilNode
		if best != nil {
			r.Prev = best.ID
		}
		r.Cost = bestCost + r.WCost
	}
}

// backtrack links Next along the best path and checks it starts at BOS.
func backtrack(lat *lattice.Lattice) error {
	var prev *lattice.Node
	for n := lat.EOS(); n.Prev != lattice.NilNode; n = prev {
		prev = lat.Node(n.Prev)
		prev.Next = n.ID
	}
	if prev == nil || prev.ID != lat.BOS().ID {
		log.Printf("[converter] best path does not reach BOS")
		return ErrNoPath
	}
	return nil
}

// predictionViterbi is a faster Viterbi for single-segment requests. Nodes
// are contracted by lid and rid, so each position costs
// O(distinct rids * distinct lids) transitions. History and conversion are
// solved one after the other since no node crosses the history end.
func (c *Converter) predictionViterbi(segments *model.Segments, lat *lattice.Lattice) error {
	historyLen := len(segmentKeys(segments, 0, segments.HistorySegmentsSize()))
	c.predictionViterbiRange(0, historyLen, lat)
	c.predictionViterbiRange(historyLen, len(lat.Key()), lat)
	return backtrack(lat)
}

type idBest struct {
	id   uint16
	cost int
	node *lattice.Node
}

// bestIndex finds id in bests, sorted by id, inserting it when missing.
func bestIndex(bests []idBest, id uint16) ([]idBest, int) {
	i := sort.Search(len(bests), func(i int) bool { return bests[i].id >= id })
	if i < len(bests) && bests[i].id == id {
		return bests, i
	}
	bests = append(bests, idBest{})
	copy(bests[i+1:], bests[i:])
	bests[i] = idBest{id: id, cost: veryBigCost}
	return bests, i
}

// predictionViterbiRange solves positions begin..end inclusive, ignoring
// nodes that end after end.
func (c *Converter) predictionViterbiRange(begin, end int, lat *lattice.Lattice) {
	lbest := make([]idBest, 0, 128)
	rbest := make([]idBest, 0, 128)
	var i int
	for at := begin; at <= end; at++ {
		lbest = lbest[:0]
		for l := lat.EndNodes(at); l != nil; l = lat.NextEnd(l) {
			if !reached(l) {
				continue
			}
			lbest, i = bestIndex(lbest, l.RID)
			if l.Cost < lbest[i].cost {
				lbest[i].cost, lbest[i].node = l.Cost, l
			}
		}
		if len(lbest) == 0 {
			continue
		}

		rbest = rbest[:0]
		for r := lat.BeginNodes(at); r != nil; r = lat.NextBegin(r) {
			if r.EndPos > end {
				continue
			}
			rbest, _ = bestIndex(rbest, r.LID)
		}
		if len(rbest) == 0 {
			continue
		}

		for _, lb := range lbest {
			for j := range rbest {
				cost := lb.cost + c.conn.TransitionCost(lb.id, rbest[j].id)
				if cost < rbest[j].cost {
					rbest[j].cost, rbest[j].node = cost, lb.node
				}
			}
		}

		for r := lat.BeginNodes(at); r != nil; r = lat.NextBegin(r) {
			if r.EndPos > end {
				continue
			}
			rbest, i = bestIndex(rbest, r.LID)
			if rbest[i].node == nil {
				continue
			}
			r.Cost = rbest[i].cost + r.WCost
			r.Prev = rbest[i].node.ID
		}
	}
}
