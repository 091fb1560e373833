// Package nbest enumerates the paths of a segment in increasing cost order.
//
// The search walks right to left from the segment end with A*; the Viterbi
// cost of each node is the exact remaining cost to BOS, so the first goal
// popped is the cheapest path not yet returned.
package nbest

import (
	"container/heap"

	"henkan/connector"
	"henkan/filter"
	"henkan/lattice"
	"henkan/model"
	"henkan/pos"
	"henkan/segmenter"
)

// BoundaryCheckMode selects how segment boundaries constrain a path.
type BoundaryCheckMode int

const (
	// Strict requires boundaries exactly at the segment edges.
	Strict BoundaryCheckMode = iota
	// OnlyMid forbids inner boundaries; edges without a grammatical
	// boundary are allowed with a penalty.
	OnlyMid
	// OnlyEdge treats the segment as a single segment.
	OnlyEdge
)

func (m BoundaryCheckMode) String() string {
	switch m {
	case Strict:
		return "strict"
	case OnlyMid:
		return "only_mid"
	case OnlyEdge:
		return "only_edge"
	}
	return "unknown"
}

const (
	costDiff              = 3453 // 1/1000
	maxTrials             = 500
	invalidPenaltyCost    = 100000
	weakConnectedPenalty  = 3453
	initialAgendaCapacity = 512
)

type boundaryResult int

const (
	valid boundaryResult = iota
	validWeakConnected
	invalid
)

// element is a partial path from the segment end back to node.
type element struct {
	node *lattice.Node
	next *element
	fx   int // gx + Viterbi cost of node
	gx   int
	// transitions inside the candidate only
	structureGx int
	wGx         int
}

type agenda []*element

func (a agenda) Len() int           { return len(a) }
func (a agenda) Less(i, j int) bool { return a[i].fx < a[j].fx }
func (a agenda) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a *agenda) Push(x any)        { *a = append(*a, x.(*element)) }
func (a *agenda) Pop() any {
	old := *a
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*a = old[:n-1]
	return e
}

// Generator produces candidates between two nodes of a Viterbi-solved
// lattice. It is bound to one lattice and not safe for concurrent use.
type Generator struct {
	lat     *lattice.Lattice
	conn    connector.Connector
	seg     segmenter.Segmenter
	matcher *pos.Matcher
	filter  *filter.Filter

	begin, end *lattice.Node
	mode       BoundaryCheckMode
	agenda     agenda
	topNodes   []*lattice.Node
	topChecked bool
}

func New(lat *lattice.Lattice, conn connector.Connector, seg segmenter.Segmenter, matcher *pos.Matcher,
	suppressor filter.Suppressor, suggestions filter.SuggestionFilter) *Generator {
	return &Generator{
		lat:     lat,
		conn:    conn,
		seg:     seg,
		matcher: matcher,
		filter:  filter.New(lat, suppressor, suggestions, matcher),
		agenda:  make(agenda, 0, initialAgendaCapacity),
	}
}

// Reset prepares enumeration of the paths strictly between begin and end.
// begin and end must lie on the Viterbi best path.
func (g *Generator) Reset(begin, end *lattice.Node, mode BoundaryCheckMode) {
	g.agenda = g.agenda[:0]
	g.filter.Reset()
	g.topChecked = false
	g.mode = mode
	g.begin, g.end = begin, end

	g.topNodes = g.topNodes[:0]
	for n := g.lat.Node(begin.Next); n != nil && n != end; n = g.lat.Node(n.Next) {
		g.topNodes = append(g.topNodes, n)
	}

	for n := g.lat.BeginNodes(end.BeginPos); n != nil; n = g.lat.NextBegin(n) {
		if n == end || (n.LID != end.LID && n.Cost-end.Cost <= costDiff && n.Prev != end.Prev) {
			g.agenda = append(g.agenda, &element{node: n, fx: n.Cost})
		}
	}
	heap.Init(&g.agenda)
}

// Next returns the next candidate accepted by the filter, or false when
// the enumeration is over. The first candidate is always the Viterbi best
// path unless the filter rejects it.
func (g *Generator) Next(originalKey string, reqType model.RequestType) (*model.Candidate, bool) {
	if g.begin == nil || g.end == nil || !g.lat.HasLattice() {
		return nil, false
	}

	if !g.topChecked {
		cand, r := g.insertTopResult(originalKey, reqType)
		switch r {
		case filter.Good:
			return cand, true
		case filter.Stop:
			return nil, false
		}
	}

	trials := 0
	for g.agenda.Len() > 0 {
		top := heap.Pop(&g.agenda).(*element)
		rnode := top.node

		if trials > maxTrials {
			return nil, false
		}
		trials++

		if rnode.EndPos == g.begin.EndPos {
			var nodes []*lattice.Node
			for e := top.next; e != nil && e.next != nil; e = e.next {
				nodes = append(nodes, e.node)
			}
			if len(nodes) == 0 {
				continue
			}
			cand := g.makeCandidate(top.gx, top.structureGx, top.wGx, nodes)
			switch g.filter.FilterCandidate(originalKey, cand, g.topNodes, nodes, reqType) {
			case filter.Good:
				return cand, true
			case filter.Stop:
				return nil, false
			}
			continue
		}

		g.expand(top)
	}
	return nil, false
}

// expand pushes every valid left neighbour of top.node.
func (g *Generator) expand(top *element) {
	rnode := top.node
	isRightEdge := rnode.BeginPos == g.end.BeginPos
	isLeftEdge := rnode.BeginPos == g.begin.EndPos
	isEdge := isRightEdge || isLeftEdge

	var bestLeft *element
	for lnode := g.lat.EndNodes(rnode.BeginPos); lnode != nil; lnode = g.lat.NextEnd(lnode) {
		// lnode may not straddle the left edge
		if lnode.BeginPos < g.begin.EndPos && g.begin.EndPos < lnode.EndPos {
			continue
		}
		if isLeftEdge {
			if lnode.Cost-g.begin.Cost > costDiff {
				continue
			}
			// the cost of a left edge only depends on lnode.RID
			if lnode.RID == g.begin.RID && lnode != g.begin {
				continue
			}
		}

		br := g.checkBoundary(lnode, rnode, isEdge)
		if br == invalid {
			continue
		}

		trans := g.transitionCost(lnode, rnode)
		var cost, structure, wcost int
		switch {
		case isRightEdge:
			cost = trans + (rnode.Cost - g.end.Cost)
		case isLeftEdge:
			cost = trans + rnode.WCost + (lnode.Cost - g.begin.Cost)
			wcost = rnode.WCost
		default:
			cost = trans + rnode.WCost
			structure = trans
			wcost = trans + rnode.WCost
		}
		if br == validWeakConnected {
			cost += weakConnectedPenalty
			structure += weakConnectedPenalty / 2
			wcost += weakConnectedPenalty / 2
		}

		gx := cost + top.gx
		e := &element{
			node:        lnode,
			next:        top,
			fx:          lnode.Cost + gx,
			gx:          gx,
			structureGx: structure + top.structureGx,
			wGx:         wcost + top.wGx,
		}
		if isLeftEdge {
			// every left edge node yields the same value; keep the best
			if bestLeft == nil || bestLeft.fx > e.fx {
				bestLeft = e
			}
			continue
		}
		heap.Push(&g.agenda, e)
	}
	if bestLeft != nil {
		heap.Push(&g.agenda, bestLeft)
	}
}

func (g *Generator) transitionCost(lnode, rnode *lattice.Node) int {
	if rnode.ConstrainedPrev != lattice.NilNode && lnode.ID != rnode.ConstrainedPrev {
		return invalidPenaltyCost
	}
	return g.conn.TransitionCost(lnode.RID, rnode.LID)
}

func (g *Generator) checkBoundary(lnode, rnode *lattice.Node, isEdge bool) boundaryResult {
	if rnode.Type == lattice.ConstrainedNode || lnode.Type == lattice.ConstrainedNode {
		return valid
	}
	single := g.mode == OnlyEdge
	isBoundary := lnode.Type == lattice.HistoryNode || g.seg.IsBoundary(lnode, rnode, single)

	if g.mode == OnlyMid {
		if !isEdge && isBoundary {
			return invalid
		}
		if isEdge && !isBoundary {
			return validWeakConnected
		}
		return valid
	}
	if isEdge != isBoundary {
		return invalid
	}
	return valid
}

func (g *Generator) insertTopResult(originalKey string, reqType model.RequestType) (*model.Candidate, filter.Result) {
	g.topChecked = true
	if len(g.topNodes) == 0 {
		return nil, filter.Bad
	}
	first := g.topNodes[0]
	totalWCost := 0
	for _, n := range g.topNodes[1:] {
		totalWCost += n.WCost
	}
	last := g.lat.Node(g.end.Prev)

	cost := g.end.Cost - g.begin.Cost - g.end.WCost
	structure := last.Cost - first.Cost - totalWCost
	wcost := last.Cost - first.Cost + first.WCost

	cand := g.makeCandidate(cost, structure, wcost, g.topNodes)
	if reqType == model.Suggestion {
		cand.Attributes |= model.RealtimeConversion
	}
	return cand, g.filter.FilterCandidate(originalKey, cand, g.topNodes, g.topNodes, reqType)
}

func (g *Generator) makeCandidate(cost, structure, wcost int, nodes []*lattice.Node) *model.Candidate {
	c := &model.Candidate{
		LID:           nodes[0].LID,
		RID:           nodes[len(nodes)-1].RID,
		Cost:          cost,
		StructureCost: structure,
		WCost:         wcost,
	}

	functional := false
	for _, n := range nodes {
		if !functional && !g.matcher.IsFunctional(n.LID) {
			c.ContentKey += n.Key
			c.ContentValue += n.Value
		} else {
			functional = true
		}
		c.Key += n.Key
		c.Value += n.Value

		if n.ConstrainedPrev != lattice.NilNode {
			c.Attributes |= model.ContextSensitive
		} else if next := g.lat.Node(n.Next); next != nil && next.ConstrainedPrev == n.ID {
			c.Attributes |= model.ContextSensitive
		}
		if n.Attributes&lattice.SpellingCorrection != 0 {
			c.Attributes |= model.SpellingCorrection
		}
		if n.Attributes&lattice.NoVariantsExpansion != 0 {
			c.Attributes |= model.NoVariantsExpansion
		}
		if n.Attributes&lattice.UserDictionary != 0 {
			c.Attributes |= model.UserDictionary
		}
	}
	if c.ContentKey == "" || c.ContentValue == "" {
		c.ContentKey, c.ContentValue = c.Key, c.Value
	}

	if g.mode == OnlyEdge {
		g.setInnerSegments(c, nodes)
	}
	return c
}

// setInnerSegments records where the single-segment result would have been
// split in multi-segment conversion.
func (g *Generator) setInnerSegments(c *model.Candidate, nodes []*lattice.Node) {
	start := 0
	for i := 1; i <= len(nodes); i++ {
		if i < len(nodes) && !g.seg.IsBoundary(nodes[i-1], nodes[i], false) {
			continue
		}
		var key, value, contentKey, contentValue int
		functional := false
		for _, n := range nodes[start:i] {
			if !functional && !g.matcher.IsFunctional(n.LID) {
				contentKey += len(n.Key)
				contentValue += len(n.Value)
			} else {
				functional = true
			}
			key += len(n.Key)
			value += len(n.Value)
		}
		if contentKey == 0 || contentValue == 0 {
			contentKey, contentValue = key, value
		}
		c.PushBackInnerSegmentBoundary(key, value, contentKey, contentValue)
		start = i
	}
}
