package lattice

import (
	"fmt"
	"strings"
)

// SetDebugDisplayNode asks DebugString to also explain why paths through
// the node (begin, end, value) lost against the best path.
func (l *Lattice) SetDebugDisplayNode(begin, end int, value string) {
	l.displayBegin, l.displayEnd, l.displayValue = begin, end, value
}

// ResetDebugDisplayNode clears SetDebugDisplayNode.
func (l *Lattice) ResetDebugDisplayNode() {
	l.displayValue = ""
}

func (l *Lattice) nodeDebugString(n *Node) string {
	con := 0
	if p := l.Node(n.Prev); p != nil {
		con = n.Cost - p.Cost - n.WCost
	}
	return fmt.Sprintf("[con:%d]%s", con, n.String())
}

// PathDebugString renders the best path ending at n, BOS excluded.
func (l *Lattice) PathDebugString(n *Node) string {
	var nodes []*Node
	for ; n != nil && n.Type != BOSNode; n = l.Node(n.Prev) {
		nodes = append(nodes, n)
	}
	var b strings.Builder
	for i := len(nodes) - 1; i >= 0; i-- {
		b.WriteString(l.nodeDebugString(nodes[i]))
	}
	return b.String()
}

func (l *Lattice) pathContains(n *Node, begin, end int, value string) bool {
	for ; n != nil; n = l.Node(n.Prev) {
		if n.BeginPos == begin && n.EndPos == end && n.Value == value {
			return true
		}
	}
	return false
}

// DebugString renders the best path and, when a display node is set, the
// competing paths containing it.
func (l *Lattice) DebugString() string {
	if !l.HasLattice() {
		return ""
	}
	var b strings.Builder
	eos := l.EOS()
	fmt.Fprintf(&b, "Best path: %s\n", l.PathDebugString(eos))
	if l.displayValue == "" {
		return b.String()
	}
	for best := eos; best != nil; best = l.Node(best.Prev) {
		if best.BeginPos < l.displayEnd {
			break
		}
		for p := l.EndNodes(best.BeginPos); p != nil; p = l.NextEnd(p) {
			if !l.pathContains(p, l.displayBegin, l.displayEnd, l.displayValue) {
				continue
			}
			fmt.Fprintf(&b, "The path %s ( + connection cost + wcost: %d)\nwas defeated by the path\n%s connecting to the node %s\n",
				l.PathDebugString(p), best.WCost, l.PathDebugString(l.Node(best.Prev)), l.nodeDebugString(best))
		}
	}
	return b.String()
}
