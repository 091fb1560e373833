package lattice

import (
	"fmt"
	"strings"
)

// NodeID indexes a node inside its lattice arena.
type NodeID int32

// NilNode is the absent node.
const NilNode NodeID = -1

// NodeType tags what a node stands for.
type NodeType uint8

const (
	NormalNode NodeType = iota
	HistoryNode
	ConstrainedNode
	BOSNode
	EOSNode
)

func (t NodeType) String() string {
	switch t {
	case NormalNode:
		return "NOR"
	case HistoryNode:
		return "HIS"
	case ConstrainedNode:
		return "CON"
	case BOSNode:
		return "BOS"
	case EOSNode:
		return "EOS"
	}
	return "?"
}

// Attribute is a bit set carried by a node.
type Attribute uint16

const (
	// StartsWithParticle marks a node that may continue the previous
	// history segment instead of opening a new one.
	StartsWithParticle Attribute = 1 << iota
	SpellingCorrection
	UserDictionary
	NoVariantsExpansion
	// EnableCache marks a node that survives ResetNodeCost.
	EnableCache
	// KeyExpanded marks a node found through kana-modifier-insensitive lookup.
	KeyExpanded
)

// Node is a word hypothesis spanning Key in the lattice.
type Node struct {
	ID    NodeID
	Key   string
	Value string

	BeginPos int
	EndPos   int

	LID uint16
	RID uint16

	WCost    int
	RawWCost int
	Cost     int

	Type       NodeType
	Attributes Attribute

	Prev            NodeID
	Next            NodeID
	ConstrainedPrev NodeID

	bnext NodeID
	enext NodeID
}

func (n *Node) reset(id NodeID) {
	*n = Node{
		ID:              id,
		Prev:            NilNode,
		Next:            NilNode,
		ConstrainedPrev: NilNode,
		bnext:           NilNode,
		enext:           NilNode,
	}
}

// HasAttribute reports whether every bit of a is set.
func (n *Node) HasAttribute(a Attribute) bool {
	return n.Attributes&a == a
}

// String renders the node the way DebugString does.
func (n *Node) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[lid:%d]%q[wcost:%d][cost:%d][rid:%d]", n.LID, n.Value, n.WCost, n.Cost, n.RID)
	return b.String()
}
