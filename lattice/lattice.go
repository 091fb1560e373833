// Package lattice holds the word graph built over a reading. Nodes live in
// an arena owned by the lattice and refer to each other by NodeID.
package lattice

import (
	"fmt"
	"strings"
)

const chunkBits = 8
const chunkSize = 1 << chunkBits

// MaxNodesSize is the node count above which UpdateKey drops the cached
// lattice instead of extending it.
const MaxNodesSize = 8192

// Lattice is an arena of nodes indexed by byte position of its key.
type Lattice struct {
	key        string
	chunks     [][]Node
	count      int
	beginNodes []NodeID
	endNodes   []NodeID
	cacheInfo  []int

	historyEndPos int

	displayBegin int
	displayEnd   int
	displayValue string
}

// New returns an empty lattice. HasLattice is false until SetKey.
func New() *Lattice {
	return &Lattice{}
}

// NewNode allocates a zeroed node. The pointer stays valid until the next
// SetKey or Clear.
func (l *Lattice) NewNode() *Node {
	c, i := l.count>>chunkBits, l.count&(chunkSize-1)
	if c == len(l.chunks) {
		l.chunks = append(l.chunks, make([]Node, chunkSize))
	}
	n := &l.chunks[c][i]
	n.reset(NodeID(l.count))
	l.count++
	return n
}

// Node resolves id, returning nil for NilNode.
func (l *Lattice) Node(id NodeID) *Node {
	if id < 0 || int(id) >= l.count {
		return nil
	}
	return &l.chunks[id>>chunkBits][id&(chunkSize-1)]
}

// NodeCount is the number of nodes allocated since the last SetKey.
func (l *Lattice) NodeCount() int {
	return l.count
}

// Key returns history key followed by conversion key.
func (l *Lattice) Key() string {
	return l.key
}

// HasLattice reports whether SetKey has been called since the last Clear.
func (l *Lattice) HasLattice() bool {
	return l.beginNodes != nil
}

// Clear drops the key and every node.
func (l *Lattice) Clear() {
	l.key = ""
	l.beginNodes = nil
	l.endNodes = nil
	l.cacheInfo = nil
	l.count = 0
	l.historyEndPos = 0
}

// SetKey resets the arena and primes BOS and EOS for key.
func (l *Lattice) SetKey(key string) {
	l.Clear()
	l.key = key
	l.beginNodes = newIDs(len(key) + 4)
	l.endNodes = newIDs(len(key) + 4)
	l.cacheInfo = make([]int, len(key)+4)
	l.endNodes[0] = l.newBOS().ID
	l.beginNodes[len(key)] = l.newEOS(len(key)).ID
}

func newIDs(n int) []NodeID {
	ids := make([]NodeID, n)
	for i := range ids {
		ids[i] = NilNode
	}
	return ids
}

func (l *Lattice) newBOS() *Node {
	n := l.NewNode()
	n.Type = BOSNode
	n.Key, n.Value = "BOS", "BOS"
	return n
}

func (l *Lattice) newEOS(pos int) *Node {
	n := l.NewNode()
	n.Type = EOSNode
	n.Key, n.Value = "EOS", "EOS"
	n.BeginPos, n.EndPos = pos, pos
	return n
}

// BOS returns the begin-of-sentence sentinel.
func (l *Lattice) BOS() *Node {
	return l.Node(l.endNodes[0])
}

// EOS returns the end-of-sentence sentinel.
func (l *Lattice) EOS() *Node {
	return l.Node(l.beginNodes[len(l.key)])
}

func (l *Lattice) checkPos(pos int) {
	if pos < 0 || pos > len(l.key) {
		panic(fmt.Sprintf("lattice: position %d out of range [0, %d]", pos, len(l.key)))
	}
}

// BeginNodes returns the head of the list of nodes starting at pos.
func (l *Lattice) BeginNodes(pos int) *Node {
	l.checkPos(pos)
	return l.Node(l.beginNodes[pos])
}

// EndNodes returns the head of the list of nodes ending at pos.
func (l *Lattice) EndNodes(pos int) *Node {
	l.checkPos(pos)
	return l.Node(l.endNodes[pos])
}

// NextBegin follows the begin list.
func (l *Lattice) NextBegin(n *Node) *Node {
	return l.Node(n.bnext)
}

// NextEnd follows the end list.
func (l *Lattice) NextEnd(n *Node) *Node {
	return l.Node(n.enext)
}

// BeginNodeList snapshots the nodes starting at pos.
func (l *Lattice) BeginNodeList(pos int) []*Node {
	var out []*Node
	for n := l.BeginNodes(pos); n != nil; n = l.NextBegin(n) {
		out = append(out, n)
	}
	return out
}

// EndNodeList snapshots the nodes ending at pos.
func (l *Lattice) EndNodeList(pos int) []*Node {
	var out []*Node
	for n := l.EndNodes(pos); n != nil; n = l.NextEnd(n) {
		out = append(out, n)
	}
	return out
}

// Insert places nodes at pos. They are prepended to the begin list of pos
// in the given order and each is threaded into the end list of its end
// position. Keys running past the end of the lattice are clamped.
func (l *Lattice) Insert(pos int, nodes ...*Node) {
	l.checkPos(pos)
	if len(nodes) == 0 {
		return
	}
	for _, n := range nodes {
		end := pos + len(n.Key)
		if end > len(l.key) {
			end = len(l.key)
		}
		n.BeginPos = pos
		n.EndPos = end
		n.Prev = NilNode
		n.Next = NilNode
		n.Cost = 0
		n.enext = l.endNodes[end]
		l.endNodes[end] = n.ID
	}
	for i := 0; i < len(nodes)-1; i++ {
		nodes[i].bnext = nodes[i+1].ID
	}
	nodes[len(nodes)-1].bnext = l.beginNodes[pos]
	l.beginNodes[pos] = nodes[0].ID
}

// HistoryEndPos is the key offset where the history part ends.
func (l *Lattice) HistoryEndPos() int {
	return l.historyEndPos
}

// SetHistoryEndPos records where the history part ends.
func (l *Lattice) SetHistoryEndPos(pos int) {
	l.historyEndPos = pos
}

// CacheInfo is the key length already looked up from pos.
func (l *Lattice) CacheInfo(pos int) int {
	l.checkPos(pos)
	return l.cacheInfo[pos]
}

// SetCacheInfo records that keys up to n bytes were looked up from pos.
func (l *Lattice) SetCacheInfo(pos, n int) {
	l.checkPos(pos)
	l.cacheInfo[pos] = n
}

// UpdateKey moves the lattice to newKey, keeping the nodes of the common
// prefix when it is long enough and the arena is not overgrown.
func (l *Lattice) UpdateKey(newKey string) {
	old := l.key
	common := commonPrefixLen(newKey, old)
	if common <= len(old)/2 || l.count > MaxNodesSize {
		l.SetKey(newKey)
		return
	}
	l.ShrinkKey(common)
	l.AddSuffix(newKey[common:])
}

func commonPrefixLen(a, b string) int {
	n := 0
	for _, r := range a {
		if !strings.HasPrefix(b[n:], string(r)) {
			break
		}
		n += len(string(r))
	}
	return n
}

// AddSuffix extends the key without touching existing nodes.
func (l *Lattice) AddSuffix(suffix string) {
	if suffix == "" {
		return
	}
	oldSize := len(l.key)
	newSize := oldSize + len(suffix)

	begin := newIDs(newSize + 4)
	copy(begin, l.beginNodes[:oldSize])
	end := newIDs(newSize + 4)
	copy(end, l.endNodes[:oldSize+1])
	cache := make([]int, newSize+4)
	copy(cache, l.cacheInfo[:oldSize+1])

	l.beginNodes, l.endNodes, l.cacheInfo = begin, end, cache
	l.key += suffix
	l.beginNodes[newSize] = l.newEOS(newSize).ID
}

// ShrinkKey truncates the key to n bytes, unlinking every node that ends
// past the new end.
func (l *Lattice) ShrinkKey(n int) {
	oldLen := len(l.key)
	if n > oldLen {
		panic(fmt.Sprintf("lattice: shrink to %d beyond key length %d", n, oldLen))
	}
	if n == oldLen {
		return
	}
	for i := 0; i < n; i++ {
		prev := NilNode
		for id := l.beginNodes[i]; id != NilNode; {
			node := l.Node(id)
			next := node.bnext
			if node.EndPos > n {
				if prev == NilNode {
					l.beginNodes[i] = next
				} else {
					l.Node(prev).bnext = next
				}
			} else {
				prev = id
			}
			id = next
		}
	}
	for i := n; i <= oldLen; i++ {
		l.beginNodes[i] = NilNode
	}
	for i := n + 1; i <= oldLen; i++ {
		l.endNodes[i] = NilNode
	}
	for i := 0; i < n; i++ {
		if l.cacheInfo[i] > n-i {
			l.cacheInfo[i] = n - i
		}
	}
	for i := n; i < len(l.cacheInfo); i++ {
		l.cacheInfo[i] = 0
	}
	l.key = l.key[:n]
	l.beginNodes[n] = l.newEOS(n).ID
}

// ResetNodeCost prepares a reused lattice for a new search: cached nodes
// get their raw word cost back, every other node is unlinked.
func (l *Lattice) ResetNodeCost() {
	keep := func(n *Node) bool {
		if n.Type == BOSNode || n.Type == EOSNode {
			return true
		}
		if n.Attributes&EnableCache == 0 {
			return false
		}
		n.WCost = n.RawWCost
		n.Prev, n.Next, n.Cost = NilNode, NilNode, 0
		return true
	}
	for i := 0; i <= len(l.key); i++ {
		prev := NilNode
		for id := l.beginNodes[i]; id != NilNode; {
			node := l.Node(id)
			next := node.bnext
			if keep(node) {
				prev = id
			} else if prev == NilNode {
				l.beginNodes[i] = next
			} else {
				l.Node(prev).bnext = next
			}
			id = next
		}
		prev = NilNode
		for id := l.endNodes[i]; id != NilNode; {
			node := l.Node(id)
			next := node.enext
			if keep(node) {
				prev = id
			} else if prev == NilNode {
				l.endNodes[i] = next
			} else {
				l.Node(prev).enext = next
			}
			id = next
		}
	}
	bos := l.BOS()
	bos.Prev, bos.Next, bos.Cost = NilNode, NilNode, 0
	eos := l.EOS()
	eos.Prev, eos.Next, eos.Cost = NilNode, NilNode, 0
}
