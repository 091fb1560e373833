package pos

import "strings"

var groupOrder = []string{
	"BOS/EOS",
	"名詞,一般", "名詞,固有名詞", "名詞,数", "名詞,サ変接続", "名詞,形容動詞語幹", "名詞,接尾", "名詞,非自立", "名詞,代名詞", "名詞",
	"動詞", "形容詞", "副詞", "連体詞", "接続詞", "感動詞", "フィラー",
	"助詞", "助動詞", "接頭詞", "記号",
}

// Group maps a left id to a coarse group. Nodes of the same group are kept
// together when the user fixed segment boundaries by hand.
type Group struct {
	groups []uint8
}

// NewGroup assigns groups to every id of t.
func NewGroup(t *Table) *Group {
	names := t.Names()
	g := &Group{groups: make([]uint8, len(names))}
	for id, name := range names {
		g.groups[id] = groupOf(name)
	}
	return g
}

func groupOf(name string) uint8 {
	for i, prefix := range groupOrder {
		if strings.HasPrefix(name, prefix+",") {
			return uint8(i + 1)
		}
	}
	return uint8(len(groupOrder) + 1)
}

// PosGroup returns the group of lid.
func (g *Group) PosGroup(lid uint16) uint8 {
	if int(lid) < len(g.groups) {
		return g.groups[lid]
	}
	return 0
}
