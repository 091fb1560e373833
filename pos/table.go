// Package pos maps part-of-speech feature strings to the connection ids
// used by the connector, and answers class questions about those ids.
package pos

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Fixed ids present in every table.
const (
	BOSEOSID    uint16 = 0
	NumberID    uint16 = 1
	UnknownID   uint16 = 2
	LastNameID  uint16 = 3
	FirstNameID uint16 = 4
	SymbolID    uint16 = 5
	SuffixID    uint16 = 6
	NounID      uint16 = 7
)

var seed = []string{
	"BOS/EOS,*,*,*,*,*",
	"名詞,数,*,*,*,*",
	"名詞,サ変接続,*,*,*,*",
	"名詞,固有名詞,人名,姓,*,*",
	"名詞,固有名詞,人名,名,*,*",
	"記号,一般,*,*,*,*",
	"名詞,接尾,一般,*,*,*",
	"名詞,一般,*,*,*,*",
}

// Table is the POS inventory of one dictionary.
type Table struct {
	mu    sync.RWMutex
	names []string
	ids   map[string]uint16
}

// NewTable returns a table holding the fixed ids.
func NewTable() *Table {
	t := &Table{ids: make(map[string]uint16)}
	for _, name := range seed {
		t.add(name)
	}
	return t
}

func (t *Table) add(name string) uint16 {
	id := uint16(len(t.names))
	t.names = append(t.names, name)
	t.ids[name] = id
	return id
}

// ID returns the id of name, adding it when missing.
func (t *Table) ID(name string) uint16 {
	t.mu.RLock()
	id, ok := t.ids[name]
	t.mu.RUnlock()
	if ok {
		return id
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.ids[name]; ok {
		return id
	}
	return t.add(name)
}

// Lookup returns the id of name without adding it.
func (t *Table) Lookup(name string) (uint16, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.ids[name]
	return id, ok
}

// Name returns the feature string of id.
func (t *Table) Name(id uint16) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if int(id) < len(t.names) {
		return t.names[id]
	}
	return ""
}

// Len is the number of ids.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.names)
}

// Names returns a copy of all names in id order.
func (t *Table) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]string(nil), t.names...)
}

// WriteTo writes one name per line.
func (t *Table) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, name := range t.Names() {
		n, err := io.WriteString(w, name+"\n")
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// ReadTable parses the output of WriteTo. The fixed ids must come first.
func ReadTable(r io.Reader) (*Table, error) {
	t := &Table{ids: make(map[string]uint16)}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		t.add(line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(t.names) < len(seed) {
		return nil, fmt.Errorf("pos table has %d entries, want at least %d", len(t.names), len(seed))
	}
	for i, name := range seed {
		if t.names[i] != name {
			return nil, fmt.Errorf("pos table entry %d is %q, want %q", i, t.names[i], name)
		}
	}
	return t, nil
}

// lexicalized first fields keep the base form in the name
var lexicalized = map[string]bool{"助詞": true, "助動詞": true}

// FeatureName builds the table name for analyzer features: the first six
// fields padded with "*", plus the base form for particles and auxiliaries.
func FeatureName(features []string, baseForm string) string {
	fields := make([]string, 6)
	for i := range fields {
		fields[i] = "*"
		if i < len(features) && features[i] != "" {
			fields[i] = features[i]
		}
	}
	name := strings.Join(fields, ",")
	if lexicalized[fields[0]] && baseForm != "" && baseForm != "*" {
		name += "," + baseForm
	}
	return name
}
