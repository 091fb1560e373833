// Package logger writes JSON debug dumps of conversions.
package logger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"henkan/lattice"
)

// InitLogs creates path if needed and clears the .json dumps of a
// previous run.
func InitLogs(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return err
	}
	files, err := os.ReadDir(path)
	if err != nil {
		return err
	}
	for _, f := range files {
		if !f.IsDir() && strings.HasSuffix(f.Name(), ".json") {
			_ = os.Remove(filepath.Join(path, f.Name()))
		}
	}
	return nil
}

// LogJSON writes data as indented JSON to path/id.json. The file is
// replaced atomically, so readers never see a partial dump.
func LogJSON(path, id string, data interface{}) error {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(path, id+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(path, fmt.Sprintf("%s.json", id)))
}

// NodeDump is the JSON view of a lattice node.
type NodeDump struct {
	ID              int    `json:"id"`
	Type            string `json:"type"`
	Key             string `json:"key"`
	Value           string `json:"value"`
	Begin           int    `json:"begin"`
	End             int    `json:"end"`
	LID             uint16 `json:"lid"`
	RID             uint16 `json:"rid"`
	WCost           int    `json:"wcost"`
	Cost            int    `json:"cost"`
	Prev            int    `json:"prev"`
	OnBest          bool   `json:"on_best,omitempty"`
	ConstrainedPrev int    `json:"constrained_prev,omitempty"`
}

// LatticeDump lists every node reachable from the begin lists, grouped by
// begin position, with the best path rendered on its own.
type LatticeDump struct {
	Key           string             `json:"key"`
	HistoryEndPos int                `json:"history_end_pos"`
	NodeCount     int                `json:"node_count"`
	Positions     map[int][]NodeDump `json:"positions"`
	BestPath      string             `json:"best_path"`
}

// DumpLattice snapshots l. It must run after Viterbi for costs and the
// best path to be meaningful.
func DumpLattice(l *lattice.Lattice) LatticeDump {
	d := LatticeDump{
		Key:           l.Key(),
		HistoryEndPos: l.HistoryEndPos(),
		NodeCount:     l.NodeCount(),
		Positions:     make(map[int][]NodeDump),
	}
	if !l.HasLattice() {
		return d
	}
	best := make(map[lattice.NodeID]bool)
	for n := l.EOS(); n != nil; n = l.Node(n.Prev) {
		best[n.ID] = true
	}
	for pos := 0; pos <= len(l.Key()); pos++ {
		for _, n := range l.BeginNodeList(pos) {
			nd := NodeDump{
				ID:     int(n.ID),
				Type:   n.Type.String(),
				Key:    n.Key,
				Value:  n.Value,
				Begin:  n.BeginPos,
				End:    n.EndPos,
				LID:    n.LID,
				RID:    n.RID,
				WCost:  n.WCost,
				Cost:   n.Cost,
				Prev:   int(n.Prev),
				OnBest: best[n.ID],
			}
			if n.ConstrainedPrev != lattice.NilNode {
				nd.ConstrainedPrev = int(n.ConstrainedPrev)
			}
			d.Positions[pos] = append(d.Positions[pos], nd)
		}
	}
	d.BestPath = l.PathDebugString(l.EOS())
	return d
}
