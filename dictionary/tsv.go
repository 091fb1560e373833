package dictionary

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"henkan/model"
	"henkan/pos"
	"henkan/script"
)

// DefaultTSVCost is used for entries without an explicit cost column.
const DefaultTSVCost = 5000

// Encoding names accepted by LoadTSV.
const (
	EncodingUTF8     = "utf-8"
	EncodingEUCJP    = "euc-jp"
	EncodingShiftJIS = "shift_jis"
)

func decoderFor(name string) (encoding.Encoding, error) {
	switch strings.ToLower(name) {
	case "", EncodingUTF8, "utf8":
		return nil, nil
	case EncodingEUCJP, "eucjp":
		return japanese.EUCJP, nil
	case EncodingShiftJIS, "sjis", "shift-jis":
		return japanese.ShiftJIS, nil
	}
	return nil, fmt.Errorf("unsupported encoding %q", name)
}

// TSVEntry is one parsed line of a word list.
type TSVEntry struct {
	Reading string
	Surface string
	POS     string
	Cost    int
	// HasCost is false when the line had no cost column.
	HasCost bool
}

// ReadTSV parses reading<TAB>surface<TAB>POS[<TAB>cost] lines. Blank lines and
// lines starting with '#' are skipped. Katakana readings are folded to
// hiragana.
func ReadTSV(r io.Reader, enc string) ([]TSVEntry, error) {
	e, err := decoderFor(enc)
	if err != nil {
		return nil, err
	}
	if e != nil {
		r = transform.NewReader(r, e.NewDecoder())
	}
	var out []TSVEntry
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Split(text, "\t")
		if len(fields) < 3 {
			return nil, fmt.Errorf("line %d: want at least 3 columns, got %d", line, len(fields))
		}
		entry := TSVEntry{
			Reading: script.KatakanaToHiragana(fields[0]),
			Surface: fields[1],
			POS:     fields[2],
		}
		if entry.Reading == "" || entry.Surface == "" {
			return nil, fmt.Errorf("line %d: empty reading or surface", line)
		}
		if len(fields) > 3 && fields[3] != "" {
			c, err := strconv.Atoi(fields[3])
			if err != nil {
				return nil, fmt.Errorf("line %d: bad cost %q: %w", line, fields[3], err)
			}
			entry.Cost = c
			entry.HasCost = true
		}
		out = append(out, entry)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadTSV reads a word list into tokens, registering POS names in table.
func LoadTSV(r io.Reader, enc string, table *pos.Table) ([]model.Token, error) {
	entries, err := ReadTSV(r, enc)
	if err != nil {
		return nil, err
	}
	tokens := make([]model.Token, 0, len(entries))
	for _, e := range entries {
		id := table.ID(e.POS)
		cost := DefaultTSVCost
		if e.HasCost {
			cost = e.Cost
		}
		tokens = append(tokens, model.Token{
			Key:   e.Reading,
			Value: e.Surface,
			Cost:  cost,
			LID:   id,
			RID:   id,
		})
	}
	return tokens, nil
}
