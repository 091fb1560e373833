// Package kanji reads single-kanji readings from KANJIDIC2 so the dictionary
// builder can offer every kanji under each of its readings.
package kanji

import (
	"encoding/xml"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
	"unicode/utf8"

	"henkan/model"
	"henkan/script"
)

// SingleKanjiCost is the word cost of a kanji offered under one of its
// readings. It keeps single kanji behind corpus words.
const SingleKanjiCost = 8000

type character struct {
	Literal        string `xml:"literal"`
	ReadingMeaning struct {
		RMGroup []struct {
			Reading []struct {
				Value string `xml:",chardata"`
				Type  string `xml:"r_type,attr"`
			} `xml:"reading"`
		} `xml:"rmgroup"`
	} `xml:"reading_meaning"`
}

// Readings maps a kanji to its normalized on and kun readings.
type Readings map[rune][]string

// Load decodes <character> elements from a KANJIDIC2 document. Characters
// that fail to decode are logged and skipped.
func Load(r io.Reader) (Readings, error) {
	out := make(Readings)
	d := xml.NewDecoder(r)
	// kanjidic2.xml declares entities in its DTD
	d.Strict = false
	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("kanjidic2: %w", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "character" {
			continue
		}
		var c character
		if err := d.DecodeElement(&c, &se); err != nil {
			log.Printf("[kanji] skipping character: %v", err)
			continue
		}
		if utf8.RuneCountInString(c.Literal) != 1 {
			continue
		}
		k, _ := utf8.DecodeRuneInString(c.Literal)
		seen := make(map[string]bool)
		for _, g := range c.ReadingMeaning.RMGroup {
			for _, rd := range g.Reading {
				if rd.Type != "ja_on" && rd.Type != "ja_kun" {
					continue
				}
				n := NormalizeReading(rd.Value)
				if n == "" || seen[n] {
					continue
				}
				seen[n] = true
				out[k] = append(out[k], n)
			}
		}
	}
	log.Printf("[kanji] loaded readings for %d kanji", len(out))
	return out, nil
}

// NormalizeReading turns a KANJIDIC2 reading into the hiragana a user types
// for the kanji alone: okurigana after '.' and affix markers '-' are dropped.
func NormalizeReading(s string) string {
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	s = strings.Trim(s, "-")
	s = script.KatakanaToHiragana(s)
	if !script.IsHiragana(s) {
		return ""
	}
	return s
}

// Get returns the readings of k.
func (r Readings) Get(k rune) []string {
	return r[k]
}

// Count is the number of kanji with at least one reading.
func (r Readings) Count() int {
	return len(r)
}

// Tokens emits one entry per kanji and reading with POS id lid, sorted by
// key then value.
func (r Readings) Tokens(lid uint16) []model.Token {
	var out []model.Token
	for k, readings := range r {
		for _, rd := range readings {
			out = append(out, model.Token{
				Key:   rd,
				Value: string(k),
				Cost:  SingleKanjiCost,
				LID:   lid,
				RID:   lid,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Key != out[j].Key {
			return out[i].Key < out[j].Key
		}
		return out[i].Value < out[j].Value
	})
	return out
}
