package model

// TokenAttribute marks where a dictionary token came from.
type TokenAttribute uint8

const (
	TokenSpellingCorrection TokenAttribute = 1 << iota
	TokenUserDictionary
	TokenSuffixDictionary
)

// Token is one dictionary entry as delivered to a lookup visitor.
type Token struct {
	Key        string         `json:"key"`
	Value      string         `json:"value"`
	Cost       int            `json:"cost"`
	LID        uint16         `json:"lid"`
	RID        uint16         `json:"rid"`
	Attributes TokenAttribute `json:"attributes,omitempty"`
}

// Morpheme is one analyzed unit of a corpus sentence.
type Morpheme struct {
	Surface  string   `json:"surface"`
	Reading  string   `json:"reading,omitempty"`
	BaseForm string   `json:"base_form,omitempty"`
	POS      string   `json:"pos"`
	Features []string `json:"features,omitempty"`
	Start    int      `json:"start"`
	End      int      `json:"end"`
	Known    bool     `json:"known"`
	// Parts holds the morphemes a merged compound was built from.
	Parts []Morpheme `json:"parts,omitempty"`
}

// LeftPOS is the POS of the first part, or the morpheme's own POS.
func (m Morpheme) LeftPOS() string {
	if len(m.Parts) > 0 {
		return m.Parts[0].POS
	}
	return m.POS
}

// RightPOS is the POS of the last part, or the morpheme's own POS.
func (m Morpheme) RightPOS() string {
	if len(m.Parts) > 0 {
		return m.Parts[len(m.Parts)-1].POS
	}
	return m.POS
}
