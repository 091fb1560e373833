// Package script classifies characters by writing system and converts
// between kana forms.
package script

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/width"
)

// Type is the writing system of a character or string.
type Type int

const (
	Unknown Type = iota
	Kanji
	Hiragana
	Katakana
	Number
	Alphabet
)

func (t Type) String() string {
	switch t {
	case Kanji:
		return "kanji"
	case Hiragana:
		return "hiragana"
	case Katakana:
		return "katakana"
	case Number:
		return "number"
	case Alphabet:
		return "alphabet"
	}
	return "unknown"
}

// Form is the display width class of a character.
type Form int

const (
	UnknownForm Form = iota
	HalfWidth
	FullWidth
)

const prolongedSoundMark = 'ー'

// TypeOf returns the script type of a single rune.
func TypeOf(r rune) Type {
	switch {
	case r >= '0' && r <= '9', r >= '０' && r <= '９':
		return Number
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= 'ａ' && r <= 'ｚ', r >= 'Ａ' && r <= 'Ｚ':
		return Alphabet
	case r >= 0x3041 && r <= 0x309F:
		return Hiragana
	case r >= 0x30A1 && r <= 0x30FF, r >= 0x31F0 && r <= 0x31FF, r >= 0xFF65 && r <= 0xFF9F:
		return Katakana
	case r >= 0x4E00 && r <= 0x9FFF, r >= 0x3400 && r <= 0x4DBF, r == '々', r == '〆':
		return Kanji
	}
	return Unknown
}

// TypeOfString returns the script shared by every rune of s, or Unknown.
// The prolonged sound mark is accepted inside hiragana and katakana runs.
func TypeOfString(s string) Type {
	result := Unknown
	for i, r := range s {
		t := TypeOf(r)
		if r == prolongedSoundMark && i > 0 && (result == Hiragana || result == Katakana) {
			continue
		}
		if r == prolongedSoundMark {
			t = Katakana
		}
		if i == 0 {
			result = t
			continue
		}
		if t != result {
			return Unknown
		}
	}
	return result
}

// FormOf returns whether r is rendered half or full width.
func FormOf(r rune) Form {
	switch width.LookupRune(r).Kind() {
	case width.EastAsianFullwidth, width.EastAsianWide:
		return FullWidth
	case width.EastAsianHalfwidth, width.EastAsianNarrow, width.Neutral:
		return HalfWidth
	case width.EastAsianAmbiguous:
		if r < 0x80 {
			return HalfWidth
		}
		return FullWidth
	}
	return UnknownForm
}

// FormOfString returns the form shared by every rune of s, or UnknownForm.
func FormOfString(s string) Form {
	result := UnknownForm
	for i, r := range s {
		f := FormOf(r)
		if i == 0 {
			result = f
		} else if f != result {
			return UnknownForm
		}
	}
	return result
}

// Len returns the number of characters in s.
func Len(s string) int {
	return utf8.RuneCountInString(s)
}

// IsHiragana reports whether every rune of s is hiragana.
func IsHiragana(s string) bool {
	return s != "" && TypeOfString(s) == Hiragana
}

// IsKatakana reports whether every rune of s is katakana.
func IsKatakana(s string) bool {
	return s != "" && TypeOfString(s) == Katakana
}

// ContainsType reports whether s has at least one rune of type t.
func ContainsType(s string, t Type) bool {
	for _, r := range s {
		if TypeOf(r) == t {
			return true
		}
	}
	return false
}

// HiraganaToKatakana converts hiragana to full-width katakana, leaving
// everything else untouched.
func HiraganaToKatakana(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= 0x3041 && r <= 0x3096 || r == 0x309D || r == 0x309E {
			r += 0x60
		}
		b.WriteRune(r)
	}
	return b.String()
}

// KatakanaToHiragana converts full-width katakana to hiragana.
func KatakanaToHiragana(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		if r >= 0x30A1 && r <= 0x30F6 {
			runes[i] = r - 0x60
		}
	}
	return string(runes)
}

// FullWidthASCIIToHalfWidth folds full-width ASCII variants (and the
// ideographic space) to their ASCII counterparts.
func FullWidthASCIIToHalfWidth(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		p := width.LookupRune(r)
		if p.Kind() == width.EastAsianFullwidth {
			if n := p.Narrow(); n != 0 && n < utf8.RuneSelf {
				r = n
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

// IsEnglishTransliteration reports whether value consists only of ASCII
// letters, spaces, '!', '\'' and '-'.
func IsEnglishTransliteration(value string) bool {
	for i := 0; i < len(value); i++ {
		c := value[i]
		switch {
		case c == ' ', c == '!', c == '\'', c == '-':
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z':
		default:
			return false
		}
	}
	return true
}

// IsArabicDigit reports whether c is an ASCII digit.
func IsArabicDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// IsWhitespace reports whether the whole string is ASCII or ideographic
// whitespace.
func IsWhitespace(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r', '　':
		default:
			return false
		}
	}
	return true
}
