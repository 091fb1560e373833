// Package keycorrector rewrites common romaji typing mistakes in a
// hiragana reading and keeps byte alignment between both forms.
package keycorrector

import (
	"strings"
	"unicode/utf8"

	"henkan/script"
)

// InputMode is how the reading was typed.
type InputMode int

const (
	Roman InputMode = iota
	Kana
)

// InvalidPos marks a position with no counterpart in the other key.
const InvalidPos = -1

const maxSize = 128

const correctedCostPenalty = 3000

// KeyCorrector holds the corrected form of one key.
type KeyCorrector struct {
	available    bool
	mode         InputMode
	originalKey  string
	correctedKey string
	alignment    []int
	revAlignment []int
}

// New corrects key. The first historySize bytes are copied unchanged.
func New(key string, mode InputMode, historySize int) *KeyCorrector {
	kc := &KeyCorrector{mode: mode}
	kc.correct(key, historySize)
	return kc
}

type rewriter func(keyPos int, s string, out *strings.Builder) int

var rewriters = []rewriter{
	rewriteDoubleNN,
	rewriteNN,
	rewriteYu,
	rewriteNI,
	rewriteSmallTsu,
	rewriteM,
}

func (kc *KeyCorrector) correct(key string, historySize int) {
	if kc.mode == Kana || key == "" || len(key) >= maxSize {
		return
	}
	var out strings.Builder
	pos := 0
	for keyPos := 0; pos < len(key); keyPos++ {
		orgLen := out.Len()
		consumed := 0
		if pos >= historySize {
			for _, rw := range rewriters {
				if consumed = rw(keyPos, key[pos:], &out); consumed > 0 {
					break
				}
			}
		}
		if consumed == 0 {
			r, n := utf8.DecodeRuneInString(key[pos:])
			out.WriteRune(r)
			consumed = n
		}
		correctedLen := out.Len() - orgLen
		if consumed == correctedLen {
			for i := 0; i < consumed; i++ {
				kc.alignment = append(kc.alignment, orgLen+i)
				kc.revAlignment = append(kc.revAlignment, pos+i)
			}
		} else {
			// only the first byte of a rewritten chunk is aligned
			kc.alignment = append(kc.alignment, orgLen)
			for i := 1; i < consumed; i++ {
				kc.alignment = append(kc.alignment, InvalidPos)
			}
			kc.revAlignment = append(kc.revAlignment, pos)
			for i := 1; i < correctedLen; i++ {
				kc.revAlignment = append(kc.revAlignment, InvalidPos)
			}
		}
		pos += consumed
	}
	kc.originalKey = key
	kc.correctedKey = out.String()
	kc.available = true
}

// IsAvailable reports whether the key could be corrected at all.
func (kc *KeyCorrector) IsAvailable() bool {
	return kc.available
}

// Mode returns the input mode the corrector was built with.
func (kc *KeyCorrector) Mode() InputMode {
	return kc.mode
}

func (kc *KeyCorrector) OriginalKey() string {
	return kc.originalKey
}

func (kc *KeyCorrector) CorrectedKey() string {
	return kc.correctedKey
}

// CorrectedPosition maps a byte offset of the original key.
func (kc *KeyCorrector) CorrectedPosition(pos int) int {
	if pos >= 0 && pos < len(kc.alignment) {
		return kc.alignment[pos]
	}
	return InvalidPos
}

// OriginalPosition maps a byte offset of the corrected key.
func (kc *KeyCorrector) OriginalPosition(pos int) int {
	if pos >= 0 && pos < len(kc.revAlignment) {
		return kc.revAlignment[pos]
	}
	return InvalidPos
}

// CorrectedPrefix returns the corrected key from the counterpart of the
// original offset pos. It reports false when that suffix is unchanged.
func (kc *KeyCorrector) CorrectedPrefix(pos int) (string, bool) {
	if !kc.available || kc.mode == Kana {
		return "", false
	}
	cpos := kc.CorrectedPosition(pos)
	if cpos == InvalidPos {
		return "", false
	}
	corrected := kc.correctedKey[cpos:]
	if corrected == kc.originalKey[pos:] {
		return "", false
	}
	return corrected, true
}

// OriginalOffset returns how many bytes of the original key, from pos,
// correspond to the first newKeyOffset bytes of the corrected prefix.
func (kc *KeyCorrector) OriginalOffset(pos, newKeyOffset int) int {
	if !kc.available || kc.mode == Kana {
		return InvalidPos
	}
	cpos := kc.CorrectedPosition(pos)
	if cpos == InvalidPos {
		return InvalidPos
	}
	if cpos+newKeyOffset == len(kc.revAlignment) {
		return len(kc.alignment) - kc.OriginalPosition(cpos)
	}
	pos2 := kc.OriginalPosition(cpos + newKeyOffset)
	if pos2 == InvalidPos || pos2 < pos {
		return InvalidPos
	}
	return pos2 - pos
}

// CostPenalty is added to the word cost of nodes found with a corrected key.
// Keys that themselves contain a doubled ん or っ are certain typos and get
// no penalty.
func CostPenalty(key string) int {
	if strings.Contains(key, "んん") || strings.Contains(key, "っっ") {
		return 0
	}
	return correctedCostPenalty
}

func isHiraganaRune(r rune) bool {
	return script.TypeOf(r) == script.Hiragana
}

// rewriteNN: "ん[あいうえお]" => "ん[なにぬねの]"
func rewriteNN(keyPos int, s string, out *strings.Builder) int {
	if keyPos == 0 {
		return 0
	}
	r, n := utf8.DecodeRuneInString(s)
	if r != 'ん' || n >= len(s) {
		return 0
	}
	next, n2 := utf8.DecodeRuneInString(s[n:])
	var repl rune
	switch next {
	case 'あ':
		repl = 'な'
	case 'い':
		repl = 'に'
	case 'う':
		repl = 'ぬ'
	case 'え':
		repl = 'ね'
	case 'お':
		repl = 'の'
	default:
		return 0
	}
	out.WriteRune('ん')
	out.WriteRune(repl)
	return n + n2
}

// rewriteDoubleNN: "xんんy" => "xんy", or "xんん[あいうえお]" => "xん[なにぬねの]"
// through rewriteNN on the second ん.
func rewriteDoubleNN(keyPos int, s string, out *strings.Builder) int {
	first, firstLen := utf8.DecodeRuneInString(s)
	if first == 'ん' || !isHiraganaRune(first) {
		return 0
	}
	consumed := firstLen
	for i := 0; i < 2; i++ {
		if consumed >= len(s) {
			return 0
		}
		r, n := utf8.DecodeRuneInString(s[consumed:])
		if r != 'ん' {
			return 0
		}
		consumed += n
	}
	if consumed >= len(s) {
		return 0
	}
	next, _ := utf8.DecodeRuneInString(s[consumed:])
	switch next {
	case 'ん':
		return 0
	case 'あ', 'い', 'う', 'え', 'お':
		out.WriteRune(first)
		return firstLen + len("ん")
	}
	out.WriteRune(first)
	out.WriteRune('ん')
	return consumed
}

// rewriteNI: "に[ゃゅょ]" => "ん[やゆよ]"
func rewriteNI(keyPos int, s string, out *strings.Builder) int {
	r, n := utf8.DecodeRuneInString(s)
	if r != 'に' || n >= len(s) {
		return 0
	}
	next, n2 := utf8.DecodeRuneInString(s[n:])
	var repl rune
	switch next {
	case 'ゃ':
		repl = 'や'
	case 'ゅ':
		repl = 'ゆ'
	case 'ょ':
		repl = 'よ'
	default:
		return 0
	}
	out.WriteRune('ん')
	out.WriteRune(repl)
	return n + n2
}

// rewriteM: "m[ばぱびぴぶぷべぺぼぽ]" => "ん[ばぱびぴぶぷべぺぼぽ]"
func rewriteM(keyPos int, s string, out *strings.Builder) int {
	if keyPos == 0 {
		return 0
	}
	r, n := utf8.DecodeRuneInString(s)
	if r != 'm' && r != 'ｍ' || n >= len(s) {
		return 0
	}
	next, n2 := utf8.DecodeRuneInString(s[n:])
	// は..ぽ without はひふへほ
	if next < 'は' || next > 'ぽ' || next%3 == 0 {
		return 0
	}
	out.WriteRune('ん')
	out.WriteRune(next)
	return n + n2
}

// rewriteSmallTsu: "xっっy" => "xっy"
func rewriteSmallTsu(keyPos int, s string, out *strings.Builder) int {
	var chars [4]rune
	consumed := 0
	for i := range chars {
		if consumed >= len(s) {
			return 0
		}
		r, n := utf8.DecodeRuneInString(s[consumed:])
		wantTsu := i == 1 || i == 2
		if wantTsu != (r == 'っ') || !wantTsu && !isHiraganaRune(r) {
			return 0
		}
		chars[i] = r
		consumed += n
	}
	out.WriteRune(chars[0])
	out.WriteRune('っ')
	out.WriteRune(chars[3])
	return consumed
}

// rewriteYu: "[きしちにひり]ゅ[^う]" => "[きしちにひり]ゅう", consuming the first two
func rewriteYu(keyPos int, s string, out *strings.Builder) int {
	r, n := utf8.DecodeRuneInString(s)
	switch r {
	case 'き', 'し', 'ち', 'に', 'ひ', 'り':
	default:
		return 0
	}
	if n >= len(s) {
		return 0
	}
	next, n2 := utf8.DecodeRuneInString(s[n:])
	if next != 'ゅ' || n+n2 >= len(s) {
		return 0
	}
	last, _ := utf8.DecodeRuneInString(s[n+n2:])
	if last == 'う' {
		return 0
	}
	out.WriteRune(r)
	out.WriteRune('ゅ')
	out.WriteRune('う')
	return n + n2
}
