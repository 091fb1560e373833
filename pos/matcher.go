package pos

import "regexp"

type rule int

const (
	ruleFunctional rule = iota
	ruleNumber
	ruleSuffixWord
	ruleUniqueNoun
	ruleIsolatedWord
	ruleGeneralSymbol
	ruleAcceptableParticleAtBeginOfSegment
	ruleKagyoTaConnectionVerb
	ruleWagyoRenyoConnectionVerb
	ruleVerbSuffix
	ruleTeSuffix
	ruleWeakCompoundFillerPrefix
	ruleWeakCompoundNounPrefix
	ruleWeakCompoundNounSuffix
	ruleWeakCompoundVerbPrefix
	ruleWeakCompoundVerbSuffix
	rulePrefix
	ruleLastName
	ruleFirstName
	numRules
)

// Patterns are written for IPA feature names; UniDic spellings are
// accepted where they differ.
var rulePatterns = [numRules]string{
	ruleFunctional:                         `^(助詞|助動詞|動詞,(非自立|接尾)|形容詞,(非自立|接尾)|名詞,(非自立|接尾,助動詞語幹)|接尾辞|助動詞語幹)`,
	ruleNumber:                             `^名詞,(数|数詞),`,
	ruleSuffixWord:                         `^(名詞,接尾|接尾辞),`,
	ruleUniqueNoun:                         `^名詞,固有名詞,`,
	ruleIsolatedWord:                       `^(感動詞|フィラー),`,
	ruleGeneralSymbol:                      `^(記号|補助記号),(一般|記号|\*),`,
	ruleAcceptableParticleAtBeginOfSegment: `^助詞,(格助詞|係助詞|副助詞|終助詞|副助詞／並立助詞／終助詞)(,[^,]*){4},(は|が|を|に|で|と|へ|も|から|まで|より|の|や|か|ね|よ)$`,
	ruleKagyoTaConnectionVerb:              `^動詞,自立,\*,\*,五段・カ行(イ音便|促音便ユク),連用タ接続`,
	ruleWagyoRenyoConnectionVerb:           `^動詞,自立,\*,\*,五段・ワ行(促音便|ウ音便),連用形$`,
	ruleVerbSuffix:                         `^(動詞,接尾|助動詞,.*,(ます|れる|られる|せる|させる))`,
	ruleTeSuffix:                           `^助詞,接続助詞,\*,\*,\*,\*,(て|で)$`,
	ruleWeakCompoundFillerPrefix:           `^(フィラー|接頭詞,名詞接続,\*,\*,\*,\*)`,
	ruleWeakCompoundNounPrefix:             `^(名詞,(一般|サ変接続|形容動詞語幹|副詞可能),|名詞,普通名詞,)`,
	ruleWeakCompoundNounSuffix:             `^(名詞,(一般|サ変接続|形容動詞語幹|副詞可能|接尾),|名詞,普通名詞,|接尾辞,名詞的)`,
	ruleWeakCompoundVerbPrefix:             `^(動詞,自立,|動詞,一般,)`,
	ruleWeakCompoundVerbSuffix:             `^(動詞,(非自立|接尾),|助動詞,)`,
	rulePrefix:                             `^(接頭詞|接頭辞),`,
	ruleLastName:                           `^名詞,固有名詞,人名,姓,`,
	ruleFirstName:                          `^名詞,固有名詞,人名,名,`,
}

var compiledRules = func() [numRules]*regexp.Regexp {
	var out [numRules]*regexp.Regexp
	for i, p := range rulePatterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}()

// Matcher answers POS class questions for the ids of one table. It is
// read-only after NewMatcher and safe for concurrent use.
type Matcher struct {
	table *Table
	sets  [numRules][]bool
}

// NewMatcher evaluates every rule against the current ids of t.
func NewMatcher(t *Table) *Matcher {
	m := &Matcher{table: t}
	names := t.Names()
	for r := rule(0); r < numRules; r++ {
		set := make([]bool, len(names))
		for id, name := range names {
			set[id] = compiledRules[r].MatchString(name)
		}
		m.sets[r] = set
	}
	return m
}

// Table returns the table the matcher was built from.
func (m *Matcher) Table() *Table {
	return m.table
}

func (m *Matcher) is(r rule, id uint16) bool {
	set := m.sets[r]
	if int(id) < len(set) {
		return set[id]
	}
	return compiledRules[r].MatchString(m.table.Name(id))
}

func (m *Matcher) NumberID() uint16    { return NumberID }
func (m *Matcher) UnknownID() uint16   { return UnknownID }
func (m *Matcher) LastNameID() uint16  { return LastNameID }
func (m *Matcher) FirstNameID() uint16 { return FirstNameID }

// IsFunctional matches particles, auxiliaries and dependent words.
func (m *Matcher) IsFunctional(id uint16) bool { return m.is(ruleFunctional, id) }
func (m *Matcher) IsNumber(id uint16) bool     { return m.is(ruleNumber, id) }
func (m *Matcher) IsSuffixWord(id uint16) bool { return m.is(ruleSuffixWord, id) }
func (m *Matcher) IsUniqueNoun(id uint16) bool { return m.is(ruleUniqueNoun, id) }

// IsIsolatedWord matches words that should form a segment on their own.
func (m *Matcher) IsIsolatedWord(id uint16) bool  { return m.is(ruleIsolatedWord, id) }
func (m *Matcher) IsGeneralSymbol(id uint16) bool { return m.is(ruleGeneralSymbol, id) }

// IsAcceptableParticleAtBeginOfSegment matches particles that may attach to
// a previously committed segment.
func (m *Matcher) IsAcceptableParticleAtBeginOfSegment(id uint16) bool {
	return m.is(ruleAcceptableParticleAtBeginOfSegment, id)
}

// IsKagyoTaConnectionVerb matches stems like 書い that only take た/て.
func (m *Matcher) IsKagyoTaConnectionVerb(id uint16) bool {
	return m.is(ruleKagyoTaConnectionVerb, id)
}

// IsWagyoRenyoConnectionVerb matches stems like 言い that never take て.
func (m *Matcher) IsWagyoRenyoConnectionVerb(id uint16) bool {
	return m.is(ruleWagyoRenyoConnectionVerb, id)
}

func (m *Matcher) IsVerbSuffix(id uint16) bool { return m.is(ruleVerbSuffix, id) }
func (m *Matcher) IsTeSuffix(id uint16) bool   { return m.is(ruleTeSuffix, id) }

func (m *Matcher) IsWeakCompoundFillerPrefix(id uint16) bool {
	return m.is(ruleWeakCompoundFillerPrefix, id)
}

func (m *Matcher) IsWeakCompoundNounPrefix(id uint16) bool {
	return m.is(ruleWeakCompoundNounPrefix, id)
}

func (m *Matcher) IsWeakCompoundNounSuffix(id uint16) bool {
	return m.is(ruleWeakCompoundNounSuffix, id)
}

func (m *Matcher) IsWeakCompoundVerbPrefix(id uint16) bool {
	return m.is(ruleWeakCompoundVerbPrefix, id)
}

func (m *Matcher) IsWeakCompoundVerbSuffix(id uint16) bool {
	return m.is(ruleWeakCompoundVerbSuffix, id)
}

// IsPrefix matches prefixes (接頭詞), which bind to the following word.
func (m *Matcher) IsPrefix(id uint16) bool    { return m.is(rulePrefix, id) }
func (m *Matcher) IsLastName(id uint16) bool  { return m.is(ruleLastName, id) }
func (m *Matcher) IsFirstName(id uint16) bool { return m.is(ruleFirstName, id) }
