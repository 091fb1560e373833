package dictionary

// kana sharing a base sound, differing only by voicing marks or size
var modifierGroups = []string{
	"あぁ", "いぃ", "うぅゔ", "えぇ", "おぉ",
	"かが", "きぎ", "くぐ", "けげ", "こご",
	"さざ", "しじ", "すず", "せぜ", "そぞ",
	"ただ", "ちぢ", "つっづ", "てで", "とど",
	"はばぱ", "ひびぴ", "ふぶぷ", "へべぺ", "ほぼぽ",
	"やゃ", "ゆゅ", "よょ", "わゎ",
}

var expansionTable = func() map[rune][]rune {
	table := make(map[rune][]rune)
	for _, g := range modifierGroups {
		members := []rune(g)
		for _, r := range members {
			alts := []rune{r}
			for _, o := range members {
				if o != r {
					alts = append(alts, o)
				}
			}
			table[r] = alts
		}
	}
	return table
}()

// alternatives lists r first, then its modifier variants when expand is set.
func alternatives(r rune, expand bool) []rune {
	if expand {
		if alts, ok := expansionTable[r]; ok {
			return alts
		}
	}
	return []rune{r}
}
