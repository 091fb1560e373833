package converter

import (
	"log"
	"strings"

	"henkan/lattice"
	"henkan/model"
	"henkan/pos"
	"henkan/script"
)

// resegment splits compound words the dictionary only knows as a whole,
// then pins the values of FixedValue segments.
func (c *Converter) resegment(segments *model.Segments, historyKey, conversionKey string, lat *lattice.Lattice) {
	for at := len(historyKey); at < len(historyKey)+len(conversionKey); at++ {
		c.applyResegmentRules(at, lat)
	}

	at := 0
	for s := 0; s < segments.SegmentsSize(); s++ {
		seg := segments.Segment(s)
		if seg.Type == model.FixedValue && seg.CandidatesSize() > 0 {
			cand := seg.Candidate(0)
			n := lat.NewNode()
			n.LID, n.RID = cand.LID, cand.RID
			n.WCost = minCost
			n.Key, n.Value = seg.Key(), cand.Value
			n.Type = lattice.ConstrainedNode
			lat.Insert(at, n)
		}
		at += len(seg.Key())
	}
}

// applyResegmentRules runs the first rule that changes anything at at.
func (c *Converter) applyResegmentRules(at int, lat *lattice.Lattice) {
	switch {
	case c.resegmentArabicNumberAndSuffix(at, lat):
	case c.resegmentPrefixAndArabicNumber(at, lat):
	case c.resegmentPersonalName(at, lat):
	}
}

func splitNumberSuffix(s string) (number, suffix string) {
	i := 0
	for i < len(s) && script.IsArabicDigit(s[i]) {
		i++
	}
	return s[:i], s[i:]
}

func splitPrefixNumber(s string) (prefix, number string) {
	i := len(s)
	for i > 0 && script.IsArabicDigit(s[i-1]) {
		i--
	}
	return s[:i], s[i:]
}

// splitWordCost halves a compound cost, minus one so the pieces win over
// the compound.
func splitWordCost(wcost int) int {
	return max(wcost/2-1, 0)
}

// resegmentArabicNumberAndSuffix splits 10個/10こ into 10 and 個.
func (c *Converter) resegmentArabicNumberAndSuffix(at int, lat *lattice.Lattice) bool {
	modified := false
	for _, compound := range lat.BeginNodeList(at) {
		if compound.Value == "" || compound.Key == "" ||
			!c.matcher.IsNumber(compound.LID) || c.matcher.IsNumber(compound.RID) ||
			!script.IsArabicDigit(compound.Value[0]) || !script.IsArabicDigit(compound.Key[0]) {
			continue
		}
		numberValue, suffixValue := splitNumberSuffix(compound.Value)
		numberKey, suffixKey := splitNumberSuffix(compound.Key)
		if suffixValue == "" || suffixKey == "" {
			continue
		}
		if numberValue != numberKey {
			log.Printf("[converter] number %q does not match its reading %q", numberValue, numberKey)
			continue
		}

		wcost := splitWordCost(compound.WCost)

		number := lat.NewNode()
		number.Key, number.Value = numberKey, numberValue
		number.LID, number.RID = compound.LID, pos.BOSEOSID
		number.WCost = wcost
		lat.Insert(at, number)

		suffix := lat.NewNode()
		suffix.Key, suffix.Value = suffixKey, suffixValue
		suffix.LID, suffix.RID = pos.BOSEOSID, compound.RID
		suffix.WCost = wcost
		suffix.ConstrainedPrev = number.ID
		lat.Insert(at+len(numberKey), suffix)

		modified = true
	}
	return modified
}

// resegmentPrefixAndArabicNumber splits 第10/だい10 into 第 and 10.
func (c *Converter) resegmentPrefixAndArabicNumber(at int, lat *lattice.Lattice) bool {
	modified := false
	for _, compound := range lat.BeginNodeList(at) {
		// words ending in digits are rare enough that POS is not checked
		if len(compound.Value) <= 1 || len(compound.Key) <= 1 ||
			script.IsArabicDigit(compound.Value[0]) || script.IsArabicDigit(compound.Key[0]) ||
			!script.IsArabicDigit(compound.Value[len(compound.Value)-1]) ||
			!script.IsArabicDigit(compound.Key[len(compound.Key)-1]) {
			continue
		}
		prefixValue, numberValue := splitPrefixNumber(compound.Value)
		prefixKey, numberKey := splitPrefixNumber(compound.Key)
		if prefixValue == "" || prefixKey == "" {
			continue
		}
		if numberValue != numberKey {
			log.Printf("[converter] number %q does not match its reading %q", numberValue, numberKey)
			continue
		}

		wcost := splitWordCost(compound.WCost)

		prefix := lat.NewNode()
		prefix.Key, prefix.Value = prefixKey, prefixValue
		prefix.LID, prefix.RID = compound.LID, pos.BOSEOSID
		prefix.WCost = wcost
		lat.Insert(at, prefix)

		number := lat.NewNode()
		number.Key, number.Value = numberKey, numberValue
		number.LID, number.RID = pos.BOSEOSID, compound.RID
		number.WCost = wcost
		number.ConstrainedPrev = prefix.ID
		lat.Insert(at+len(prefixKey), number)

		modified = true
	}
	return modified
}

// resegmentPersonalName splits a full name such as 田中麗奈 into last and
// first name, picking the cheapest split the dictionary supports.
func (c *Converter) resegmentPersonalName(at int, lat *lattice.Lattice) bool {
	modified := false
	begins := lat.BeginNodeList(at)
	for _, compound := range begins {
		if compound.LID != c.lastNameID || compound.RID != c.firstNameID {
			continue
		}
		chars := script.Len(compound.Value)
		// one-character names like 林健 stay whole
		if chars <= 2 || script.TypeOfString(compound.Value) == script.Katakana {
			continue
		}

		var bestLast, bestFirst *lattice.Node
		bestCost := veryBigCost
		for _, l := range begins {
			if len(compound.Value) <= len(l.Value) || len(compound.Key) <= len(l.Key) ||
				!strings.HasPrefix(compound.Value, l.Value) {
				continue
			}
			for r := lat.BeginNodes(at + len(l.Key)); r != nil; r = lat.NextBegin(r) {
				if len(l.Value)+len(r.Value) != len(compound.Value) ||
					l.Value+r.Value != compound.Value ||
					!c.seg.IsBoundary(l, r, false) {
					continue
				}
				cost := l.WCost + c.conn.TransitionCost(l.RID, r.LID) + r.WCost
				if cost < bestCost {
					bestLast, bestFirst, bestCost = l, r, cost
				}
			}
		}
		if bestLast == nil || bestFirst == nil {
			continue
		}

		isLast := bestLast.LID == c.lastNameID
		isFirst := bestFirst.RID == c.firstNameID
		if chars >= 4 && !isLast && !isFirst {
			continue
		}
		if chars == 3 && (!isLast || !isFirst) {
			continue
		}

		// last + transition + first == compound, with equal halves
		wcost := (compound.WCost - c.lastToFirstNameTransCost) / 2

		last := lat.NewNode()
		last.Key, last.Value = bestLast.Key, bestLast.Value
		last.LID, last.RID = compound.LID, c.lastNameID
		last.WCost = wcost
		lat.Insert(at, last)

		first := lat.NewNode()
		first.Key, first.Value = bestFirst.Key, bestFirst.Value
		first.LID, first.RID = c.firstNameID, compound.RID
		first.WCost = wcost
		first.ConstrainedPrev = last.ID
		lat.Insert(at+len(last.Key), first)

		modified = true
	}
	return modified
}
