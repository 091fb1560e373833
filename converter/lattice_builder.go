package converter

import (
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"henkan/dictionary"
	"henkan/keycorrector"
	"henkan/lattice"
	"henkan/lookup"
	"henkan/model"
	"henkan/pos"
	"henkan/script"
)

func segmentKeys(segments *model.Segments, from, to int) string {
	var b strings.Builder
	for i := from; i < to; i++ {
		b.WriteString(segments.Segment(i).Key())
	}
	return b.String()
}

func maxKeyLength(reqType model.RequestType) int {
	if reqType == model.ReverseConversion {
		return maxCharLengthForReverse
	}
	return maxCharLength
}

// validateSegments rejects input the converter cannot handle. It must run
// before the cached lattice is touched so a rejected request leaves
// segments as they were.
func validateSegments(segments *model.Segments) error {
	if segments.SegmentsSize() >= maxSegmentsSize {
		log.Printf("[converter] too many segments: %d", segments.SegmentsSize())
		return ErrTooManySegments
	}

	reqType := segments.RequestType
	historySize := segments.HistorySegmentsSize()
	conversionKey := segmentKeys(segments, historySize, segments.SegmentsSize())
	if conversionKey == "" || len(conversionKey) >= maxKeyLength(reqType) {
		log.Printf("[converter] conversion key is empty or too long: %d bytes", len(conversionKey))
		return ErrEmptyOrOversizedKey
	}

	// prediction and reverse conversion always produce a single segment
	isPrediction := reqType == model.Prediction || reqType == model.Suggestion
	if (reqType == model.ReverseConversion || isPrediction) &&
		(segments.ConversionSegmentsSize() != 1 || segments.ConversionSegment(0).Type != model.Free) {
		log.Printf("[converter] %s does not accept constrained segments", reqType)
		return ErrUnsupportedRequest
	}

	for i := 0; i < historySize; i++ {
		seg := segments.HistorySegment(i)
		if seg.Key() == "" || seg.CandidatesSize() == 0 {
			log.Printf("[converter] history segment %d has no key or candidate", i)
			return fmt.Errorf("%w: segment %d", ErrInvalidHistory, i)
		}
	}
	return nil
}

// makeLattice fills lat with every word that may appear in the conversion
// of history key + conversion key. segments must have passed
// validateSegments.
func (c *Converter) makeLattice(req Request, segments *model.Segments, lat *lattice.Lattice) error {
	reqType := segments.RequestType
	isPrediction := reqType == model.Prediction || reqType == model.Suggestion
	historySize := segments.HistorySegmentsSize()
	conversionKey := segmentKeys(segments, historySize, segments.SegmentsSize())
	maxLen := maxKeyLength(reqType)

	normalizeHistorySegments(segments)

	historyKey := segmentKeys(segments, 0, historySize)
	if len(historyKey)+len(conversionKey) >= maxLen {
		log.Printf("[converter] dropping %d history segments to fit the key limit", historySize)
		segments.ClearHistorySegments()
		historyKey = ""
	}

	key := historyKey + conversionKey
	lat.UpdateKey(key)
	lat.ResetNodeCost()

	c.addHistoryNodes(req, segments, lat)
	if lat.EndNodes(len(historyKey)) == nil {
		log.Printf("[converter] history does not reach the conversion key")
		return fmt.Errorf("%w: history ends at %d", ErrNoPath, len(historyKey))
	}
	c.addConversionNodes(req, segments, historyKey, lat)
	if isPrediction && !c.predictiveRealtimeDisabled {
		c.addPredictiveNodes(req, conversionKey, lat)
	}

	if lat.EndNodes(len(key)) == nil {
		log.Printf("[converter] no node ends at the end of %q", key)
		return fmt.Errorf("%w: nothing ends at %d", ErrNoPath, len(key))
	}

	c.applyPrefixSuffixPenalty(conversionKey, lat)

	if reqType == model.Conversion {
		c.resegment(segments, historyKey, conversionKey, lat)
	}
	return nil
}

// normalizeHistorySegments folds full-width ASCII in history segments and
// reduces numeric history to its last digit, since any number may have
// been typed there.
func normalizeHistorySegments(segments *model.Segments) {
	for i := 0; i < segments.HistorySegmentsSize(); i++ {
		seg := segments.HistorySegment(i)
		if seg.CandidatesSize() == 0 {
			continue
		}
		c := seg.Candidate(0)
		key := script.FullWidthASCIIToHalfWidth(seg.Key())
		c.Value = script.FullWidthASCIIToHalfWidth(c.Value)
		c.ContentValue = script.FullWidthASCIIToHalfWidth(c.ContentValue)
		c.ContentKey = script.FullWidthASCIIToHalfWidth(c.ContentKey)
		c.Key = key
		seg.SetKey(key)

		if len(key) > 1 &&
			key == c.Value && key == c.ContentValue && key == c.ContentKey &&
			script.TypeOfString(key) == script.Number &&
			script.IsArabicDigit(key[len(key)-1]) {
			key = key[len(key)-1:]
			seg.SetKey(key)
			c.Value = key
			c.ContentValue = key
			c.ContentKey = key
		}
	}
}

// addHistoryNodes adds a HIS node per history segment and, for the last
// one, the tails of dictionary words that start inside it.
func (c *Converter) addHistoryNodes(req Request, segments *model.Segments, lat *lattice.Lattice) {
	historySize := segments.HistorySegmentsSize()
	isReverse := segments.RequestType == model.ReverseConversion
	isPrediction := segments.RequestType == model.Prediction || segments.RequestType == model.Suggestion

	at := 0
	for s := 0; s < historySize; s++ {
		seg := segments.HistorySegment(s)
		cand := seg.Candidate(0)

		his := lat.NewNode()
		his.LID, his.RID = cand.LID, cand.RID
		his.Key, his.Value = seg.Key(), cand.Value
		his.Type = lattice.HistoryNode
		lat.Insert(at, his)

		last := s+1 == historySize
		if last && cand.RID != pos.BOSEOSID {
			// lets the conversion start fresh after the history
			eos := lat.NewNode()
			eos.LID, eos.RID = cand.LID, pos.BOSEOSID
			eos.Key, eos.Value = seg.Key(), cand.Value
			eos.Type = lattice.HistoryNode
			lat.Insert(at, eos)
		}
		if last {
			c.addCompoundTails(req, at, his, cand, lat, isReverse, isPrediction)
		}
		at += len(his.Key)
	}
	lat.SetHistoryEndPos(at)
}

// addCompoundTails finds words overlapping history and conversion, e.g.
// history おいかわ/及川 with conversion たくや finds おいかわたくや/及川卓也,
// and inserts the tail たくや/卓也 bound to the history node.
func (c *Converter) addCompoundTails(req Request, at int, his *lattice.Node, cand *model.Candidate,
	lat *lattice.Lattice, isReverse, isPrediction bool) {
	for _, compound := range c.lookupNodes(req, at, len(lat.Key()), lat, isReverse, isPrediction) {
		if len(compound.Key) <= len(his.Key) || len(compound.Value) <= len(his.Value) ||
			!strings.HasPrefix(compound.Key, his.Key) || !strings.HasPrefix(compound.Value, his.Value) {
			continue
		}
		if c.group.PosGroup(cand.LID) != c.group.PosGroup(compound.LID) {
			continue
		}
		n := lat.NewNode()
		n.Key = compound.Key[len(his.Key):]
		n.Value = compound.Value[len(his.Value):]
		n.LID, n.RID = compound.LID, compound.RID
		n.Type = lattice.NormalNode
		n.WCost = compound.WCost*len(cand.Value)/len(compound.Value) -
			c.conn.TransitionCost(cand.RID, n.LID)
		n.ConstrainedPrev = his.ID
		lat.Insert(at+len(his.Key), n)
	}
}

// addConversionNodes looks up every position of the conversion key that
// some node reaches.
func (c *Converter) addConversionNodes(req Request, segments *model.Segments, historyKey string, lat *lattice.Lattice) {
	key := lat.Key()
	reqType := segments.RequestType
	isReverse := reqType == model.ReverseConversion
	isPrediction := reqType == model.Prediction || reqType == model.Suggestion

	// boundaries moved by hand are taken literally
	var kc *keycorrector.KeyCorrector
	if reqType == model.Conversion && !segments.Resized {
		kc = keycorrector.New(key, req.InputMode, len(historyKey))
	}

	for at := len(historyKey); at < len(key); at++ {
		if lat.EndNodes(at) == nil {
			continue
		}
		nodes := c.lookupNodes(req, at, len(key), lat, isReverse, isPrediction)
		if historyKey != "" && at == len(historyKey) {
			for _, n := range nodes {
				if c.matcher.IsAcceptableParticleAtBeginOfSegment(n.LID) && n.LID == n.RID {
					n.Attributes |= lattice.StartsWithParticle
				}
			}
		}
		lat.Insert(at, nodes...)
		c.insertCorrectedNodes(req, at, kc, lat)
	}
}

func (c *Converter) insertCorrectedNodes(req Request, at int, kc *keycorrector.KeyCorrector, lat *lattice.Lattice) {
	if kc == nil {
		return
	}
	corrected, ok := kc.CorrectedPrefix(at)
	if !ok || corrected == "" {
		return
	}
	b := lookup.New(lat, lookup.Config{
		Policy:      lookup.KeyCorrected,
		Corrector:   kc,
		Pos:         at,
		OriginalKey: lat.Key(),
	})
	c.dict.LookupPrefix(corrected, req.lookupOptions(), b)
	lat.Insert(at, b.Nodes()...)
}

// lookupNodes returns the dictionary words starting at begin, preceded by
// the character-type fallback nodes.
func (c *Converter) lookupNodes(req Request, begin, end int, lat *lattice.Lattice, isReverse, isPrediction bool) []*lattice.Node {
	key := lat.Key()[begin:end]
	var b *lookup.Builder
	switch {
	case isReverse:
		b = lookup.New(lat, lookup.Config{Policy: lookup.Prefix})
		c.dict.LookupReverse(key, b)
	case isPrediction && !c.latticeCacheDisabled:
		// shorter keys were looked up on earlier keystrokes
		b = lookup.New(lat, lookup.Config{
			Policy:       lookup.Cached,
			MinKeyLength: lat.CacheInfo(begin) + 1,
		})
		c.dict.LookupPrefix(key, req.lookupOptions(), b)
		lat.SetCacheInfo(begin, len(key))
	default:
		b = lookup.New(lat, lookup.Config{Policy: lookup.Prefix})
		c.dict.LookupPrefix(key, req.lookupOptions(), b)
	}
	return c.addCharacterTypeNodes(key, lat, b.Nodes())
}

// addCharacterTypeNodes guarantees the lattice stays connected: a single
// character node always, plus a node covering a run of same-script
// alphabet or katakana.
func (c *Converter) addCharacterTypeNodes(key string, lat *lattice.Lattice, nodes []*lattice.Node) []*lattice.Node {
	r, size := utf8.DecodeRuneInString(key)
	first := script.TypeOf(r)
	form := script.FormOf(r)

	single := lat.NewNode()
	single.Key, single.Value = key[:size], key[:size]
	if first == script.Number {
		single.LID, single.RID = c.numberID, c.numberID
		single.WCost = defaultNumberCost
		return append([]*lattice.Node{single}, nodes...)
	}
	single.LID, single.RID = c.unknownID, c.unknownID
	single.WCost = maxCost
	nodes = append([]*lattice.Node{single}, nodes...)

	if first != script.Alphabet && first != script.Katakana {
		return nodes
	}

	end, chars := size, 1
	for end < len(key) {
		r, n := utf8.DecodeRuneInString(key[end:])
		if script.TypeOf(r) != first || script.FormOf(r) != form {
			break
		}
		end += n
		chars++
	}
	if chars > 1 {
		run := lat.NewNode()
		run.Key, run.Value = key[:end], key[:end]
		run.LID, run.RID = c.unknownID, c.unknownID
		run.WCost = maxCost / 2
		nodes = append([]*lattice.Node{run}, nodes...)
	}
	return nodes
}

// addPredictiveNodes adds completions of the last few characters so a
// prediction may end in the middle of a word.
func (c *Converter) addPredictiveNodes(req Request, conversionKey string, lat *lattice.Lattice) {
	var sizes []int
	for i := 0; i < len(conversionKey); {
		_, n := utf8.DecodeRuneInString(conversionKey[i:])
		sizes = append(sizes, n)
		i += n
	}
	if len(sizes) < minPredictiveKeyLength {
		return
	}
	c.insertPredictive(c.suffix, req, lat, sizes, 1, min(maxSuffixLookupKeyLength, len(sizes)))
	c.insertPredictive(c.dict, req, lat, sizes,
		minSystemPredictiveKeyLength, min(maxSystemPredictiveKeyLength, len(sizes)))
}

// insertPredictive looks up the suffixes of minChars..maxChars characters.
func (c *Converter) insertPredictive(d dictionary.Dictionary, req Request, lat *lattice.Lattice, sizes []int, minChars, maxChars int) {
	key := lat.Key()
	at := len(key)
	for n := 1; n <= maxChars; n++ {
		at -= sizes[len(sizes)-n]
		if n < minChars {
			continue
		}
		b := lookup.New(lat, lookup.Config{Policy: lookup.Predictive, Matcher: c.matcher})
		d.LookupPredictive(key[at:], req.lookupOptions(), b)
		lat.Insert(at, b.Nodes()...)
	}
}

func (c *Converter) applyPrefixSuffixPenalty(conversionKey string, lat *lattice.Lattice) {
	key := lat.Key()
	for n := lat.BeginNodes(len(key) - len(conversionKey)); n != nil; n = lat.NextBegin(n) {
		n.WCost += c.seg.PrefixPenalty(n.LID)
	}
	for n := lat.EndNodes(len(key)); n != nil; n = lat.NextEnd(n) {
		n.WCost += c.seg.SuffixPenalty(n.RID)
	}
}
