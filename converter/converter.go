// Package converter turns the reading of Segments into ranked candidates:
// it builds the word lattice, solves it with Viterbi, cuts the best path
// into segments and expands each segment with the N-best generator.
package converter

import (
	"errors"
	"fmt"
	"log"
	"time"

	"henkan/connector"
	"henkan/dictionary"
	"henkan/filter"
	"henkan/keycorrector"
	"henkan/lattice"
	"henkan/logger"
	"henkan/metrics"
	"henkan/model"
	"henkan/pos"
	"henkan/script"
	"henkan/segmenter"
)

const (
	maxSegmentsSize              = 256
	maxCharLength                = 1024
	maxCharLengthForReverse      = 600
	maxCost                      = 32767
	minCost                      = -32767
	defaultNumberCost            = 3000
	veryBigCost                  = int(^uint32(0)>>1) >> 2
	maxExpandSize                = 512
	onlyFirstSegmentCandidates   = 3
	onlyFirstSegmentCostOffset   = 300
	minPredictiveKeyLength       = 7
	maxSuffixLookupKeyLength     = 6
	minSystemPredictiveKeyLength = 5
	maxSystemPredictiveKeyLength = 8
)

// Request carries per-call options.
type Request struct {
	// CreatePartialCandidates adds candidates covering only the first
	// segment of a prediction.
	CreatePartialCandidates bool
	KanaModifierInsensitive bool
	// InputMode selects key correction; Kana disables it.
	InputMode keycorrector.InputMode
}

func (r Request) lookupOptions() dictionary.LookupOptions {
	return dictionary.LookupOptions{KanaModifierInsensitive: r.KanaModifierInsensitive}
}

// Components are the read-only collaborators of a Converter. They may be
// shared by converters running on other goroutines.
type Components struct {
	Dictionary       dictionary.Dictionary
	SuffixDictionary dictionary.Dictionary
	Suppression      filter.Suppressor
	SuggestionFilter filter.SuggestionFilter
	Connector        connector.Connector
	Segmenter        segmenter.Segmenter
	Matcher          *pos.Matcher
	Group            *pos.Group
}

// Option configures a Converter.
type Option func(*Converter)

// WithLatticeCacheDisabled rebuilds the lattice from scratch on every
// prediction instead of extending the one kept in Segments.
func WithLatticeCacheDisabled() Option {
	return func(c *Converter) { c.latticeCacheDisabled = true }
}

// WithPredictiveRealtimeDisabled stops adding predictive suffix nodes.
func WithPredictiveRealtimeDisabled() Option {
	return func(c *Converter) { c.predictiveRealtimeDisabled = true }
}

// WithDebugDir dumps the solved lattice of every conversion as JSON into
// dir.
func WithDebugDir(dir string) Option {
	return func(c *Converter) { c.debugDir = dir }
}

// Converter is stateless between calls; all per-call state lives in the
// Segments passed in.
type Converter struct {
	dict        dictionary.Dictionary
	suffix      dictionary.Dictionary
	suppression filter.Suppressor
	suggestions filter.SuggestionFilter
	conn        connector.Connector
	seg         segmenter.Segmenter
	matcher     *pos.Matcher
	group       *pos.Group

	firstNameID, lastNameID  uint16
	numberID, unknownID      uint16
	lastToFirstNameTransCost int

	latticeCacheDisabled       bool
	predictiveRealtimeDisabled bool
	debugDir                   string
}

// New checks the components and builds a Converter.
func New(c Components, opts ...Option) (*Converter, error) {
	switch {
	case c.Dictionary == nil:
		return nil, errors.New("converter: dictionary is required")
	case c.SuffixDictionary == nil:
		return nil, errors.New("converter: suffix dictionary is required")
	case c.Connector == nil:
		return nil, errors.New("converter: connector is required")
	case c.Segmenter == nil:
		return nil, errors.New("converter: segmenter is required")
	case c.Matcher == nil:
		return nil, errors.New("converter: pos matcher is required")
	case c.Group == nil:
		return nil, errors.New("converter: pos group is required")
	}
	conv := &Converter{
		dict:        c.Dictionary,
		suffix:      c.SuffixDictionary,
		suppression: c.Suppression,
		suggestions: c.SuggestionFilter,
		conn:        c.Connector,
		seg:         c.Segmenter,
		matcher:     c.Matcher,
		group:       c.Group,
		firstNameID: c.Matcher.FirstNameID(),
		lastNameID:  c.Matcher.LastNameID(),
		numberID:    c.Matcher.NumberID(),
		unknownID:   c.Matcher.UnknownID(),
	}
	conv.lastToFirstNameTransCost = c.Connector.TransitionCost(conv.lastNameID, conv.firstNameID)
	for _, opt := range opts {
		opt(conv)
	}
	return conv, nil
}

// Convert converts segments with the default request.
func (c *Converter) Convert(segments *model.Segments) error {
	return c.ConvertForRequest(Request{}, segments)
}

// ConvertForRequest replaces the conversion segments of segments with
// converted ones. Rejected input leaves segments untouched.
func (c *Converter) ConvertForRequest(req Request, segments *model.Segments) (err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = Classify(err).String()
		}
		metrics.ObserveConversion(segments.RequestType.String(), outcome, time.Since(start))
	}()

	if err := validateSegments(segments); err != nil {
		return err
	}
	isPrediction := segments.RequestType == model.Prediction || segments.RequestType == model.Suggestion
	lat := c.getLattice(segments, isPrediction)

	if err := c.makeLattice(req, segments, lat); err != nil {
		return err
	}
	metrics.ObserveLatticeNodes(lat.NodeCount())

	group := makeGroup(segments)
	if isPrediction {
		if err := c.predictionViterbi(segments, lat); err != nil {
			return err
		}
	} else {
		if err := c.viterbi(segments, lat); err != nil {
			return err
		}
	}

	c.dumpLattice(lat, segments.RequestType)

	if err := c.makeSegments(req, lat, group, segments); err != nil {
		return err
	}
	for i := 0; i < segments.ConversionSegmentsSize(); i++ {
		metrics.ObserveCandidates(segments.ConversionSegment(i).CandidatesSize())
	}
	return nil
}

func (c *Converter) dumpLattice(lat *lattice.Lattice, reqType model.RequestType) {
	if c.debugDir == "" {
		return
	}
	id := fmt.Sprintf("lattice-%s-%d", reqType, time.Now().UnixNano())
	if err := logger.LogJSON(c.debugDir, id, logger.DumpLattice(lat)); err != nil {
		log.Printf("[converter] lattice dump failed: %v", err)
	}
}

// getLattice returns the lattice kept in segments, cleared unless it can
// be extended for this keystroke.
func (c *Converter) getLattice(segments *model.Segments, isPrediction bool) *lattice.Lattice {
	lat := segments.CachedLattice()

	historySize := segments.HistorySegmentsSize()
	historyLen := len(segmentKeys(segments, 0, historySize))
	conversionKey := segmentKeys(segments, historySize, segments.SegmentsSize())

	// a changed history end means part of the key was committed
	if !isPrediction || c.latticeCacheDisabled ||
		script.Len(conversionKey) <= 1 ||
		lat.HistoryEndPos() != historyLen {
		lat.Clear()
	}
	return lat
}

// makeGroup maps every byte of the key to the index of its segment, with
// one trailing entry for the end position.
func makeGroup(segments *model.Segments) []int {
	var group []int
	for i := 0; i < segments.SegmentsSize(); i++ {
		n := len(segments.Segment(i).Key())
		for j := 0; j < n; j++ {
			group = append(group, i)
		}
	}
	return append(group, segments.SegmentsSize())
}
