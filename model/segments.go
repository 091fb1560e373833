package model

import (
	"fmt"
	"strings"

	"henkan/lattice"
)

// RequestType selects how a key is converted.
type RequestType int

const (
	Conversion RequestType = iota
	Prediction
	Suggestion
	ReverseConversion
)

func (t RequestType) String() string {
	switch t {
	case Conversion:
		return "conversion"
	case Prediction:
		return "prediction"
	case Suggestion:
		return "suggestion"
	case ReverseConversion:
		return "reverse"
	}
	return "unknown"
}

// ParseRequestType accepts the names produced by String.
func ParseRequestType(s string) (RequestType, error) {
	switch strings.ToLower(s) {
	case "", "conversion":
		return Conversion, nil
	case "prediction":
		return Prediction, nil
	case "suggestion":
		return Suggestion, nil
	case "reverse":
		return ReverseConversion, nil
	}
	return Conversion, fmt.Errorf("unknown request type %q", s)
}

// SegmentType tells how much of a segment the user has fixed.
type SegmentType int

const (
	Free SegmentType = iota
	FixedBoundary
	FixedValue
	Submitted
	History
)

func (t SegmentType) String() string {
	switch t {
	case Free:
		return "free"
	case FixedBoundary:
		return "fixed_boundary"
	case FixedValue:
		return "fixed_value"
	case Submitted:
		return "submitted"
	case History:
		return "history"
	}
	return "unknown"
}

// Attribute is a candidate flag.
type Attribute uint32

const (
	DefaultAttribute Attribute = 0
	ContextSensitive Attribute = 1 << (iota - 1)
	SpellingCorrection
	NoVariantsExpansion
	UserDictionary
	RealtimeConversion
	PartiallyKeyConsumed
)

// InnerSegment is one inner-segment boundary in byte lengths.
type InnerSegment struct {
	KeyLen          int `json:"key_len"`
	ValueLen        int `json:"value_len"`
	ContentKeyLen   int `json:"content_key_len"`
	ContentValueLen int `json:"content_value_len"`
}

// InnerSegmentText is an InnerSegment resolved against its candidate.
type InnerSegmentText struct {
	Key          string `json:"key"`
	Value        string `json:"value"`
	ContentKey   string `json:"content_key"`
	ContentValue string `json:"content_value"`
}

// Candidate is one ranked written form of a segment.
type Candidate struct {
	Key          string `json:"key"`
	Value        string `json:"value"`
	ContentKey   string `json:"content_key"`
	ContentValue string `json:"content_value"`

	Cost          int `json:"cost"`
	WCost         int `json:"wcost"`
	StructureCost int `json:"structure_cost"`

	LID uint16 `json:"lid"`
	RID uint16 `json:"rid"`

	Attributes      Attribute `json:"attributes"`
	ConsumedKeySize int       `json:"consumed_key_size,omitempty"`

	InnerSegmentBoundary []InnerSegment `json:"inner_segment_boundary,omitempty"`
}

// Init resets the candidate to its zero value.
func (c *Candidate) Init() {
	*c = Candidate{}
}

// Clone returns a deep copy.
func (c *Candidate) Clone() *Candidate {
	out := *c
	out.InnerSegmentBoundary = append([]InnerSegment(nil), c.InnerSegmentBoundary...)
	return &out
}

// FunctionalKey is the key after the content key.
func (c *Candidate) FunctionalKey() string {
	if len(c.ContentKey) <= len(c.Key) && strings.HasPrefix(c.Key, c.ContentKey) {
		return c.Key[len(c.ContentKey):]
	}
	return ""
}

// FunctionalValue is the value after the content value.
func (c *Candidate) FunctionalValue() string {
	if len(c.ContentValue) <= len(c.Value) && strings.HasPrefix(c.Value, c.ContentValue) {
		return c.Value[len(c.ContentValue):]
	}
	return ""
}

// PushBackInnerSegmentBoundary appends one boundary.
func (c *Candidate) PushBackInnerSegmentBoundary(keyLen, valueLen, contentKeyLen, contentValueLen int) {
	c.InnerSegmentBoundary = append(c.InnerSegmentBoundary, InnerSegment{
		KeyLen:          keyLen,
		ValueLen:        valueLen,
		ContentKeyLen:   contentKeyLen,
		ContentValueLen: contentValueLen,
	})
}

// IsValid checks that the inner boundaries exactly cover key and value.
func (c *Candidate) IsValid() bool {
	if len(c.InnerSegmentBoundary) == 0 {
		return true
	}
	k, v := 0, 0
	for _, b := range c.InnerSegmentBoundary {
		if b.ContentKeyLen > b.KeyLen || b.ContentValueLen > b.ValueLen {
			return false
		}
		k += b.KeyLen
		v += b.ValueLen
	}
	return k == len(c.Key) && v == len(c.Value)
}

// InnerSegments resolves the inner boundaries. A candidate without
// boundaries is a single inner segment.
func (c *Candidate) InnerSegments() []InnerSegmentText {
	if len(c.InnerSegmentBoundary) == 0 {
		return []InnerSegmentText{{Key: c.Key, Value: c.Value, ContentKey: c.ContentKey, ContentValue: c.ContentValue}}
	}
	out := make([]InnerSegmentText, 0, len(c.InnerSegmentBoundary))
	k, v := 0, 0
	for _, b := range c.InnerSegmentBoundary {
		if k+b.KeyLen > len(c.Key) || v+b.ValueLen > len(c.Value) {
			break
		}
		key := c.Key[k : k+b.KeyLen]
		value := c.Value[v : v+b.ValueLen]
		out = append(out, InnerSegmentText{
			Key:          key,
			Value:        value,
			ContentKey:   key[:b.ContentKeyLen],
			ContentValue: value[:b.ContentValueLen],
		})
		k += b.KeyLen
		v += b.ValueLen
	}
	return out
}

// Segment is a slice of the reading with its ranked candidates.
type Segment struct {
	key        string
	Type       SegmentType
	candidates []*Candidate
}

func (s *Segment) Key() string       { return s.key }
func (s *Segment) SetKey(key string) { s.key = key }

// CandidatesSize is the number of candidates.
func (s *Segment) CandidatesSize() int { return len(s.candidates) }

// Candidate returns the i-th candidate.
func (s *Segment) Candidate(i int) *Candidate { return s.candidates[i] }

// Candidates returns the candidate list. It must not be modified.
func (s *Segment) Candidates() []*Candidate { return s.candidates }

// AddCandidate appends a fresh candidate and returns it.
func (s *Segment) AddCandidate() *Candidate {
	c := &Candidate{}
	s.candidates = append(s.candidates, c)
	return c
}

// PushBackCandidate appends c.
func (s *Segment) PushBackCandidate(c *Candidate) {
	s.candidates = append(s.candidates, c)
}

// PopBackCandidate removes the last candidate.
func (s *Segment) PopBackCandidate() {
	if len(s.candidates) > 0 {
		s.candidates = s.candidates[:len(s.candidates)-1]
	}
}

// EraseCandidate removes the i-th candidate.
func (s *Segment) EraseCandidate(i int) {
	s.candidates = append(s.candidates[:i], s.candidates[i+1:]...)
}

// ClearCandidates drops every candidate.
func (s *Segment) ClearCandidates() {
	s.candidates = nil
}

// Segments is the caller-owned conversion state: history segments first,
// then conversion segments.
type Segments struct {
	RequestType             RequestType
	MaxConversionCandidates int
	MaxPredictionCandidates int
	// Resized is set when the user moved segment boundaries by hand.
	Resized bool

	segments      []*Segment
	cachedLattice *lattice.Lattice
}

const (
	defaultMaxConversionCandidates = 200
	defaultMaxPredictionCandidates = 9
)

// NewSegments returns empty segments with default candidate limits.
func NewSegments() *Segments {
	return &Segments{
		MaxConversionCandidates: defaultMaxConversionCandidates,
		MaxPredictionCandidates: defaultMaxPredictionCandidates,
	}
}

// SegmentsSize counts all segments.
func (s *Segments) SegmentsSize() int { return len(s.segments) }

// Segment returns the i-th segment.
func (s *Segments) Segment(i int) *Segment { return s.segments[i] }

// AddSegment appends an empty Free segment.
func (s *Segments) AddSegment() *Segment {
	seg := &Segment{}
	s.segments = append(s.segments, seg)
	return seg
}

// InsertSegment inserts a new segment at i.
func (s *Segments) InsertSegment(i int) *Segment {
	seg := &Segment{}
	s.segments = append(s.segments, nil)
	copy(s.segments[i+1:], s.segments[i:])
	s.segments[i] = seg
	return seg
}

// EraseSegments removes n segments starting at start.
func (s *Segments) EraseSegments(start, n int) {
	if start >= len(s.segments) || n <= 0 {
		return
	}
	end := start + n
	if end > len(s.segments) {
		end = len(s.segments)
	}
	s.segments = append(s.segments[:start], s.segments[end:]...)
}

// ClearSegments drops every segment.
func (s *Segments) ClearSegments() {
	s.segments = nil
}

// HistorySegmentsSize counts the leading History and Submitted segments.
func (s *Segments) HistorySegmentsSize() int {
	n := 0
	for _, seg := range s.segments {
		if seg.Type != History && seg.Type != Submitted {
			break
		}
		n++
	}
	return n
}

// HistorySegment returns the i-th history segment.
func (s *Segments) HistorySegment(i int) *Segment { return s.segments[i] }

// ConversionSegmentsSize counts segments after the history.
func (s *Segments) ConversionSegmentsSize() int {
	return len(s.segments) - s.HistorySegmentsSize()
}

// ConversionSegment returns the i-th conversion segment.
func (s *Segments) ConversionSegment(i int) *Segment {
	return s.segments[s.HistorySegmentsSize()+i]
}

// ClearHistorySegments drops the history part.
func (s *Segments) ClearHistorySegments() {
	s.segments = s.segments[s.HistorySegmentsSize():]
}

// ClearConversionSegments drops everything after the history.
func (s *Segments) ClearConversionSegments() {
	s.segments = s.segments[:s.HistorySegmentsSize()]
}

// CachedLattice returns the lattice kept with these segments, creating it
// on first use.
func (s *Segments) CachedLattice() *lattice.Lattice {
	if s.cachedLattice == nil {
		s.cachedLattice = lattice.New()
	}
	return s.cachedLattice
}

// Clear resets the segments and the cached lattice.
func (s *Segments) Clear() {
	s.segments = nil
	s.Resized = false
	if s.cachedLattice != nil {
		s.cachedLattice.Clear()
	}
}

// Snapshot is the JSON view of Segments.
type Snapshot struct {
	RequestType string            `json:"request_type"`
	Segments    []SegmentSnapshot `json:"segments"`
}

// SegmentSnapshot is the JSON view of a Segment.
type SegmentSnapshot struct {
	Key        string       `json:"key"`
	Type       string       `json:"type"`
	Candidates []*Candidate `json:"candidates"`
}

// Snapshot copies the segments into a serializable form.
func (s *Segments) Snapshot() Snapshot {
	out := Snapshot{RequestType: s.RequestType.String()}
	for _, seg := range s.segments {
		out.Segments = append(out.Segments, SegmentSnapshot{
			Key:        seg.key,
			Type:       seg.Type.String(),
			Candidates: seg.candidates,
		})
	}
	return out
}
