package converter

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"henkan/connector"
	"henkan/dictionary"
	"henkan/lattice"
	"henkan/model"
	"henkan/pos"
	"henkan/segmenter"
)

type fixture struct {
	table   *pos.Table
	matcher *pos.Matcher
	conn    *connector.Matrix
	conv    *Converter
}

func newFixture(t *testing.T, tokens []model.Token, setup func(*connector.Matrix), opts ...Option) *fixture {
	t.Helper()
	return newFixtureWithTable(t, pos.NewTable(), tokens, setup, opts...)
}

// newFixtureWithTable sizes the matrix and the segmenter for every id
// already added to table.
func newFixtureWithTable(t *testing.T, table *pos.Table, tokens []model.Token, setup func(*connector.Matrix), opts ...Option) *fixture {
	t.Helper()
	matcher := pos.NewMatcher(table)
	conn := connector.NewMatrix(table.Len(), 0)
	if setup != nil {
		setup(conn)
	}
	conv, err := New(Components{
		Dictionary:       dictionary.NewMemory(tokens),
		SuffixDictionary: dictionary.NewMemory(nil),
		Suppression:      dictionary.NewSuppression(),
		SuggestionFilter: dictionary.NewSuggestionFilter(),
		Connector:        conn,
		Segmenter:        segmenter.NewRules(matcher),
		Matcher:          matcher,
		Group:            pos.NewGroup(table),
	}, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &fixture{table: table, matcher: matcher, conn: conn, conv: conv}
}

func noun(key, value string, cost int) model.Token {
	return model.Token{Key: key, Value: value, Cost: cost, LID: pos.NounID, RID: pos.NounID}
}

func aiuTokens() []model.Token {
	return []model.Token{
		noun("あい", "愛", 100),
		noun("う", "鵜", 100),
		noun("あいう", "阿伊宇", 500),
	}
}

func newSegments(reqType model.RequestType, keys ...string) *model.Segments {
	segs := model.NewSegments()
	segs.RequestType = reqType
	for _, k := range keys {
		segs.AddSegment().SetKey(k)
	}
	return segs
}

func candidateValues(seg *model.Segment) []string {
	var out []string
	for _, c := range seg.Candidates() {
		out = append(out, c.Value)
	}
	return out
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func TestNewRequiresComponents(t *testing.T) {
	if _, err := New(Components{}); err == nil {
		t.Fatalf("expected an error for missing components")
	}
}

func TestConversionSplitsIntoSegments(t *testing.T) {
	fx := newFixture(t, aiuTokens(), nil)
	segs := newSegments(model.Conversion, "あいう")
	if err := fx.conv.Convert(segs); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if segs.ConversionSegmentsSize() != 2 {
		t.Fatalf("segments = %d, want 2", segs.ConversionSegmentsSize())
	}

	first, second := segs.ConversionSegment(0), segs.ConversionSegment(1)
	if first.Key() != "あい" || second.Key() != "う" {
		t.Fatalf("keys = %q %q", first.Key(), second.Key())
	}

	v := candidateValues(first)
	if v[0] != "愛" {
		t.Errorf("top of first segment = %q", v[0])
	}
	for _, want := range []string{"あい", "アイ"} {
		if !contains(v, want) {
			t.Errorf("first segment lacks %q: %v", want, v)
		}
	}

	v = candidateValues(second)
	if v[0] != "鵜" {
		t.Errorf("top of second segment = %q", v[0])
	}
	last := second.Candidate(second.CandidatesSize() - 1)
	if last.Value != "ウ" {
		t.Errorf("last candidate = %q, want katakana dummy", last.Value)
	}
	if last.Attributes&model.ContextSensitive == 0 {
		t.Errorf("one-character dummy should be context sensitive")
	}
}

func TestPredictionProducesWholeKeyCandidates(t *testing.T) {
	fx := newFixture(t, aiuTokens(), nil)
	segs := newSegments(model.Prediction, "あいう")
	if err := fx.conv.Convert(segs); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if segs.ConversionSegmentsSize() != 1 {
		t.Fatalf("segments = %d, want 1", segs.ConversionSegmentsSize())
	}
	seg := segs.ConversionSegment(0)
	v := candidateValues(seg)
	if len(v) < 4 {
		t.Fatalf("candidates = %v", v)
	}
	if v[0] != "愛鵜" || v[1] != "阿伊宇" {
		t.Fatalf("top candidates = %v", v[:2])
	}
	if got := v[len(v)-2:]; got[0] != "あいう" || got[1] != "アイウ" {
		t.Fatalf("dummies = %v", got)
	}
	for _, c := range seg.Candidates() {
		if c.Key != "あいう" {
			t.Errorf("%s: key %q does not cover the input", c.Value, c.Key)
		}
	}
}

func TestPredictionReusesCachedLattice(t *testing.T) {
	fx := newFixture(t, aiuTokens(), nil)
	segs := newSegments(model.Prediction, "あい")
	if err := fx.conv.Convert(segs); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if top := segs.ConversionSegment(0).Candidate(0).Value; top != "愛" {
		t.Fatalf("top = %q", top)
	}

	seg := segs.ConversionSegment(0)
	seg.SetKey("あいう")
	seg.ClearCandidates()
	if err := fx.conv.Convert(segs); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	v := candidateValues(segs.ConversionSegment(0))
	if v[0] != "愛鵜" || v[1] != "阿伊宇" {
		t.Fatalf("candidates after extending the key = %v", v)
	}
}

func TestPartialCandidates(t *testing.T) {
	fx := newFixture(t, aiuTokens(), nil)
	segs := newSegments(model.Prediction, "あいう")
	if err := fx.conv.ConvertForRequest(Request{CreatePartialCandidates: true}, segs); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	seg := segs.ConversionSegment(0)
	var partial *model.Candidate
	for _, c := range seg.Candidates() {
		if c.Attributes&model.PartiallyKeyConsumed != 0 {
			partial = c
			break
		}
	}
	if partial == nil {
		t.Fatalf("no partial candidate in %v", candidateValues(seg))
	}
	if partial.Value != "愛" || partial.ConsumedKeySize != 2 {
		t.Fatalf("partial = %+v", partial)
	}
	if partial.Cost <= seg.Candidate(0).Cost {
		t.Errorf("partial cost %d should exceed top cost %d", partial.Cost, seg.Candidate(0).Cost)
	}
}

func TestHistoryCompoundTail(t *testing.T) {
	tokens := []model.Token{
		{Key: "おいかわたくや", Value: "及川卓也", Cost: 1000, LID: pos.LastNameID, RID: pos.FirstNameID},
		{Key: "たくや", Value: "拓也", Cost: 3000, LID: pos.FirstNameID, RID: pos.FirstNameID},
	}
	fx := newFixture(t, tokens, nil)

	segs := model.NewSegments()
	his := segs.AddSegment()
	his.SetKey("おいかわ")
	his.Type = model.History
	c := his.AddCandidate()
	c.Key, c.Value = "おいかわ", "及川"
	c.ContentKey, c.ContentValue = "おいかわ", "及川"
	c.LID, c.RID = pos.LastNameID, pos.LastNameID
	segs.AddSegment().SetKey("たくや")

	if err := fx.conv.Convert(segs); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if segs.HistorySegmentsSize() != 1 || segs.ConversionSegmentsSize() != 1 {
		t.Fatalf("history/conversion = %d/%d", segs.HistorySegmentsSize(), segs.ConversionSegmentsSize())
	}
	top := segs.ConversionSegment(0).Candidate(0)
	if top.Value != "卓也" {
		t.Fatalf("top = %q, want 卓也", top.Value)
	}
	if top.Attributes&model.ContextSensitive == 0 {
		t.Errorf("tail of a history compound must be context sensitive")
	}
	if !contains(candidateValues(segs.ConversionSegment(0)), "拓也") {
		t.Errorf("plain reading lost: %v", candidateValues(segs.ConversionSegment(0)))
	}
}

func TestFixedValueSegment(t *testing.T) {
	fx := newFixture(t, aiuTokens(), nil)
	segs := newSegments(model.Conversion, "あい", "う")
	fixed := segs.Segment(0)
	fixed.Type = model.FixedValue
	c := fixed.AddCandidate()
	c.Key, c.Value = "あい", "哀"
	c.ContentKey, c.ContentValue = "あい", "哀"
	c.LID, c.RID = pos.NounID, pos.NounID

	if err := fx.conv.Convert(segs); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if segs.ConversionSegmentsSize() != 2 {
		t.Fatalf("segments = %d", segs.ConversionSegmentsSize())
	}
	seg := segs.ConversionSegment(0)
	if seg.Type != model.FixedValue {
		t.Errorf("type = %s", seg.Type)
	}
	if seg.Candidate(0).Value != "哀" {
		t.Errorf("top = %q, want the fixed value", seg.Candidate(0).Value)
	}
}

func TestFixedBoundaryKeepsKey(t *testing.T) {
	fx := newFixture(t, aiuTokens(), nil)
	segs := newSegments(model.Conversion, "あいう")
	segs.Segment(0).Type = model.FixedBoundary
	if err := fx.conv.Convert(segs); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if segs.ConversionSegmentsSize() != 1 {
		t.Fatalf("segments = %d, want 1", segs.ConversionSegmentsSize())
	}
	seg := segs.ConversionSegment(0)
	if seg.Key() != "あいう" || seg.Type != model.FixedBoundary {
		t.Fatalf("segment = %q %s", seg.Key(), seg.Type)
	}
	if seg.Candidate(0).Value != "愛鵜" {
		t.Errorf("top = %q", seg.Candidate(0).Value)
	}
}

func TestRejectedRequests(t *testing.T) {
	tests := []struct {
		name string
		segs func() *model.Segments
		want error
	}{
		{"empty key", func() *model.Segments {
			return newSegments(model.Conversion, "")
		}, ErrEmptyOrOversizedKey},
		{"no segments", func() *model.Segments {
			return newSegments(model.Conversion)
		}, ErrEmptyOrOversizedKey},
		{"prediction without segments", func() *model.Segments {
			return newSegments(model.Prediction)
		}, ErrEmptyOrOversizedKey},
		{"reverse without segments", func() *model.Segments {
			return newSegments(model.ReverseConversion)
		}, ErrEmptyOrOversizedKey},
		{"prediction of two segments", func() *model.Segments {
			return newSegments(model.Prediction, "あ", "い")
		}, ErrUnsupportedRequest},
		{"reverse of fixed boundary", func() *model.Segments {
			s := newSegments(model.ReverseConversion, "愛")
			s.Segment(0).Type = model.FixedBoundary
			return s
		}, ErrUnsupportedRequest},
		{"too many segments", func() *model.Segments {
			keys := make([]string, maxSegmentsSize)
			for i := range keys {
				keys[i] = "あ"
			}
			return newSegments(model.Conversion, keys...)
		}, ErrTooManySegments},
		{"history without candidate", func() *model.Segments {
			s := model.NewSegments()
			h := s.AddSegment()
			h.SetKey("あ")
			h.Type = model.History
			s.AddSegment().SetKey("い")
			return s
		}, ErrInvalidHistory},
	}
	fx := newFixture(t, aiuTokens(), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segs := tt.segs()
			before := segs.SegmentsSize()
			err := fx.conv.Convert(segs)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if Classify(err) != KindRejected {
				t.Errorf("kind = %s", Classify(err))
			}
			if segs.SegmentsSize() != before {
				t.Errorf("rejected request changed segments: %d -> %d", before, segs.SegmentsSize())
			}
		})
	}
}

func TestRejectedRequestKeepsCachedLattice(t *testing.T) {
	fx := newFixture(t, aiuTokens(), nil)
	segs := newSegments(model.Prediction, "あい")
	if err := fx.conv.Convert(segs); err != nil {
		t.Fatalf("Convert: %v", err)
	}

	seg := segs.ConversionSegment(0)
	seg.SetKey("")
	seg.ClearCandidates()
	if err := fx.conv.Convert(segs); !errors.Is(err, ErrEmptyOrOversizedKey) {
		t.Fatalf("err = %v", err)
	}
	if lat := segs.CachedLattice(); !lat.HasLattice() || lat.Key() != "あい" {
		t.Fatalf("cached lattice lost after a rejected request: %q", lat.Key())
	}

	seg.SetKey("あいう")
	if err := fx.conv.Convert(segs); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if top := segs.ConversionSegment(0).Candidate(0).Value; top != "愛鵜" {
		t.Errorf("top = %q", top)
	}
}

func TestPredictionInnerSegments(t *testing.T) {
	table := pos.NewTable()
	no := table.ID("助詞,連体化,*,*,*,*,の")
	wa := table.ID("助詞,係助詞,*,*,*,*,は")
	desu := table.ID("助動詞,*,*,*,特殊・デス,基本形,です")
	tokens := []model.Token{
		noun("わたし", "私", 500),
		{Key: "の", Value: "の", Cost: 100, LID: no, RID: no},
		noun("なまえ", "名前", 500),
		{Key: "は", Value: "は", Cost: 100, LID: wa, RID: wa},
		noun("なかの", "中野", 500),
		{Key: "です", Value: "です", Cost: 100, LID: desu, RID: desu},
	}
	fx := newFixtureWithTable(t, table, tokens, nil)

	segs := newSegments(model.Prediction, "わたしのなまえはなかのです")
	segs.MaxPredictionCandidates = 1
	if err := fx.conv.Convert(segs); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	seg := segs.ConversionSegment(0)
	if seg.CandidatesSize() != 1 {
		t.Fatalf("candidates = %v", candidateValues(seg))
	}
	cand := seg.Candidate(0)
	if cand.Value != "私の名前は中野です" {
		t.Fatalf("top = %q", cand.Value)
	}

	inner := cand.InnerSegments()
	want := []struct{ key, value, contentKey string }{
		{"わたしの", "私の", "わたし"},
		{"なまえは", "名前は", "なまえ"},
		{"なかのです", "中野です", "なかの"},
	}
	if len(inner) != len(want) {
		t.Fatalf("inner segments = %+v", inner)
	}
	for i, w := range want {
		got := inner[i]
		if got.Key != w.key || got.Value != w.value || got.ContentKey != w.contentKey {
			t.Errorf("inner[%d] = %+v, want %s/%s/%s", i, got, w.key, w.value, w.contentKey)
		}
	}
}

func TestFixedBoundaryIsNotCrossed(t *testing.T) {
	tokens := []model.Token{
		noun("しょうめい", "証明", 100),
		noun("しょう", "賞", 300),
		{Key: "め", Value: "目", Cost: 300, LID: pos.SuffixID, RID: pos.SuffixID},
		noun("いできる", "居出来る", 300),
		noun("できる", "出来る", 100),
	}
	fx := newFixture(t, tokens, nil)

	segs := newSegments(model.Conversion, "しょうめ", "いできる")
	segs.Segment(0).Type = model.FixedBoundary
	if err := fx.conv.Convert(segs); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if segs.ConversionSegmentsSize() < 2 {
		t.Fatalf("segments = %d", segs.ConversionSegmentsSize())
	}
	first := segs.ConversionSegment(0)
	if first.Key() != "しょうめ" || first.Type != model.FixedBoundary {
		t.Fatalf("first segment = %q %s", first.Key(), first.Type)
	}
	rest := segmentKeys(segs, segs.HistorySegmentsSize()+1, segs.SegmentsSize())
	if rest != "いできる" {
		t.Fatalf("remaining key = %q", rest)
	}

	if first.Candidate(0).Value != "賞目" {
		t.Errorf("top of first segment = %q", first.Candidate(0).Value)
	}
	for i := 0; i < segs.ConversionSegmentsSize(); i++ {
		seg := segs.ConversionSegment(i)
		for _, c := range seg.Candidates() {
			if c.Key != seg.Key() {
				t.Errorf("segment %q: candidate %s has key %q", seg.Key(), c.Value, c.Key)
			}
			if c.Value == "証明" {
				t.Errorf("segment %q: 証明 crosses the fixed boundary", seg.Key())
			}
		}
	}
}

func TestLongHistoryIsDropped(t *testing.T) {
	fx := newFixture(t, aiuTokens(), nil)
	segs := model.NewSegments()
	key := strings.Repeat("か", 100)
	for i := 0; i < 4; i++ {
		h := segs.AddSegment()
		h.SetKey(key)
		h.Type = model.History
		c := h.AddCandidate()
		c.Key, c.Value = key, key
		c.ContentKey, c.ContentValue = key, key
		c.LID, c.RID = pos.NounID, pos.NounID
	}
	segs.AddSegment().SetKey("あ")

	if err := fx.conv.Convert(segs); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if segs.HistorySegmentsSize() != 0 {
		t.Errorf("history = %d, want 0", segs.HistorySegmentsSize())
	}
	if segs.ConversionSegmentsSize() != 1 {
		t.Fatalf("conversion segments = %d", segs.ConversionSegmentsSize())
	}
	seg := segs.ConversionSegment(0)
	if seg.Key() != "あ" || seg.CandidatesSize() == 0 {
		t.Errorf("segment %q has candidates %v", seg.Key(), candidateValues(seg))
	}
}

func TestOversizedKey(t *testing.T) {
	fx := newFixture(t, aiuTokens(), nil)
	long := make([]byte, maxCharLength)
	for i := range long {
		long[i] = 'a'
	}
	err := fx.conv.Convert(newSegments(model.Conversion, string(long)))
	if !errors.Is(err, ErrEmptyOrOversizedKey) {
		t.Fatalf("err = %v", err)
	}

	reverse := string(long[:maxCharLengthForReverse])
	err = fx.conv.Convert(newSegments(model.ReverseConversion, reverse))
	if !errors.Is(err, ErrEmptyOrOversizedKey) {
		t.Fatalf("reverse err = %v", err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{nil, KindUnknown},
		{ErrTooManySegments, KindRejected},
		{fmt.Errorf("wrapped: %w", ErrInvalidHistory), KindRejected},
		{ErrNoPath, KindInternal},
		{ErrSegmentationFailed, KindInternal},
		{errors.New("other"), KindUnknown},
	}
	for _, tt := range tests {
		if got := Classify(tt.err); got != tt.want {
			t.Errorf("Classify(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

func TestNormalizeHistorySegments(t *testing.T) {
	segs := model.NewSegments()
	add := func(key, value string) {
		s := segs.AddSegment()
		s.SetKey(key)
		s.Type = model.History
		c := s.AddCandidate()
		c.Key, c.Value, c.ContentKey, c.ContentValue = key, value, key, value
	}
	add("１２３", "１２３")
	add("ａｂ", "ＡＢ")
	normalizeHistorySegments(segs)

	num := segs.Segment(0)
	if num.Key() != "3" || num.Candidate(0).Value != "3" || num.Candidate(0).ContentKey != "3" {
		t.Errorf("number history = %q/%q", num.Key(), num.Candidate(0).Value)
	}
	alpha := segs.Segment(1)
	if alpha.Key() != "ab" || alpha.Candidate(0).Value != "AB" {
		t.Errorf("alphabet history = %q/%q", alpha.Key(), alpha.Candidate(0).Value)
	}
}

// bruteForce returns the cheapest BOS to EOS cost by enumerating every path.
func bruteForce(lat *lattice.Lattice, conn connector.Connector) int {
	best := veryBigCost
	var walk func(at int, rid uint16, cost int)
	walk = func(at int, rid uint16, cost int) {
		if at == len(lat.Key()) {
			best = min(best, cost+conn.TransitionCost(rid, lat.EOS().LID))
			return
		}
		for n := lat.BeginNodes(at); n != nil; n = lat.NextBegin(n) {
			walk(n.EndPos, n.RID, cost+conn.TransitionCost(rid, n.LID)+n.WCost)
		}
	}
	walk(0, lat.BOS().RID, 0)
	return best
}

func TestViterbiMatchesBruteForce(t *testing.T) {
	tokens := append(aiuTokens(),
		noun("あ", "亜", 120),
		noun("い", "胃", 80),
		noun("いう", "言う", 150),
		model.Token{Key: "う", Value: "宇", Cost: 60, LID: pos.SuffixID, RID: pos.SuffixID},
	)
	setup := func(m *connector.Matrix) {
		m.Set(pos.NounID, pos.NounID, 40)
		m.Set(pos.NounID, pos.SuffixID, 300)
		m.Set(pos.BOSEOSID, pos.NounID, 10)
		m.Set(pos.UnknownID, pos.NounID, 5)
	}

	for _, prediction := range []bool{false, true} {
		fx := newFixture(t, tokens, setup)
		segs := newSegments(model.Conversion, "あいう")
		lat := segs.CachedLattice()
		if err := fx.conv.makeLattice(Request{}, segs, lat); err != nil {
			t.Fatalf("makeLattice: %v", err)
		}
		want := bruteForce(lat, fx.conn)

		var err error
		if prediction {
			err = fx.conv.predictionViterbi(segs, lat)
		} else {
			err = fx.conv.viterbi(segs, lat)
		}
		if err != nil {
			t.Fatalf("prediction=%v: %v", prediction, err)
		}
		if got := lat.EOS().Cost; got != want {
			t.Errorf("prediction=%v: EOS cost = %d, want %d", prediction, got, want)
		}

		// the linked path must add up to the same cost
		sum := 0
		for n := lat.BOS(); n.Next != lattice.NilNode; {
			next := lat.Node(n.Next)
			sum += fx.conn.TransitionCost(n.RID, next.LID) + next.WCost
			n = next
		}
		if sum != want {
			t.Errorf("prediction=%v: path cost = %d, want %d", prediction, sum, want)
		}
	}
}

func TestViterbiRespectsSegmentBoundaries(t *testing.T) {
	fx := newFixture(t, aiuTokens(), nil)
	segs := newSegments(model.Conversion, "あ", "いう")
	lat := segs.CachedLattice()
	if err := fx.conv.makeLattice(Request{}, segs, lat); err != nil {
		t.Fatalf("makeLattice: %v", err)
	}
	if err := fx.conv.viterbi(segs, lat); err != nil {
		t.Fatalf("viterbi: %v", err)
	}
	for n := lat.Node(lat.BOS().Next); n.Type != lattice.EOSNode; n = lat.Node(n.Next) {
		if n.BeginPos < 3 && n.EndPos > 3 {
			t.Fatalf("%s crosses the segment boundary", n)
		}
	}
}
