package dictionary

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"henkan/connector"
	"henkan/model"
	"henkan/pos"
)

func testTokens() []model.Token {
	return []model.Token{
		{Key: "わたし", Value: "渡し", Cost: 200, LID: 7, RID: 7},
		{Key: "わたし", Value: "私", Cost: 100, LID: 7, RID: 7},
		{Key: "わた", Value: "綿", Cost: 300, LID: 7, RID: 7},
		{Key: "わたしたち", Value: "私たち", Cost: 150, LID: 7, RID: 7},
		{Key: "か", Value: "蚊", Cost: 400, LID: 7, RID: 7},
		{Key: "が", Value: "が", Cost: 50, LID: 2, RID: 2},
		{Key: "がっこう", Value: "学校", Cost: 120, LID: 7, RID: 7},
	}
}

func values(tokens []model.Token) []string {
	var out []string
	for _, t := range tokens {
		out = append(out, t.Value)
	}
	return out
}

func keys(tokens []model.Token) []string {
	var out []string
	for _, t := range tokens {
		out = append(out, t.Key)
	}
	return out
}

func TestLookupPrefix(t *testing.T) {
	d := NewMemory(testTokens())
	c := &Collector{}
	d.LookupPrefix("わたしたち", LookupOptions{}, c)
	want := []string{"綿", "私", "渡し", "私たち"}
	if got := values(c.Tokens); !reflect.DeepEqual(got, want) {
		t.Fatalf("values = %v, want %v", got, want)
	}
}

func TestLookupPrefixKanaModifierInsensitive(t *testing.T) {
	d := NewMemory(testTokens())

	plain := &Collector{}
	d.LookupPrefix("かっこう", LookupOptions{}, plain)
	if got := values(plain.Tokens); !reflect.DeepEqual(got, []string{"蚊"}) {
		t.Fatalf("plain lookup = %v", got)
	}

	expanded := &Collector{}
	d.LookupPrefix("かっこう", LookupOptions{KanaModifierInsensitive: true}, expanded)
	if got, want := values(expanded.Tokens), []string{"蚊", "が", "学校"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expanded values = %v, want %v", got, want)
	}
	if got, want := keys(expanded.Tokens), []string{"か", "か", "かっこう"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expanded keys = %v, want %v", got, want)
	}
}

type expansionRecorder struct {
	Collector
	actual []string
}

func (r *expansionRecorder) OnActualKey(key, actual string, expanded bool) TraverseResult {
	if expanded {
		r.actual = append(r.actual, actual)
	}
	return Continue
}

func TestOnActualKeyReportsExpansion(t *testing.T) {
	d := NewMemory(testTokens())
	r := &expansionRecorder{}
	d.LookupPrefix("かっこう", LookupOptions{KanaModifierInsensitive: true}, r)
	if want := []string{"が", "がっこう"}; !reflect.DeepEqual(r.actual, want) {
		t.Fatalf("expanded actual keys = %v, want %v", r.actual, want)
	}
}

func TestLookupPredictive(t *testing.T) {
	d := NewMemory(testTokens())
	c := &Collector{}
	d.LookupPredictive("わた", LookupOptions{}, c)
	if got, want := values(c.Tokens), []string{"綿", "私", "渡し", "私たち"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("values = %v, want %v", got, want)
	}
	if got, want := keys(c.Tokens), []string{"わた", "わたし", "わたし", "わたしたち"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("keys = %v, want %v", got, want)
	}

	empty := &Collector{}
	d.LookupPredictive("", LookupOptions{}, empty)
	if len(empty.Tokens) != 0 {
		t.Fatalf("empty key returned %v", empty.Tokens)
	}
}

func TestLookupExactAndLimit(t *testing.T) {
	d := NewMemory(testTokens())
	c := &Collector{Limit: 1}
	d.LookupExact("わたし", c)
	if got := values(c.Tokens); !reflect.DeepEqual(got, []string{"私"}) {
		t.Fatalf("values = %v", got)
	}
}

func TestLookupReverse(t *testing.T) {
	d := NewMemory(testTokens())
	c := &Collector{}
	d.LookupReverse("私たちは", c)
	want := []model.Token{
		{Key: "私", Value: "わたし", Cost: 100, LID: 7, RID: 7},
		{Key: "私たち", Value: "わたしたち", Cost: 150, LID: 7, RID: 7},
	}
	if !reflect.DeepEqual(c.Tokens, want) {
		t.Fatalf("tokens = %+v, want %+v", c.Tokens, want)
	}
}

type skipVisitor struct {
	Collector
	skip string
}

func (s *skipVisitor) OnKey(key string) TraverseResult {
	if key == s.skip {
		return SkipKey
	}
	return Continue
}

func TestMergedStopsAcrossDictionaries(t *testing.T) {
	first := NewMemory([]model.Token{{Key: "あ", Value: "亜", Cost: 1}})
	second := NewMemory([]model.Token{{Key: "あ", Value: "阿", Cost: 1}})
	m := Merged{first, nil, second}

	all := &Collector{}
	m.LookupPrefix("あ", LookupOptions{}, all)
	if got := values(all.Tokens); !reflect.DeepEqual(got, []string{"亜", "阿"}) {
		t.Fatalf("merged = %v", got)
	}
	one := &Collector{Limit: 1}
	m.LookupPrefix("あ", LookupOptions{}, one)
	if got := values(one.Tokens); !reflect.DeepEqual(got, []string{"亜"}) {
		t.Fatalf("merged with limit = %v", got)
	}
}

func TestCachedReplaysLookups(t *testing.T) {
	d := NewMemory(testTokens())
	cached, err := NewCached(d, 8)
	if err != nil {
		t.Fatal(err)
	}
	direct := &skipVisitor{skip: "わたし"}
	d.LookupPrefix("わたしたち", LookupOptions{}, direct)
	for i := 0; i < 2; i++ {
		v := &skipVisitor{skip: "わたし"}
		cached.LookupPrefix("わたしたち", LookupOptions{}, v)
		if !reflect.DeepEqual(v.Tokens, direct.Tokens) {
			t.Fatalf("pass %d: cached = %v, direct = %v", i, values(v.Tokens), values(direct.Tokens))
		}
	}
	if got := values(direct.Tokens); !reflect.DeepEqual(got, []string{"綿", "私たち"}) {
		t.Fatalf("skip visitor = %v", got)
	}
}

func TestImageRoundTrip(t *testing.T) {
	table := pos.NewTable()
	particle := table.ID("助詞,格助詞,一般,*,*,*,が")
	conn := connector.NewMatrix(table.Len(), 100)
	conn.Set(0, particle, 42)
	system := testTokens()
	suffix := []model.Token{{Key: "が", Value: "が", Cost: 10, LID: particle, RID: particle, Attributes: model.TokenSuffixDictionary}}

	path := filepath.Join(t.TempDir(), "system.img")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteImage(f, &ImageData{Table: table, Connector: conn, System: system, Suffix: suffix}); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	img, err := OpenImage(path)
	if err != nil {
		t.Fatal(err)
	}
	defer img.Close()

	if got, ok := img.Table().Lookup("助詞,格助詞,一般,*,*,*,が"); !ok || got != particle {
		t.Fatalf("pos id = %d, %v", got, ok)
	}
	if got := img.Connector().TransitionCost(0, particle); got != 42 {
		t.Fatalf("transition cost = %d", got)
	}
	want := NewMemory(system).Entries()
	if got := img.System().Entries(); !reflect.DeepEqual(got, want) {
		t.Fatalf("system entries = %+v, want %+v", got, want)
	}
	if got := img.Suffix().Entries(); !reflect.DeepEqual(got, suffix) {
		t.Fatalf("suffix entries = %+v", got)
	}

	c := &Collector{}
	img.System().LookupPrefix("わたしたち", LookupOptions{}, c)
	if got := values(c.Tokens); !reflect.DeepEqual(got, []string{"綿", "私", "渡し", "私たち"}) {
		t.Fatalf("image lookup = %v", got)
	}
}

func TestOpenImageRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.img")
	if err := os.WriteFile(path, []byte("not an image at all"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenImage(path); err == nil {
		t.Fatal("expected an error")
	}
}

func TestLoadTSV(t *testing.T) {
	src := "# comment\nとうきょう\t東京\t名詞,固有名詞,地域,一般,*,*\t1200\nカイギ\t会議\t名詞,サ変接続,*,*,*,*\n\n"
	encoded, _, err := transform.String(japanese.EUCJP.NewEncoder(), src)
	if err != nil {
		t.Fatal(err)
	}
	table := pos.NewTable()
	tokens, err := LoadTSV(strings.NewReader(encoded), EncodingEUCJP, table)
	if err != nil {
		t.Fatal(err)
	}
	region, _ := table.Lookup("名詞,固有名詞,地域,一般,*,*")
	want := []model.Token{
		{Key: "とうきょう", Value: "東京", Cost: 1200, LID: region, RID: region},
		{Key: "かいぎ", Value: "会議", Cost: DefaultTSVCost, LID: pos.UnknownID, RID: pos.UnknownID},
	}
	if !reflect.DeepEqual(tokens, want) {
		t.Fatalf("tokens = %+v, want %+v", tokens, want)
	}
}

func TestReadTSVErrors(t *testing.T) {
	tests := []struct {
		name, src, enc string
	}{
		{"too few columns", "あ\t亜\n", EncodingUTF8},
		{"bad cost", "あ\t亜\t名詞,一般,*,*,*,*\tx\n", EncodingUTF8},
		{"unknown encoding", "あ\t亜\t名詞\n", "latin-9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadTSV(strings.NewReader(tt.src), tt.enc); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestSuppression(t *testing.T) {
	s := NewSuppression()
	if s.IsSuppressed("あ", "亜") || !s.IsEmpty() {
		t.Fatal("new suppression should be empty")
	}
	s.Add("あ", "亜")
	s.Add("", "阿")
	tests := []struct {
		key, value string
		want       bool
	}{
		{"あ", "亜", true},
		{"い", "亜", false},
		{"お", "阿", true},
		{"あ", "吾", false},
	}
	for _, tt := range tests {
		if got := s.IsSuppressed(tt.key, tt.value); got != tt.want {
			t.Errorf("IsSuppressed(%q, %q) = %v, want %v", tt.key, tt.value, got, tt.want)
		}
	}
	var nilSuppression *Suppression
	if nilSuppression.IsSuppressed("あ", "亜") {
		t.Error("nil suppression suppresses")
	}
}

func TestSuggestionFilter(t *testing.T) {
	f, err := ReadSuggestionFilter(strings.NewReader("# bad words\n駄目\n\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !f.IsBadSuggestion("駄目") || f.IsBadSuggestion("良い") {
		t.Fatal("unexpected filter result")
	}
}

func TestBuilder(t *testing.T) {
	table := pos.NewTable()
	b := NewBuilder(table)
	noun := model.Morpheme{Surface: "猫", Reading: "ネコ", POS: "名詞,一般,*,*,*,*"}
	suffix := model.Morpheme{Surface: "さん", Reading: "サン", POS: "名詞,接尾,人名,*,*,*"}
	b.AddSentence([]model.Morpheme{noun, suffix})
	b.AddTokens([]model.Token{{Key: "ねこ", Value: "猫", Cost: 9000, LID: pos.NounID, RID: pos.NounID}})

	img := b.Build()
	suffixID, _ := table.Lookup("名詞,接尾,人名,*,*,*")
	// two corpus tokens, each with probability 1/2
	wantSystem := []model.Token{
		{Key: "さん", Value: "さん", Cost: 346, LID: suffixID, RID: suffixID},
		{Key: "ねこ", Value: "猫", Cost: 346, LID: pos.NounID, RID: pos.NounID},
	}
	if !reflect.DeepEqual(img.System, wantSystem) {
		t.Fatalf("system = %+v, want %+v", img.System, wantSystem)
	}
	if len(img.Suffix) != 1 || img.Suffix[0].Value != "さん" || img.Suffix[0].Attributes != model.TokenSuffixDictionary {
		t.Fatalf("suffix = %+v", img.Suffix)
	}
	seen := img.Connector.TransitionCost(pos.BOSEOSID, pos.NounID)
	unseen := img.Connector.TransitionCost(pos.BOSEOSID, pos.NumberID)
	if seen >= unseen {
		t.Fatalf("BOS->noun %d should be cheaper than BOS->number %d", seen, unseen)
	}
}
