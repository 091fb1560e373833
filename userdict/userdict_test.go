package userdict

import (
	"context"
	"errors"
	"os"
	"testing"

	"henkan/dictionary"
	"henkan/model"
	"henkan/pos"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		e  Entry
		ok bool
	}{
		{Entry{"ほげ", "保下", "名詞,一般"}, true},
		{Entry{"", "嫌な語", SuppressionPOS}, true},
		{Entry{"", "保下", "名詞,一般"}, false},
		{Entry{"ほげ", "", "名詞,一般"}, false},
		{Entry{"ほげ", "保下", ""}, false},
		{Entry{"ほ\tげ", "保下", "名詞,一般"}, false},
	}
	for _, tt := range tests {
		err := tt.e.Validate()
		if (err == nil) != tt.ok {
			t.Errorf("Validate(%q) = %v", tt.e.String(), err)
		}
		if err != nil && !errors.Is(err, ErrInvalidEntry) {
			t.Errorf("Validate(%q) does not wrap ErrInvalidEntry", tt.e.String())
		}
	}
}

func TestParseEntry(t *testing.T) {
	e := Entry{"ほげ", "保下", "名詞,一般"}
	got, err := parseEntry(e.String())
	if err != nil || got != e {
		t.Fatalf("parseEntry = %+v, %v", got, err)
	}
	if _, err := parseEntry("ほげ\t保下"); err == nil {
		t.Errorf("two fields accepted")
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	b := Entry{"ほげ", "保下", "名詞,一般"}
	a := Entry{"あい", "藍", "名詞,一般"}
	for _, e := range []Entry{b, a, b} {
		if err := s.Add(ctx, e); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if err := s.Add(ctx, Entry{Key: "x"}); err == nil {
		t.Errorf("invalid entry stored")
	}
	got, _ := s.List(ctx)
	if len(got) != 2 || got[0] != a || got[1] != b {
		t.Fatalf("List = %v", got)
	}
	if err := s.Remove(ctx, a); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if got, _ := s.List(ctx); len(got) != 1 {
		t.Fatalf("List after Remove = %v", got)
	}
}

func exact(d dictionary.Dictionary, key string) []model.Token {
	var c dictionary.Collector
	d.LookupExact(key, &c)
	return c.Tokens
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	for _, e := range []Entry{
		{"ほげ", "保下", "名詞,一般"},
		{"フガ", "普賀", "名詞,固有名詞,地域,一般"},
		{"", "嫌語", SuppressionPOS},
		{"ぴよ", "火余", SuppressionPOS},
	} {
		if err := s.Add(ctx, e); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	table := pos.NewTable()
	dict, sup, err := Load(ctx, s, table)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	hoge := exact(dict, "ほげ")
	if len(hoge) != 1 || hoge[0].Value != "保下" || hoge[0].LID != pos.NounID {
		t.Fatalf("ほげ = %+v", hoge)
	}
	if hoge[0].Attributes&model.TokenUserDictionary == 0 || hoge[0].Cost != WordCost {
		t.Errorf("ほげ token %+v", hoge[0])
	}
	// katakana readings are folded; an unknown POS falls back to noun
	fuga := exact(dict, "ふが")
	if len(fuga) != 1 || fuga[0].LID != pos.NounID {
		t.Errorf("ふが = %+v", fuga)
	}
	if len(exact(dict, "ぴよ")) != 0 {
		t.Errorf("suppression entry became a word")
	}

	if !sup.IsSuppressed("なんでも", "嫌語") {
		t.Errorf("empty-key suppression should match any reading")
	}
	if !sup.IsSuppressed("ぴよ", "火余") || sup.IsSuppressed("ほげ", "火余") {
		t.Errorf("keyed suppression mismatch")
	}
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("HENKAN_TEST_POSTGRES")
	if dsn == "" {
		t.Skip("HENKAN_TEST_POSTGRES not set")
	}
	ctx := context.Background()
	db, err := OpenPostgres(ctx, dsn)
	if err != nil {
		t.Fatalf("OpenPostgres: %v", err)
	}
	defer db.Close()
	s, err := NewPostgresStore(ctx, db)
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}
	e := Entry{"てすと", "手洲都", "名詞,一般"}
	if err := s.Add(ctx, e); err != nil {
		t.Fatalf("Add: %v", err)
	}
	defer s.Remove(ctx, e)
	got, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	found := false
	for _, g := range got {
		found = found || g == e
	}
	if !found {
		t.Errorf("entry missing from %v", got)
	}
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("HENKAN_TEST_REDIS")
	if url == "" {
		t.Skip("HENKAN_TEST_REDIS not set")
	}
	ctx := context.Background()
	client, err := DialRedis(ctx, url)
	if err != nil {
		t.Fatalf("DialRedis: %v", err)
	}
	defer client.Close()
	s := NewRedisStore(client, "henkan:test:userdict")
	defer client.Del(ctx, "henkan:test:userdict")

	e := Entry{"てすと", "手洲都", "名詞,一般"}
	if err := s.Add(ctx, e); err != nil {
		t.Fatalf("Add: %v", err)
	}
	got, err := s.List(ctx)
	if err != nil || len(got) != 1 || got[0] != e {
		t.Fatalf("List = %v, %v", got, err)
	}
	if err := s.Remove(ctx, e); err != nil {
		t.Fatalf("Remove: %v", err)
	}
}
