package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"henkan/config"
	"henkan/connector"
	"henkan/dictionary"
	"henkan/engine"
	"henkan/model"
	"henkan/pos"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	table := pos.NewTable()
	tokens := []model.Token{
		{Key: "あい", Value: "愛", Cost: 100, LID: pos.NounID, RID: pos.NounID},
		{Key: "う", Value: "鵜", Cost: 100, LID: pos.NounID, RID: pos.NounID},
		{Key: "あいう", Value: "阿伊宇", Cost: 500, LID: pos.NounID, RID: pos.NounID},
	}
	cfg := config.Defaults()
	eng, err := engine.New(cfg, engine.Parts{
		Table:     table,
		Connector: connector.NewMatrix(table.Len(), 0),
		System:    dictionary.NewMemory(tokens),
	})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	s, err := New(context.Background(), cfg, eng.Converter, eng.Store())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func snapshot(t *testing.T, rec *httptest.ResponseRecorder) model.Snapshot {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var snap model.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return snap
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)
	if rec := do(t, s, http.MethodGet, "/healthz", nil); rec.Code != http.StatusOK {
		t.Errorf("healthz = %d", rec.Code)
	}
	do(t, s, http.MethodPost, "/api/convert", map[string]any{"key": "あいう"})
	if rec := do(t, s, http.MethodGet, "/metrics", nil); rec.Code != http.StatusOK ||
		!bytes.Contains(rec.Body.Bytes(), []byte("henkan_conversions_total")) {
		t.Errorf("metrics = %d", rec.Code)
	}
}

func TestConvert(t *testing.T) {
	s := newTestServer(t)
	snap := snapshot(t, do(t, s, http.MethodPost, "/api/convert", map[string]any{"key": "あいう"}))
	if snap.RequestType != "conversion" || len(snap.Segments) != 2 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if got := snap.Segments[0].Candidates[0].Value; got != "愛" {
		t.Errorf("top = %q", got)
	}

	snap = snapshot(t, do(t, s, http.MethodPost, "/api/convert",
		map[string]any{"key": "あいう", "type": "prediction"}))
	if len(snap.Segments) != 1 || snap.Segments[0].Candidates[0].Value != "愛鵜" {
		t.Errorf("prediction = %+v", snap)
	}
}

func TestConvertErrors(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		name string
		body any
		code int
	}{
		{"bad type", map[string]any{"key": "あ", "type": "guess"}, http.StatusBadRequest},
		{"unknown field", map[string]any{"key": "あ", "mode": "x"}, http.StatusBadRequest},
		{"empty key", map[string]any{"key": ""}, http.StatusUnprocessableEntity},
		{"history without value", map[string]any{
			"key":     "あ",
			"history": []map[string]any{{"key": ""}},
		}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := do(t, s, http.MethodPost, "/api/convert", tt.body); rec.Code != tt.code {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.code, rec.Body.String())
			}
		})
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t)
	snap := snapshot(t, do(t, s, http.MethodPost, "/api/sessions/a/convert",
		map[string]any{"key": "あい", "type": "prediction"}))
	if snap.Segments[0].Candidates[0].Value != "愛" {
		t.Fatalf("first keystroke = %+v", snap)
	}
	snap = snapshot(t, do(t, s, http.MethodPost, "/api/sessions/a/convert",
		map[string]any{"key": "あいう", "type": "prediction"}))
	if len(snap.Segments) != 1 || snap.Segments[0].Candidates[0].Value != "愛鵜" {
		t.Fatalf("second keystroke = %+v", snap)
	}

	snap = snapshot(t, do(t, s, http.MethodPost, "/api/sessions/a/commit",
		map[string]any{"candidates": []int{1}}))
	if len(snap.Segments) != 1 || snap.Segments[0].Type != "history" {
		t.Fatalf("commit = %+v", snap)
	}
	if c := snap.Segments[0].Candidates; len(c) != 1 || c[0].Value != "阿伊宇" {
		t.Errorf("committed = %+v", c)
	}

	if rec := do(t, s, http.MethodPost, "/api/sessions/a/commit", map[string]any{}); rec.Code != http.StatusConflict {
		t.Errorf("second commit = %d", rec.Code)
	}
	if rec := do(t, s, http.MethodDelete, "/api/sessions/a", nil); rec.Code != http.StatusNoContent {
		t.Errorf("delete = %d", rec.Code)
	}
	if rec := do(t, s, http.MethodPost, "/api/sessions/a/commit", map[string]any{}); rec.Code != http.StatusNotFound {
		t.Errorf("commit after delete = %d", rec.Code)
	}
}

func TestUserdictChangesConversion(t *testing.T) {
	s := newTestServer(t)
	entry := map[string]any{"key": "えお", "value": "江尾", "pos": "名詞,一般"}

	snap := snapshot(t, do(t, s, http.MethodPost, "/api/convert", map[string]any{"key": "えお"}))
	if snap.Segments[0].Candidates[0].Value == "江尾" {
		t.Fatalf("word known before it was added")
	}

	if rec := do(t, s, http.MethodPost, "/api/userdict", entry); rec.Code != http.StatusCreated {
		t.Fatalf("add = %d: %s", rec.Code, rec.Body.String())
	}
	snap = snapshot(t, do(t, s, http.MethodPost, "/api/convert", map[string]any{"key": "えお"}))
	top := snap.Segments[0].Candidates[0]
	if top.Value != "江尾" || top.Attributes&model.UserDictionary == 0 {
		t.Errorf("top after add = %+v", top)
	}

	rec := do(t, s, http.MethodGet, "/api/userdict", nil)
	var entries []map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil || len(entries) != 1 {
		t.Fatalf("list = %s", rec.Body.String())
	}

	if rec := do(t, s, http.MethodPost, "/api/userdict", map[string]any{"key": "x", "value": "", "pos": "名詞"}); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid add = %d", rec.Code)
	}
	if rec := do(t, s, http.MethodDelete, "/api/userdict", entry); rec.Code != http.StatusOK {
		t.Errorf("remove = %d", rec.Code)
	}
	snap = snapshot(t, do(t, s, http.MethodPost, "/api/convert", map[string]any{"key": "えお"}))
	if snap.Segments[0].Candidates[0].Value == "江尾" {
		t.Errorf("word still converted after removal")
	}
}
