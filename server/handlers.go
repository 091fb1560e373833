package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/mux"

	"henkan/converter"
	"henkan/keycorrector"
	"henkan/metrics"
	"henkan/model"
	"henkan/userdict"
)

// maxHistorySegments is how many committed segments a session keeps as
// context for the next conversion.
const maxHistorySegments = 3

const maxBodyBytes = 1 << 16

type historyWord struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	LID   uint16 `json:"lid"`
	RID   uint16 `json:"rid"`
}

type convertRequest struct {
	Key                     string        `json:"key"`
	Type                    string        `json:"type"`
	History                 []historyWord `json:"history,omitempty"`
	CreatePartialCandidates bool          `json:"create_partial_candidates"`
	KanaModifierInsensitive bool          `json:"kana_modifier_insensitive"`
	// KanaInput turns off romaji typo correction.
	KanaInput bool `json:"kana_input"`
}

func (r convertRequest) request() converter.Request {
	req := converter.Request{
		CreatePartialCandidates: r.CreatePartialCandidates,
		KanaModifierInsensitive: r.KanaModifierInsensitive,
	}
	if r.KanaInput {
		req.InputMode = keycorrector.Kana
	}
	return req
}

type commitRequest struct {
	// Candidates picks one candidate index per conversion segment; missing
	// entries pick the top candidate.
	Candidates []int `json:"candidates"`
}

type session struct {
	mu       sync.Mutex
	segments *model.Segments
}

func (s *Server) newSegments(reqType model.RequestType) *model.Segments {
	segs := model.NewSegments()
	segs.RequestType = reqType
	segs.MaxConversionCandidates = s.cfg.Converter.MaxConversionCandidates
	segs.MaxPredictionCandidates = s.cfg.Converter.MaxPredictionCandidates
	return segs
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[server] encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

// conversionStatus maps a conversion error to an HTTP status.
func conversionStatus(err error) int {
	if converter.Classify(err) == converter.KindRejected {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	var req convertRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	reqType, err := model.ParseRequestType(req.Type)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	segs := s.newSegments(reqType)
	for _, h := range req.History {
		seg := segs.AddSegment()
		seg.SetKey(h.Key)
		seg.Type = model.History
		c := seg.AddCandidate()
		c.Key, c.Value = h.Key, h.Value
		c.ContentKey, c.ContentValue = h.Key, h.Value
		c.LID, c.RID = h.LID, h.RID
	}
	segs.AddSegment().SetKey(req.Key)

	if err := s.conv.Load().ConvertForRequest(req.request(), segs); err != nil {
		writeError(w, conversionStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, segs.Snapshot())
}

// session returns the session id, creating it when create is set.
func (s *Server) session(id string, create bool, reqType model.RequestType) *session {
	if sess, ok := s.sessions.Get(id); ok {
		return sess
	}
	if !create {
		return nil
	}
	sess := &session{segments: s.newSegments(reqType)}
	if prev, ok, _ := s.sessions.PeekOrAdd(id, sess); ok {
		return prev
	}
	metrics.SetSessions(s.sessions.Len())
	return sess
}

// handleSessionConvert converts a key against the session's history. The
// session keeps its lattice, so typing one more character reuses the
// lookups of the previous request.
func (s *Server) handleSessionConvert(w http.ResponseWriter, r *http.Request) {
	var req convertRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(req.History) > 0 {
		writeError(w, http.StatusBadRequest, errors.New("sessions keep their own history"))
		return
	}
	reqType, err := model.ParseRequestType(req.Type)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	sess := s.session(mux.Vars(r)["id"], true, reqType)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	segs := sess.segments
	segs.RequestType = reqType
	segs.ClearConversionSegments()
	segs.AddSegment().SetKey(req.Key)
	if err := s.conv.Load().ConvertForRequest(req.request(), segs); err != nil {
		writeError(w, conversionStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, segs.Snapshot())
}

// handleSessionCommit turns the converted segments into history, keeping
// the chosen candidate of each.
func (s *Server) handleSessionCommit(w http.ResponseWriter, r *http.Request) {
	var req commitRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sess := s.session(mux.Vars(r)["id"], false, model.Conversion)
	if sess == nil {
		writeError(w, http.StatusNotFound, errors.New("no such session"))
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	segs := sess.segments
	n := segs.ConversionSegmentsSize()
	if n == 0 {
		writeError(w, http.StatusConflict, errors.New("nothing to commit"))
		return
	}
	for i := 0; i < n; i++ {
		seg := segs.ConversionSegment(i)
		pick := 0
		if i < len(req.Candidates) {
			pick = req.Candidates[i]
		}
		if pick < 0 || pick >= seg.CandidatesSize() {
			writeError(w, http.StatusBadRequest, fmt.Errorf("segment %d has no candidate %d", i, pick))
			return
		}
		// a candidate that consumed only part of the key cannot become
		// history on its own
		if seg.Candidate(pick).Attributes&model.PartiallyKeyConsumed != 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("candidate %d of segment %d is partial", pick, i))
			return
		}
	}

	for i := 0; i < n; i++ {
		seg := segs.ConversionSegment(i)
		pick := 0
		if i < len(req.Candidates) {
			pick = req.Candidates[i]
		}
		chosen := seg.Candidate(pick)
		seg.ClearCandidates()
		seg.PushBackCandidate(chosen)
		seg.SetKey(chosen.Key)
		seg.Type = model.History
	}
	if extra := segs.HistorySegmentsSize() - maxHistorySegments; extra > 0 {
		segs.EraseSegments(0, extra)
	}
	writeJSON(w, http.StatusOK, segs.Snapshot())
}

func (s *Server) handleSessionDelete(w http.ResponseWriter, r *http.Request) {
	s.sessions.Remove(mux.Vars(r)["id"])
	metrics.SetSessions(s.sessions.Len())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUserdictList(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if entries == nil {
		entries = []userdict.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleUserdictAdd(w http.ResponseWriter, r *http.Request) {
	s.changeUserdict(w, r, s.store.Add, http.StatusCreated)
}

func (s *Server) handleUserdictRemove(w http.ResponseWriter, r *http.Request) {
	s.changeUserdict(w, r, s.store.Remove, http.StatusOK)
}

func (s *Server) changeUserdict(w http.ResponseWriter, r *http.Request,
	change func(ctx context.Context, e userdict.Entry) error, okCode int) {
	var e userdict.Entry
	if err := decode(w, r, &e); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := change(r.Context(), e); err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, userdict.ErrInvalidEntry) {
			code = http.StatusBadRequest
		}
		writeError(w, code, err)
		return
	}
	if err := s.reload(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	// cached lattices hold nodes from the old dictionaries
	s.sessions.Purge()
	metrics.SetSessions(0)
	writeJSON(w, okCode, e)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
