// Package ingest turns raw corpus text into normalized sentences for the
// dictionary build pipeline.
package ingest

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// ErrEmptySentence is returned for blank input.
var ErrEmptySentence = errors.New("empty sentence")

// maxLineSize bounds one corpus line.
const maxLineSize = 1 << 20

// Sentence is one normalized corpus sentence.
type Sentence struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// generateID creates a short random hex id, falling back to a timestamp.
func generateID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}

// Normalize applies NFKC and trims surrounding space. Half-width katakana
// and full-width ASCII come out in the forms the analyzer dictionary uses.
func Normalize(text string) string {
	return strings.TrimSpace(norm.NFKC.String(text))
}

// NewSentence normalizes text and wraps it in a Sentence.
func NewSentence(text string) (Sentence, error) {
	t := Normalize(text)
	if t == "" {
		return Sentence{}, ErrEmptySentence
	}
	return Sentence{
		ID:        generateID(),
		Text:      t,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// ReadCorpus sends one Sentence per non-blank line of r to out. It returns
// the number of sentences sent; out is not closed.
func ReadCorpus(ctx context.Context, r io.Reader, out chan<- Sentence) (int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	n := 0
	for sc.Scan() {
		s, err := NewSentence(sc.Text())
		if errors.Is(err, ErrEmptySentence) {
			continue
		}
		select {
		case <-ctx.Done():
			return n, ctx.Err()
		case out <- s:
			n++
		}
	}
	if err := sc.Err(); err != nil {
		return n, fmt.Errorf("read corpus: %w", err)
	}
	log.Printf("[ingest] read %d sentences", n)
	return n, nil
}
