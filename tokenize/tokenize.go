// Package tokenize runs corpus sentences through the kagome morphological
// analyzer and turns its tokens into dictionary-ready morphemes.
package tokenize

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/ikawaha/kagome-dict/dict"
	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome-dict/uni"
	"github.com/ikawaha/kagome/v2/tokenizer"

	"henkan/ingest"
	"henkan/model"
	"henkan/pos"
)

// Analyzer dictionary names accepted by New.
const (
	DictIPA = "ipa"
	DictUni = "uni"
)

// Tokenized pairs a sentence with its morphemes.
type Tokenized struct {
	Sentence  ingest.Sentence
	Morphemes []model.Morpheme
}

// Tokenizer is a kagome tokenizer over one system dictionary. It is safe
// for concurrent use.
type Tokenizer struct {
	kg *tokenizer.Tokenizer
}

func systemDict(name string) (*dict.Dict, error) {
	switch strings.ToLower(name) {
	case "", DictIPA:
		return ipa.Dict(), nil
	case DictUni:
		return uni.Dict(), nil
	}
	return nil, fmt.Errorf("unknown analyzer dictionary %q", name)
}

// New loads the named analyzer dictionary.
func New(dictName string) (*Tokenizer, error) {
	d, err := systemDict(dictName)
	if err != nil {
		return nil, err
	}
	kg, err := tokenizer.New(d, tokenizer.OmitBosEos())
	if err != nil {
		return nil, fmt.Errorf("init kagome: %w", err)
	}
	return &Tokenizer{kg: kg}, nil
}

// Analyze splits text into morphemes in normal mode.
func (t *Tokenizer) Analyze(text string) []model.Morpheme {
	if text == "" {
		return nil
	}
	return convertKagomeTokens(t.kg.Tokenize(text))
}

func convertKagomeTokens(ktoks []tokenizer.Token) []model.Morpheme {
	out := make([]model.Morpheme, 0, len(ktoks))
	for _, kt := range ktoks {
		if kt.Class == tokenizer.DUMMY {
			continue
		}
		base, _ := kt.BaseForm()
		reading, _ := kt.Reading()
		features := kt.Features()
		out = append(out, model.Morpheme{
			Surface:  kt.Surface,
			Reading:  reading,
			BaseForm: base,
			POS:      pos.FeatureName(features, base),
			Features: features,
			Start:    kt.Start,
			End:      kt.End,
			Known:    kt.Class == tokenizer.KNOWN || kt.Class == tokenizer.USER,
		})
	}
	return out
}

func isVerb(m model.Morpheme) bool {
	return strings.HasPrefix(m.POS, "動詞")
}

func isAuxiliary(m model.Morpheme) bool {
	return strings.HasPrefix(m.POS, "助動詞") ||
		strings.HasPrefix(m.POS, "動詞,非自立") ||
		strings.HasPrefix(m.POS, "動詞,接尾")
}

// MergeVerbAuxiliaries folds a verb and the auxiliaries after it into one
// morpheme, so 書きました becomes a dictionary word. The merged morpheme
// keeps its parts: its left POS is the verb's and its right POS the last
// auxiliary's.
func MergeVerbAuxiliaries(ms []model.Morpheme) []model.Morpheme {
	var out []model.Morpheme
	for i := 0; i < len(ms); {
		m := ms[i]
		j := i + 1
		if isVerb(m) {
			for j < len(ms) && isAuxiliary(ms[j]) {
				j++
			}
		}
		if j == i+1 {
			out = append(out, m)
			i++
			continue
		}

		merged := m
		merged.Parts = append([]model.Morpheme(nil), ms[i:j]...)
		for _, aux := range ms[i+1 : j] {
			merged.Surface += aux.Surface
			merged.Reading += aux.Reading
			merged.Known = merged.Known && aux.Known
		}
		merged.End = ms[j-1].End
		out = append(out, merged)
		i = j
	}
	return out
}

// StartTokenizer analyzes sentences from in on workers goroutines and sends
// the merged morphemes to out. out is closed once in is drained or ctx is
// done.
func StartTokenizer(ctx context.Context, t *Tokenizer, in <-chan ingest.Sentence, out chan<- Tokenized, workers int) {
	if workers < 1 {
		workers = 1
	}
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case s, ok := <-in:
					if !ok {
						return
					}
					res := Tokenized{Sentence: s, Morphemes: MergeVerbAuxiliaries(t.Analyze(s.Text))}
					select {
					case <-ctx.Done():
						return
					case out <- res:
					}
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(out)
		log.Printf("[tokenize] %d workers finished", workers)
	}()
}
