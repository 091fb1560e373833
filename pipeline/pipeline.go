// Package pipeline builds a dictionary image from raw corpora: sentences
// flow from ingest through the kagome tokenizer workers into the
// dictionary builder.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"henkan/dictionary"
	"henkan/ingest"
	"henkan/kanji"
	"henkan/pos"
	"henkan/tokenize"
)

// Options name the inputs and the output of one build.
type Options struct {
	// Corpora are plain text files, one sentence per line.
	Corpora  []string
	Analyzer string
	Workers  int
	// Kanjidic adds every kanji under each of its readings.
	Kanjidic string
	// TSV word lists: reading, surface, POS and an optional cost.
	TSV         []string
	TSVEncoding string
	Output      string
}

// Stats summarize a finished build.
type Stats struct {
	Sentences int `json:"sentences"`
	Entries   int `json:"entries"`
	Suffixes  int `json:"suffixes"`
	POS       int `json:"pos"`
}

func (o Options) validate() error {
	if len(o.Corpora) == 0 && len(o.TSV) == 0 && o.Kanjidic == "" {
		return errors.New("build: no corpus, word list or kanjidic given")
	}
	if o.Output == "" {
		return errors.New("build: no output path")
	}
	return nil
}

// Run builds the image described by opts and writes it atomically.
func Run(ctx context.Context, opts Options) (Stats, error) {
	if err := opts.validate(); err != nil {
		return Stats{}, err
	}
	table := pos.NewTable()
	b := dictionary.NewBuilder(table)

	var stats Stats
	if len(opts.Corpora) > 0 {
		n, err := analyzeCorpora(ctx, opts, b)
		if err != nil {
			return stats, err
		}
		stats.Sentences = n
	}
	for _, path := range opts.TSV {
		if err := addTSV(path, opts.TSVEncoding, table, b); err != nil {
			return stats, err
		}
	}
	if opts.Kanjidic != "" {
		if err := addKanji(opts.Kanjidic, b); err != nil {
			return stats, err
		}
	}

	img := b.Build()
	stats.Entries, stats.Suffixes, stats.POS = len(img.System), len(img.Suffix), img.Table.Len()
	if err := writeImage(opts.Output, img); err != nil {
		return stats, err
	}
	log.Printf("[build] wrote %s: %+v", opts.Output, stats)
	return stats, nil
}

// analyzeCorpora runs the ingest → tokenize → builder pipeline.
func analyzeCorpora(ctx context.Context, opts Options, b *dictionary.Builder) (int, error) {
	tk, err := tokenize.New(opts.Analyzer)
	if err != nil {
		return 0, err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sentences := make(chan ingest.Sentence, 100)
	results := make(chan tokenize.Tokenized, 100)
	tokenize.StartTokenizer(ctx, tk, sentences, results, opts.Workers)

	readErr := make(chan error, 1)
	go func() {
		defer close(sentences)
		for _, path := range opts.Corpora {
			if err := readCorpus(ctx, path, sentences); err != nil {
				readErr <- err
				cancel()
				return
			}
		}
		readErr <- nil
	}()

	// Builder is not safe for concurrent use; only this goroutine feeds it.
	n := 0
	for res := range results {
		b.AddSentence(res.Morphemes)
		n++
	}
	if err := <-readErr; err != nil {
		return n, err
	}
	if err := ctx.Err(); err != nil {
		return n, err
	}
	return n, nil
}

func readCorpus(ctx context.Context, path string, out chan<- ingest.Sentence) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := ingest.ReadCorpus(ctx, f, out); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func addTSV(path, enc string, table *pos.Table, b *dictionary.Builder) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	tokens, err := dictionary.LoadTSV(f, enc, table)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	b.AddTokens(tokens)
	log.Printf("[build] %s: %d entries", path, len(tokens))
	return nil
}

func addKanji(path string, b *dictionary.Builder) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	readings, err := kanji.Load(f)
	if err != nil {
		return err
	}
	b.AddTokens(readings.Tokens(pos.NounID))
	return nil
}

// writeImage writes to a temporary file next to path and renames it, so a
// running server never maps a half-written image.
func writeImage(path string, img *dictionary.ImageData) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()
	if err = dictionary.WriteImage(tmp, img); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
