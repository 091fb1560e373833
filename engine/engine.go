// Package engine assembles a converter from a compiled dictionary image,
// the user dictionary and the optional side dictionaries named in the
// configuration.
package engine

import (
	"context"
	"fmt"
	"log"
	"os"

	"henkan/config"
	"henkan/connector"
	"henkan/converter"
	"henkan/dictionary"
	"henkan/kanji"
	"henkan/pos"
	"henkan/segmenter"
	"henkan/userdict"
)

// Engine owns the read-only resources shared by every converter it builds.
type Engine struct {
	cfg *config.Config

	table       *pos.Table
	conn        connector.Connector
	system      dictionary.Dictionary
	suffix      dictionary.Dictionary
	kanji       dictionary.Dictionary
	suggestions *dictionary.SuggestionFilter
	matcher     *pos.Matcher
	group       *pos.Group
	segmenter   segmenter.Segmenter

	store  userdict.Store
	closer func() error
}

// Parts are the pieces of an engine that does not come from an image file.
type Parts struct {
	Table       *pos.Table
	Connector   connector.Connector
	System      dictionary.Dictionary
	Suffix      dictionary.Dictionary
	Kanji       dictionary.Dictionary
	Suggestions *dictionary.SuggestionFilter
	Store       userdict.Store
}

// New builds an engine from parts already in memory.
func New(cfg *config.Config, p Parts) (*Engine, error) {
	if p.Table == nil || p.Connector == nil || p.System == nil {
		return nil, fmt.Errorf("engine: table, connector and system dictionary are required")
	}
	if p.Suffix == nil {
		p.Suffix = dictionary.NewMemory(nil)
	}
	if p.Store == nil {
		p.Store = userdict.NewMemoryStore()
	}
	system := p.System
	if cfg.Dictionary.CacheSize > 0 {
		cached, err := dictionary.NewCached(system, cfg.Dictionary.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("engine: lookup cache: %w", err)
		}
		system = cached
	}
	matcher := pos.NewMatcher(p.Table)
	return &Engine{
		cfg:         cfg,
		table:       p.Table,
		conn:        p.Connector,
		system:      system,
		suffix:      p.Suffix,
		kanji:       p.Kanji,
		suggestions: p.Suggestions,
		matcher:     matcher,
		group:       pos.NewGroup(p.Table),
		segmenter:   segmenter.NewRules(matcher),
		store:       p.Store,
		closer:      func() error { return nil },
	}, nil
}

// Open maps the dictionary image, loads the side dictionaries and connects
// the user dictionary backend.
func Open(ctx context.Context, cfg *config.Config) (*Engine, error) {
	img, err := dictionary.OpenImage(cfg.Dictionary.Image)
	if err != nil {
		return nil, fmt.Errorf("open dictionary: %w", err)
	}
	p := Parts{
		Table:     img.Table(),
		Connector: img.Connector(),
		System:    img.System(),
		Suffix:    img.Suffix(),
	}

	fail := func(err error) (*Engine, error) {
		img.Close()
		return nil, err
	}
	if cfg.Dictionary.Kanjidic != "" {
		if p.Kanji, err = loadKanji(cfg.Dictionary.Kanjidic); err != nil {
			return fail(err)
		}
	}
	if cfg.Dictionary.SuggestionFilter != "" {
		if p.Suggestions, err = loadSuggestionFilter(cfg.Dictionary.SuggestionFilter); err != nil {
			return fail(err)
		}
	}
	store, closeStore, err := OpenStore(ctx, cfg.Userdict)
	if err != nil {
		return fail(err)
	}
	p.Store = store

	e, err := New(cfg, p)
	if err != nil {
		closeStore()
		return fail(err)
	}
	e.closer = func() error {
		closeStore()
		return img.Close()
	}
	log.Printf("[engine] dictionary %s: %d POS ids, %d entries", cfg.Dictionary.Image,
		img.Table().Len(), img.System().Size())
	return e, nil
}

func loadKanji(path string) (dictionary.Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	readings, err := kanji.Load(f)
	if err != nil {
		return nil, err
	}
	return dictionary.NewMemory(readings.Tokens(pos.NounID)), nil
}

func loadSuggestionFilter(path string) (*dictionary.SuggestionFilter, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return dictionary.ReadSuggestionFilter(f)
}

// OpenStore connects the configured user dictionary backend. The returned
// func releases the connection.
func OpenStore(ctx context.Context, cfg config.Userdict) (userdict.Store, func(), error) {
	switch cfg.Backend {
	case config.BackendRedis:
		client, err := userdict.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return userdict.NewRedisStore(client, cfg.RedisKey), func() { client.Close() }, nil
	case config.BackendPostgres:
		db, err := userdict.OpenPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		s, err := userdict.NewPostgresStore(ctx, db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return s, func() { db.Close() }, nil
	}
	return userdict.NewMemoryStore(), func() {}, nil
}

// Store is the user dictionary backend.
func (e *Engine) Store() userdict.Store { return e.store }

// Table is the POS inventory of the system dictionary.
func (e *Engine) Table() *pos.Table { return e.table }

// Converter reads the current user dictionary and returns a converter over
// system, user and kanji dictionaries.
func (e *Engine) Converter(ctx context.Context) (*converter.Converter, error) {
	user, suppression, err := userdict.Load(ctx, e.store, e.table)
	if err != nil {
		return nil, err
	}
	dicts := dictionary.Merged{e.system, user}
	if e.kanji != nil {
		dicts = append(dicts, e.kanji)
	}

	var opts []converter.Option
	if !e.cfg.Converter.LatticeCache {
		opts = append(opts, converter.WithLatticeCacheDisabled())
	}
	if !e.cfg.Converter.PredictiveRealtime {
		opts = append(opts, converter.WithPredictiveRealtimeDisabled())
	}
	if e.cfg.Converter.DebugDir != "" {
		opts = append(opts, converter.WithDebugDir(e.cfg.Converter.DebugDir))
	}
	return converter.New(converter.Components{
		Dictionary:       dicts,
		SuffixDictionary: e.suffix,
		Suppression:      suppression,
		SuggestionFilter: e.suggestions,
		Connector:        e.conn,
		Segmenter:        e.segmenter,
		Matcher:          e.matcher,
		Group:            e.group,
	}, opts...)
}

// Close releases the image and the user dictionary connection.
func (e *Engine) Close() error {
	return e.closer()
}
