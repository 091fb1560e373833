// Package config loads the henkan configuration: a JSON document overlaid
// with HENKAN_* environment variables.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// EnvPrefix starts every environment override.
const EnvPrefix = "HENKAN_"

// Userdict backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Dictionary struct {
	// Image is the compiled dictionary written by the build command.
	Image string `json:"image"`
	// Kanjidic adds single-kanji entries at load time when set.
	Kanjidic string `json:"kanjidic,omitempty"`
	// SuggestionFilter is a file of values, one per line, never suggested.
	SuggestionFilter string `json:"suggestion_filter,omitempty"`
	CacheSize        int    `json:"cache_size"`
}

type Converter struct {
	LatticeCache            bool   `json:"lattice_cache"`
	PredictiveRealtime      bool   `json:"predictive_realtime"`
	DebugDir                string `json:"debug_dir,omitempty"`
	MaxConversionCandidates int    `json:"max_conversion_candidates"`
	MaxPredictionCandidates int    `json:"max_prediction_candidates"`
}

type Userdict struct {
	Backend     string `json:"backend"`
	RedisURL    string `json:"redis_url,omitempty"`
	RedisKey    string `json:"redis_key,omitempty"`
	PostgresDSN string `json:"postgres_dsn,omitempty"`
}

type Server struct {
	Host string `json:"host"`
	Port int    `json:"port"`
	// Sessions bounds the conversion sessions kept between requests.
	Sessions            int `json:"sessions"`
	ReadTimeoutSeconds  int `json:"read_timeout_seconds"`
	WriteTimeoutSeconds int `json:"write_timeout_seconds"`
}

type Build struct {
	Analyzer    string `json:"analyzer"`
	Workers     int    `json:"workers"`
	TSVEncoding string `json:"tsv_encoding"`
}

type Logging struct {
	Dir string `json:"dir"`
}

// Config is the whole configuration document.
type Config struct {
	Dictionary Dictionary `json:"dictionary"`
	Converter  Converter  `json:"converter"`
	Userdict   Userdict   `json:"userdict"`
	Server     Server     `json:"server"`
	Build      Build      `json:"build"`
	Logging    Logging    `json:"logging"`
}

// Defaults returns a configuration that runs without any file.
func Defaults() *Config {
	return &Config{
		Dictionary: Dictionary{
			Image:     "dict/henkan.dic",
			CacheSize: 4096,
		},
		Converter: Converter{
			LatticeCache:            true,
			PredictiveRealtime:      true,
			MaxConversionCandidates: 200,
			MaxPredictionCandidates: 9,
		},
		Userdict: Userdict{
			Backend:  BackendMemory,
			RedisKey: "henkan:userdict",
		},
		Server: Server{
			Host:                "localhost",
			Port:                8080,
			Sessions:            1024,
			ReadTimeoutSeconds:  15,
			WriteTimeoutSeconds: 15,
		},
		Build: Build{
			Analyzer:    "ipa",
			Workers:     4,
			TSVEncoding: "utf-8",
		},
		Logging: Logging{Dir: "logs"},
	}
}

// LoadJSON reads path over the defaults. Unknown fields are an error.
func LoadJSON(path string) (*Config, error) {
	cfg := Defaults()
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Load reads path when it is not empty, loads .env and applies the
// environment overrides, then validates the result.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path != "" {
		var err error
		if cfg, err = LoadJSON(path); err != nil {
			return nil, err
		}
	}
	if err := LoadEnv(); err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from HENKAN_* variables.
func (c *Config) ApplyEnv() {
	c.Dictionary.Image = GetEnv(EnvPrefix+"DICTIONARY", c.Dictionary.Image)
	c.Dictionary.Kanjidic = GetEnv(EnvPrefix+"KANJIDIC", c.Dictionary.Kanjidic)
	c.Dictionary.CacheSize = GetEnvInt(EnvPrefix+"CACHE_SIZE", c.Dictionary.CacheSize)

	c.Converter.LatticeCache = GetEnvBool(EnvPrefix+"LATTICE_CACHE", c.Converter.LatticeCache)
	c.Converter.PredictiveRealtime = GetEnvBool(EnvPrefix+"PREDICTIVE_REALTIME", c.Converter.PredictiveRealtime)
	c.Converter.DebugDir = GetEnv(EnvPrefix+"DEBUG_DIR", c.Converter.DebugDir)

	c.Userdict.Backend = GetEnv(EnvPrefix+"USERDICT_BACKEND", c.Userdict.Backend)
	c.Userdict.RedisURL = GetEnv(EnvPrefix+"REDIS_URL", c.Userdict.RedisURL)
	c.Userdict.PostgresDSN = GetEnv(EnvPrefix+"POSTGRES_DSN", c.Userdict.PostgresDSN)

	c.Server.Host = GetEnv(EnvPrefix+"HOST", c.Server.Host)
	c.Server.Port = GetEnvInt(EnvPrefix+"PORT", c.Server.Port)
	c.Server.Sessions = GetEnvInt(EnvPrefix+"SESSIONS", c.Server.Sessions)

	c.Build.Workers = GetEnvInt(EnvPrefix+"BUILD_WORKERS", c.Build.Workers)
	c.Logging.Dir = GetEnv(EnvPrefix+"LOG_DIR", c.Logging.Dir)
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Userdict.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Userdict.RedisURL == "" {
			errs = append(errs, errors.New("userdict: redis backend needs redis_url"))
		}
	case BackendPostgres:
		if c.Userdict.PostgresDSN == "" {
			errs = append(errs, errors.New("userdict: postgres backend needs postgres_dsn"))
		}
	default:
		errs = append(errs, fmt.Errorf("userdict: unknown backend %q", c.Userdict.Backend))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server: invalid port %d", c.Server.Port))
	}
	if c.Server.Sessions <= 0 {
		errs = append(errs, errors.New("server: sessions must be positive"))
	}
	if c.Dictionary.CacheSize < 0 {
		errs = append(errs, errors.New("dictionary: negative cache_size"))
	}
	if c.Converter.MaxConversionCandidates <= 0 || c.Converter.MaxPredictionCandidates <= 0 {
		errs = append(errs, errors.New("converter: candidate limits must be positive"))
	}
	return errors.Join(errs...)
}
