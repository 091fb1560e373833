package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"henkan/config"
	"henkan/converter"
	"henkan/engine"
	"henkan/keycorrector"
	"henkan/logger"
	"henkan/model"
	"henkan/pipeline"
	"henkan/server"
	"henkan/userdict"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:           "henkan",
		Short:         "Kana to kanji conversion engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "JSON configuration file")

	rootCmd.AddCommand(createConvertCmd())
	rootCmd.AddCommand(createBuildCmd())
	rootCmd.AddCommand(createServeCmd())
	rootCmd.AddCommand(createUserdictCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func createConvertCmd() *cobra.Command {
	var (
		reqType string
		partial bool
		fuzzy   bool
		kana    bool
	)
	cmd := &cobra.Command{
		Use:   "convert [reading...]",
		Short: "Convert readings and print the segments as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			typ, err := model.ParseRequestType(reqType)
			if err != nil {
				return err
			}
			for _, dir := range []string{cfg.Logging.Dir, cfg.Converter.DebugDir} {
				if dir == "" {
					continue
				}
				if err := logger.InitLogs(dir); err != nil {
					return err
				}
			}

			e, err := engine.Open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer e.Close()
			conv, err := e.Converter(cmd.Context())
			if err != nil {
				return err
			}

			req := converter.Request{CreatePartialCandidates: partial, KanaModifierInsensitive: fuzzy}
			if kana {
				req.InputMode = keycorrector.Kana
			}
			for i, key := range args {
				segs := model.NewSegments()
				segs.RequestType = typ
				segs.MaxConversionCandidates = cfg.Converter.MaxConversionCandidates
				segs.MaxPredictionCandidates = cfg.Converter.MaxPredictionCandidates
				segs.AddSegment().SetKey(key)
				if err := conv.ConvertForRequest(req, segs); err != nil {
					return fmt.Errorf("convert %q: %w", key, err)
				}
				snap := segs.Snapshot()
				if cfg.Logging.Dir != "" {
					if err := logger.LogJSON(cfg.Logging.Dir, fmt.Sprintf("convert_%d", i), snap); err != nil {
						log.Printf("[convert] write log: %v", err)
					}
				}
				if err := printJSON(snap); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&reqType, "type", "t", "conversion", "conversion, prediction, suggestion or reverse")
	cmd.Flags().BoolVar(&partial, "partial", false, "add first-segment candidates to predictions")
	cmd.Flags().BoolVar(&fuzzy, "kana-modifier-insensitive", false, "let か match が and つ match っ")
	cmd.Flags().BoolVar(&kana, "kana-input", false, "the reading was typed in kana; skip romaji typo correction")
	return cmd
}

func createBuildCmd() *cobra.Command {
	var opts pipeline.Options
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a dictionary image from corpora, word lists and KANJIDIC2",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if opts.Output == "" {
				opts.Output = cfg.Dictionary.Image
			}
			if opts.Analyzer == "" {
				opts.Analyzer = cfg.Build.Analyzer
			}
			if opts.Workers == 0 {
				opts.Workers = cfg.Build.Workers
			}
			if opts.TSVEncoding == "" {
				opts.TSVEncoding = cfg.Build.TSVEncoding
			}
			stats, err := pipeline.Run(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return printJSON(stats)
		},
	}
	cmd.Flags().StringSliceVar(&opts.Corpora, "corpus", nil, "plain text corpus, one sentence per line")
	cmd.Flags().StringSliceVar(&opts.TSV, "tsv", nil, "word list: reading, surface, POS[, cost]")
	cmd.Flags().StringVar(&opts.TSVEncoding, "tsv-encoding", "", "utf-8, euc-jp or shift_jis")
	cmd.Flags().StringVar(&opts.Kanjidic, "kanjidic", "", "kanjidic2.xml")
	cmd.Flags().StringVar(&opts.Analyzer, "analyzer", "", "kagome dictionary: ipa or uni")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "tokenizer goroutines")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "image path (default: dictionary.image)")
	return cmd
}

func createServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the conversion API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if cfg.Converter.DebugDir != "" {
				if err := logger.InitLogs(cfg.Converter.DebugDir); err != nil {
					return err
				}
			}
			e, err := engine.Open(ctx, cfg)
			if err != nil {
				return err
			}
			defer e.Close()

			srv, err := server.New(ctx, cfg, e.Converter, e.Store())
			if err != nil {
				return err
			}
			return srv.Run(ctx)
		},
	}
}

// withStore runs fn against the configured user dictionary backend.
func withStore(ctx context.Context, fn func(userdict.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, closeStore, err := engine.OpenStore(ctx, cfg.Userdict)
	if err != nil {
		return err
	}
	defer closeStore()
	if cfg.Userdict.Backend == config.BackendMemory {
		log.Printf("[userdict] memory backend: changes are lost on exit")
	}
	return fn(store)
}

func createUserdictCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "userdict",
		Short: "Manage the user dictionary",
	}
	var posName string
	add := &cobra.Command{
		Use:   "add reading word",
		Short: "Register a word",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(s userdict.Store) error {
				return s.Add(cmd.Context(), userdict.Entry{Key: args[0], Value: args[1], POS: posName})
			})
		},
	}
	add.Flags().StringVar(&posName, "pos", "名詞,一般", "part of speech, or "+userdict.SuppressionPOS)

	var removePOS string
	remove := &cobra.Command{
		Use:   "remove reading word",
		Short: "Remove a word",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(s userdict.Store) error {
				return s.Remove(cmd.Context(), userdict.Entry{Key: args[0], Value: args[1], POS: removePOS})
			})
		},
	}
	remove.Flags().StringVar(&removePOS, "pos", "名詞,一般", "part of speech the word was added with")

	list := &cobra.Command{
		Use:   "list",
		Short: "Print every entry as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(s userdict.Store) error {
				entries, err := s.List(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(entries)
			})
		},
	}
	cmd.AddCommand(add, remove, list)
	return cmd
}
