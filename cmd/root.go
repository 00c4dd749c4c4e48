// Package cmd implements the CLI commands using Cobra.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"reclink/internal/config"
	"reclink/internal/history"
	"reclink/internal/httputil"
	"reclink/internal/logging"
	"reclink/internal/resolve"
	"reclink/internal/upload"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Global flags
var (
	flagStrategy string
	flagToken    string
	flagPlayer   string
	flagJSON     bool
	flagDebug    bool
)

// cfg holds the loaded configuration (merged: defaults < config file < env < flags).
var (
	cfg    *config.Config
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "reclink",
	Short: "Upload screen recordings and resolve their share links",
	Long: `reclink uploads finished screen recordings to GoFile, keeps a local
history of the share links, and resolves share pages to direct media URLs
for preview and download. "reclink serve" exposes the same operations to
the browser UI over HTTP.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagStrategy, "strategy", "s", "", "Resolution strategy: auto | api | scrape")
	rootCmd.PersistentFlags().StringVarP(&flagToken, "token", "t", "", "GoFile account token (overrides "+config.EnvAccountToken+")")
	rootCmd.PersistentFlags().StringVar(&flagPlayer, "player", "", "Media player: mpv | vlc | iina | celluloid")
	rootCmd.PersistentFlags().BoolVarP(&flagJSON, "json", "j", false, "Output results as JSON")
	rootCmd.PersistentFlags().BoolVarP(&flagDebug, "debug", "x", false, "Debug logging to stderr")

	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads and merges configuration, then applies CLI flags.
func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if flagStrategy != "" {
		cfg.Strategy = flagStrategy
	}
	if flagToken != "" {
		cfg.AccountToken = flagToken
	}
	if flagPlayer != "" {
		cfg.Player = flagPlayer
	}
	if flagDebug {
		cfg.Debug = true
	}

	// Re-validate after flag overrides
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger = logging.Setup(os.Stderr, cfg.LogLevel, cfg.Debug)
	logger.Debug().Str("strategy", cfg.Strategy).Bool("token", cfg.AccountToken != "").Msg("configuration loaded")
	return nil
}

func newClient() *http.Client {
	return httputil.NewClient(0)
}

func newResolver(client *http.Client) (*resolve.Resolver, error) {
	return resolve.New(resolve.Options{
		APIBase:       cfg.APIBase,
		AccountToken:  cfg.AccountToken,
		Strategy:      cfg.Strategy,
		ShareHosts:    cfg.ShareHosts,
		Client:        client,
		LookupTimeout: cfg.LookupTimeout.Duration,
		PageTimeout:   cfg.PageTimeout.Duration,
		Logger:        logger,
	})
}

func newUploader(client *http.Client) *upload.Uploader {
	return upload.New(upload.Options{
		APIBase:         cfg.APIBase,
		UploadURL:       cfg.UploadURL,
		Client:          client,
		LookupTimeout:   cfg.LookupTimeout.Duration,
		TransferTimeout: cfg.TransferTimeout.Duration,
		Logger:          logger,
	})
}

// openHistory opens the persistent history, or an in-memory one when
// history is disabled in the config.
func openHistory(ctx context.Context) (history.Store, error) {
	if !cfg.History {
		return history.NewMemoryStore(), nil
	}
	path, err := config.HistoryPath()
	if err != nil {
		return nil, err
	}
	return history.Open(ctx, path)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
