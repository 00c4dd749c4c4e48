package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"reclink/internal/history"
	"reclink/internal/metrics"
	"reclink/internal/resolve"
	"reclink/internal/server"
)

const resolveCacheSize = 256

var flagListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the resolve, upload and history API for the browser UI",
	Args:  cobra.NoArgs,
	RunE:  serveRun,
}

func init() {
	serveCmd.Flags().StringVar(&flagListen, "listen", "", "Listen address (default: listen from config)")
}

func serveRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := cfg.Listen
	if flagListen != "" {
		addr = flagListen
	}

	store, err := openHistory(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	client := newClient()
	r, err := newResolver(client)
	if err != nil {
		return err
	}

	m := metrics.New()
	cached, err := resolve.NewCached(r, resolveCacheSize)
	if err != nil {
		return err
	}
	cached.OnHit = func(string) { m.CacheHits.Inc() }

	srv := server.New(server.Options{
		Addr:            addr,
		Resolver:        cached,
		Uploader:        newUploader(client),
		Book:            history.NewBook(store, logger),
		Client:          client,
		DownloadTimeout: cfg.TransferTimeout.Duration,
		Metrics:         m,
		Logger:          logger,
		Debug:           cfg.Debug,
	})
	logger.Info().Strs("strategies", r.Strategies()).Msg("resolver ready")
	return srv.Run(ctx)
}
