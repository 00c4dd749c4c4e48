package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"reclink/internal/download"
	"reclink/internal/history"
	"reclink/internal/media"
)

var flagDir string

var downloadCmd = &cobra.Command{
	Use:   "download <share-url>",
	Short: "Download a share link's media to the download directory",
	Args:  cobra.ExactArgs(1),
	RunE:  downloadRun,
}

func init() {
	downloadCmd.Flags().StringVarP(&flagDir, "dir", "o", "", "Output directory (default: download_dir from config)")
}

func downloadRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	dir := flagDir
	if dir == "" {
		var err error
		if dir, err = cfg.ExpandDownloadDir(); err != nil {
			return err
		}
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
	res, err := history.NewBook(store, logger).Resolve(ctx, args[0], r)
	if err != nil {
		return err
	}

	path, err := fetchMedia(ctx, client, *res, args[0], dir, cfg.TransferTimeout.Duration)
	if err != nil {
		return err
	}

	if info, err := os.Stat(path); err == nil {
		logger.Info().Str("size", humanize.Bytes(uint64(info.Size()))).Msg("downloaded")
	}
	fmt.Println(path)
	return nil
}

// fetchMedia bounds the whole transfer, headers and body, by timeout.
func fetchMedia(ctx context.Context, client *http.Client, res media.Resolved, referer, dir string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return download.Fetch(ctx, client, res, referer, dir)
}
