package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"reclink/internal/history"
	"reclink/internal/httputil"
	"reclink/internal/media"
	"reclink/internal/player"
)

var previewCmd = &cobra.Command{
	Use:   "preview [share-url]",
	Short: "Open a share link's media in the configured player",
	Long: `Resolve a share link and open the media in mpv, vlc, iina or celluloid.
Without an argument, pick a link from the history. A resolved link is cached
on its history record, so previewing it again does not hit the network.`,
	Args: cobra.MaximumNArgs(1),
	RunE: previewRun,
}

func previewRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := openHistory(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	var url string
	if len(args) == 1 {
		url = args[0]
	} else if url, err = pickFromHistory(ctx, store, "Preview"); err != nil {
		return err
	}

	r, err := newResolver(newClient())
	if err != nil {
		return err
	}
	res, err := history.NewBook(store, logger).Resolve(ctx, url, r)
	if err != nil {
		return err
	}

	if res.MediaType == media.Unsupported {
		return fmt.Errorf("%s is %s, which cannot be previewed", url, res.MIME)
	}

	p := player.New(cfg.Player)
	if !p.Available() {
		return fmt.Errorf("%s not found in PATH", p.Name())
	}

	title := httputil.FilenameFromURL(res.MediaURL, url)
	logger.Debug().Str("player", p.Name()).Str("media", res.MediaURL).Msg("starting player")
	return p.Play(ctx, *res, title, url)
}
