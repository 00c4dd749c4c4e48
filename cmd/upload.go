package cmd

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"reclink/internal/history"
	"reclink/internal/recording"
)

var (
	flagLabel string
	flagName  string
)

var uploadCmd = &cobra.Command{
	Use:   "upload <recording>",
	Short: "Upload a recording and record its share link",
	Args:  cobra.ExactArgs(1),
	RunE:  uploadRun,
}

func init() {
	uploadCmd.Flags().StringVarP(&flagLabel, "label", "l", "", "Label for the generated filename, e.g. 1080p-30fps")
	uploadCmd.Flags().StringVarP(&flagName, "name", "n", "", "Upload under this filename instead of a generated one")
}

func uploadRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	src, err := recording.NewFileSource(args[0])
	if err != nil {
		return err
	}

	filename := flagName
	if filename == "" {
		filename = recording.Filename(flagLabel, time.Now(), src.MIME())
	}

	store, err := openHistory(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	content, err := src.Open()
	if err != nil {
		return fmt.Errorf("opening recording: %w", err)
	}
	defer content.Close()

	logger.Info().Str("filename", filename).Str("mime", src.MIME()).Str("size", humanize.Bytes(uint64(src.Size()))).Msg("uploading")

	page, err := newUploader(newClient()).Upload(ctx, content, filename, cfg.AccountToken)
	if err != nil {
		return err
	}

	link, err := history.NewBook(store, logger).Add(ctx, page, filename)
	if err != nil {
		logger.Warn().Err(err).Msg("share link not saved to history")
	}

	if flagJSON {
		return printJSON(map[string]any{"downloadPage": page, "filename": filename, "timestamp": link.Timestamp})
	}
	fmt.Println(page)
	return nil
}
