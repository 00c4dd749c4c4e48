package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"reclink/internal/history"
	"reclink/internal/media"
	"reclink/internal/ui"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List uploaded share links, newest first",
	Args:  cobra.NoArgs,
	RunE:  historyListRun,
}

var historyRmCmd = &cobra.Command{
	Use:   "rm [share-url]",
	Short: "Remove a share link from the history",
	Args:  cobra.MaximumNArgs(1),
	RunE:  historyRmRun,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every share link from the history",
	Args:  cobra.NoArgs,
	RunE:  historyClearRun,
}

func init() {
	historyCmd.AddCommand(historyRmCmd)
	historyCmd.AddCommand(historyClearCmd)
}

var (
	nameStyle = lipgloss.NewStyle().Bold(true)
	urlStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func historyListRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := openHistory(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	links, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}

	if flagJSON {
		if links == nil {
			links = []media.ShareLink{}
		}
		return printJSON(links)
	}

	if len(links) == 0 {
		fmt.Println("No history entries found.")
		return nil
	}

	for _, l := range links {
		name := l.Filename
		if name == "" {
			name = "(unnamed)"
		}
		line := nameStyle.Render(name) + "  " + urlStyle.Render(l.URL) + "  " +
			dimStyle.Render(humanize.Time(time.UnixMilli(l.Timestamp)))
		if l.Resolved != nil {
			line += dimStyle.Render("  " + l.Resolved.MIME)
		}
		fmt.Println(line)
	}
	return nil
}

func historyRmRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := openHistory(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	var url string
	if len(args) == 1 {
		url = args[0]
	} else if url, err = pickFromHistory(ctx, store, "Remove"); err != nil {
		return err
	}

	if err := store.Remove(ctx, url); err != nil {
		return err
	}
	logger.Debug().Str("url", url).Msg("removed from history")
	return nil
}

func historyClearRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := openHistory(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	ok, err := ui.Confirm("Clear the entire history?")
	if err != nil || !ok {
		return err
	}
	return store.Save(ctx, nil)
}

// pickFromHistory lets the user choose a recorded share link.
func pickFromHistory(ctx context.Context, store history.Store, prompt string) (string, error) {
	links, err := store.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("loading history: %w", err)
	}
	if len(links) == 0 {
		return "", fmt.Errorf("history is empty")
	}

	idx, err := ui.Select(prompt, history.FormatForDisplay(links, time.Now()))
	if err != nil {
		return "", err
	}
	return links[idx].URL, nil
}
