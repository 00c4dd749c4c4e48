package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <share-url>",
	Short: "Resolve a share page to its direct media URL",
	Args:  cobra.ExactArgs(1),
	RunE:  resolveRun,
}

func resolveRun(cmd *cobra.Command, args []string) error {
	r, err := newResolver(newClient())
	if err != nil {
		return err
	}

	res, err := r.Resolve(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(res)
	}
	fmt.Printf("%s\t%s\t%s\n", res.MediaType, res.MIME, res.MediaURL)
	return nil
}
