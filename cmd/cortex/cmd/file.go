package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newFileCmd() *cobra.Command {
	var full bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "file <file-id>",
		Short: "Show a single indexed file's metadata and content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid file id %q: %w", args[0], err)
			}

			e, err := openEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			detail, err := e.GetFileDetail(id, full)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(detail)
			}

			fmt.Fprintf(out, "path: %s\ntype: %s\nsize: %d\nmodified: %s\nwords: %d\nsummary: %s\n",
				detail.Path, detail.FileType, detail.Size, detail.ModifiedAt.Format("2006-01-02T15:04:05Z07:00"), detail.WordCount, detail.Summary)
			if full {
				fmt.Fprintf(out, "\n%s\n", detail.FullContent)
			} else {
				fmt.Fprintf(out, "\n%s\n", detail.ContentPreview)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "include the full extracted content instead of a preview")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output as JSON")

	return cmd
}
