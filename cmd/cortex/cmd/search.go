package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cortexlabs/cortex/internal/search"
)

type searchOptions struct {
	limit    int
	offset   int
	fileType string
	minSize  int64
	maxSize  int64
	dateFrom string
	dateTo   string
	jsonOut  bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search over indexed files",
		Long: `Runs a ranked, filtered full-text search against the SQLite FTS5
index and prints snippeted hits.

Examples:
  cortex search "connection pool"
  cortex search "TODO" --type go --limit 5
  cortex search "changelog" --date-from 2026-01-01T00:00:00Z`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", search.DefaultLimit, "maximum number of results")
	cmd.Flags().IntVar(&opts.offset, "offset", 0, "result offset for pagination")
	cmd.Flags().StringVarP(&opts.fileType, "type", "t", "", "filter by file extension, e.g. md, pdf")
	cmd.Flags().Int64Var(&opts.minSize, "min-size", 0, "filter by minimum file size in bytes")
	cmd.Flags().Int64Var(&opts.maxSize, "max-size", 0, "filter by maximum file size in bytes")
	cmd.Flags().StringVar(&opts.dateFrom, "date-from", "", "filter by minimum modified time, RFC3339")
	cmd.Flags().StringVar(&opts.dateTo, "date-to", "", "filter by maximum modified time, RFC3339")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "output results as JSON")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, opts searchOptions) error {
	e, err := openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	filters := search.Filters{
		FileType: opts.fileType,
		DateFrom: opts.dateFrom,
		DateTo:   opts.dateTo,
	}
	if opts.minSize > 0 {
		filters.MinSize = &opts.minSize
	}
	if opts.maxSize > 0 {
		filters.MaxSize = &opts.maxSize
	}

	results, err := e.SearchFiles(query, filters, opts.limit, opts.offset)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	fmt.Fprintf(out, "%d results (%.1fms)\n\n", results.Total, results.ElapsedMS)
	for _, h := range results.Hits {
		fmt.Fprintf(out, "[%d] %s (%s, %d bytes, score %.3f)\n  %s\n\n", h.FileID, h.Path, h.FileType, h.Size, h.Score, h.Snippet)
	}
	return nil
}
