package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// statsOutput is the JSON shape for `cortex stats --json`, combining file
// counts, the latency histogram, and the query-telemetry snapshot.
type statsOutput struct {
	TotalFiles        int              `json:"total_files"`
	IndexedFiles      int              `json:"indexed_files"`
	TotalSizeBytes    int64            `json:"total_size_bytes"`
	LatencyP50        float64          `json:"latency_p50_ms"`
	LatencyP100       float64          `json:"latency_p100_ms"`
	LatencyP500       float64          `json:"latency_p500_ms"`
	LatencyP1000      float64          `json:"latency_p1000_ms"`
	TotalQueries      int64            `json:"total_queries"`
	ZeroResultPct     float64          `json:"zero_result_pct"`
	TopTerms          map[string]int64 `json:"top_terms"`
	ZeroResultQueries []string         `json:"zero_result_queries"`
}

func newStatsCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show file counts and query telemetry",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			fileStats, latency, insights, err := e.GetSearchStats()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				so := statsOutput{
					TotalFiles:     fileStats.TotalFiles,
					IndexedFiles:   fileStats.IndexedFiles,
					TotalSizeBytes: fileStats.TotalSizeBytes,
					LatencyP50:     latency.P50,
					LatencyP100:    latency.P100,
					LatencyP500:    latency.P500,
					LatencyP1000:   latency.P1000,
				}
				if insights != nil {
					so.TotalQueries = insights.TotalQueries
					so.ZeroResultPct = insights.ZeroResultPercentage()
					so.ZeroResultQueries = insights.ZeroResultQueries
					so.TopTerms = make(map[string]int64, len(insights.TopTerms))
					for _, tc := range insights.TopTerms {
						so.TopTerms[tc.Term] = tc.Count
					}
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(so)
			}

			fmt.Fprintf(out, "files: %d total, %d indexed (%d bytes)\n", fileStats.TotalFiles, fileStats.IndexedFiles, fileStats.TotalSizeBytes)
			fmt.Fprintf(out, "latency: p50=%.1fms p100=%.1fms p500=%.1fms p1000=%.1fms\n",
				latency.P50, latency.P100, latency.P500, latency.P1000)
			if insights != nil {
				fmt.Fprintf(out, "queries: %d total, %.1f%% zero-result\n", insights.TotalQueries, insights.ZeroResultPercentage())
				for _, tc := range insights.TopTerms {
					fmt.Fprintf(out, "  top term: %-20s %d\n", tc.Term, tc.Count)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "output as JSON")
	return cmd
}
