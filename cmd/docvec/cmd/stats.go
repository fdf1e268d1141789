package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docvec/internal/embed"
	"github.com/Aman-CERP/docvec/internal/output"
	"github.com/Aman-CERP/docvec/pkg/retrieval"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print query telemetry collected this session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := output.New(cmd.OutOrStdout())

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			svc, err := retrieval.Open(cfg, embed.NewStaticEmbedder768(), nil)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer svc.Close()

			snap := svc.Metrics()
			out.Statusf("", "queries: %d (zero-result: %.1f%%)", snap.TotalQueries, snap.ZeroResultPercentage())
			out.Status("", snap.RepetitionSummary())
			for _, t := range snap.TopTerms {
				out.Statusf("", "  %-20s %d", t.Term, t.Count)
			}
			return nil
		},
	}
}
