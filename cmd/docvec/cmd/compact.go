package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docvec/internal/embed"
	"github.com/Aman-CERP/docvec/internal/output"
	"github.com/Aman-CERP/docvec/pkg/retrieval"
)

func newCompactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compact",
		Short: "Reclaim storage after heavy churn",
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

			start := time.Now()
			if err := svc.Compact(cmd.Context()); err != nil {
				return fmt.Errorf("compact failed: %w", err)
			}
			out.Successf("Compacted in %s", time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
}
