package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docvec/internal/embed"
	"github.com/Aman-CERP/docvec/internal/output"
	"github.com/Aman-CERP/docvec/pkg/retrieval"
)

func newCountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the total number of stored vector records",
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

			n, err := svc.Count(cmd.Context())
			if err != nil {
				return fmt.Errorf("count failed: %w", err)
			}
			out.Statusf("", "%d record(s)", n)
			return nil
		},
	}
}
