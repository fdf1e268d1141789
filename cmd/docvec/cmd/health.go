package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docvec/internal/embed"
	"github.com/Aman-CERP/docvec/internal/output"
	"github.com/Aman-CERP/docvec/internal/store"
	"github.com/Aman-CERP/docvec/pkg/retrieval"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Report the store's health",
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

			status := svc.Health(cmd.Context())
			icon := "✅"
			switch status.Status {
			case store.StatusDegraded:
				icon = "⚠️ "
			case store.StatusUnhealthy:
				icon = "❌"
			}
			out.Statusf(icon, "%s (%d records, %d corrupt, consistent_ids=%t)",
				status.Status, status.RecordCount, status.CorruptCount, status.ConsistentIDs)
			if status.Detail != "" {
				out.Status("", status.Detail)
			}
			if status.Status == store.StatusUnhealthy {
				return fmt.Errorf("store is unhealthy")
			}
			return nil
		},
	}
}
