package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docvec/internal/embed"
	"github.com/Aman-CERP/docvec/internal/output"
	"github.com/Aman-CERP/docvec/pkg/retrieval"
)

func newDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <document-id>",
		Short: "Delete every chunk belonging to a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd.Context(), cmd, args[0])
		},
	}
	return cmd
}

func runDelete(ctx context.Context, cmd *cobra.Command, docID string) error {
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

	deleted, err := svc.DeleteDocument(ctx, docID)
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	out.Successf("Deleted %d chunk(s) for document %s", deleted, docID)
	return nil
}
