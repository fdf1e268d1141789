package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docvec/internal/embed"
	"github.com/Aman-CERP/docvec/internal/output"
	"github.com/Aman-CERP/docvec/internal/pipeline"
	"github.com/Aman-CERP/docvec/pkg/retrieval"
)

type searchOptions struct {
	limit      int
	collection string
	format     string
	provider   string
	model      string
	explain    bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed store",
		Long: `Search the indexed store using the enhance -> embed -> retrieve
-> rerank pipeline.

Examples:
  docvec search "how to configure api auth"
  docvec search "rate limit error" --limit 5 --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", pipeline.DefaultLimit, "Maximum number of results")
	cmd.Flags().StringVarP(&opts.collection, "collection", "c", "", "Collection to search (default: \"default\")")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().StringVar(&opts.provider, "embedder", "", "Embedding provider: static, http (default: static)")
	cmd.Flags().StringVar(&opts.model, "model", "", "Embedding model name (provider-specific default if empty)")
	cmd.Flags().BoolVar(&opts.explain, "explain", false, "Include per-signal rerank scores in the output")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	out := output.New(cmd.OutOrStdout())

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	embedder, err := embed.NewEmbedder(ctx, embed.ParseProvider(opts.provider), opts.model)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	svc, err := retrieval.Open(cfg, embedder, nil)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer svc.Close()

	resp, err := svc.Search(ctx, pipeline.Request{
		Query:               query,
		Limit:               opts.limit,
		Collection:          opts.collection,
		IncludeScores:       true,
		IncludeExplanations: opts.explain,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	if len(resp.Results) == 0 {
		out.Status("", "No results")
		return nil
	}

	for i, r := range resp.Results {
		out.Statusf("", "%d. [%.3f] %s", i+1, r.Score, r.Title)
		if len(r.HeadingPath) > 0 {
			out.Statusf("", "   %s", strings.Join(r.HeadingPath, " > "))
		}
		preview := r.Content
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		out.Code(preview)
	}
	out.Statusf("", "%d result(s) in %dms", len(resp.Results), resp.ProcessingTimeMS)
	return nil
}
