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

type searchAllOptions struct {
	limit         int
	perCollection int
	collections   []string
	merge         bool
	format        string
	provider      string
	model         string
}

func newSearchAllCmd() *cobra.Command {
	var opts searchAllOptions

	cmd := &cobra.Command{
		Use:   "search-all <query>",
		Short: "Search across multiple collections at once",
		Long: `Fan a single query out across every collection in the store, or a
caller-named subset, tagging each hit with its source collection.

Examples:
  docvec search-all "rate limit error"
  docvec search-all "deploy steps" --collections runbooks,oncall --merge`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearchAll(cmd.Context(), cmd, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", pipeline.DefaultLimit, "Maximum number of merged results (with --merge)")
	cmd.Flags().IntVar(&opts.perCollection, "per-collection", 0, "Limit per collection before merging (default: same as --limit)")
	cmd.Flags().StringSliceVar(&opts.collections, "collections", nil, "Collections to search (default: every collection in the store)")
	cmd.Flags().BoolVar(&opts.merge, "merge", false, "Merge all collections into one globally ranked list")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().StringVar(&opts.provider, "embedder", "", "Embedding provider: static, http (default: static)")
	cmd.Flags().StringVar(&opts.model, "model", "", "Embedding model name (provider-specific default if empty)")

	return cmd
}

func runSearchAll(ctx context.Context, cmd *cobra.Command, query string, opts searchAllOptions) error {
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

	resp, err := svc.SearchCollections(ctx, retrieval.CollectionSearchRequest{
		Request:       pipeline.Request{Query: query, Limit: opts.limit, IncludeScores: true},
		Collections:   opts.collections,
		MergeResults:  opts.merge,
		PerCollection: opts.perCollection,
	})
	if err != nil {
		return fmt.Errorf("cross-collection search failed: %w", err)
	}

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	printResults := func(collection string, results []pipeline.Result) {
		out.Statusf("", "[%s] %d result(s)", collection, len(results))
		for i, r := range results {
			out.Statusf("", "  %d. [%.3f] %s", i+1, r.Score, r.Title)
		}
	}

	if opts.merge {
		printResults("merged", resp.Merged)
	} else {
		for _, name := range resp.Stats.CollectionsSearched {
			printResults(name, resp.ByCollection[name])
		}
	}
	out.Statusf("", "%d collection(s) searched in %dms", len(resp.Stats.CollectionsSearched), resp.Stats.TotalProcessingTimeMS)
	return nil
}
