package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docvec/internal/embed"
	"github.com/Aman-CERP/docvec/internal/output"
	"github.com/Aman-CERP/docvec/internal/pipeline"
	"github.com/Aman-CERP/docvec/pkg/retrieval"
)

type batchSearchOptions struct {
	file       string
	limit      int
	collection string
	format     string
	provider   string
	model      string
}

func newBatchSearchCmd() *cobra.Command {
	var opts batchSearchOptions

	cmd := &cobra.Command{
		Use:   "batch-search",
		Short: "Run many queries concurrently, one per line",
		Long: `Read queries one per line (from --file, or stdin when --file is
omitted) and run them concurrently, reporting each query's own result count,
timing, and error independently.

Examples:
  docvec batch-search --file queries.txt
  printf "retry backoff\nrate limit error\n" | docvec batch-search`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBatchSearch(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.file, "file", "", "File of newline-delimited queries (default: stdin)")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", pipeline.DefaultLimit, "Maximum results per query")
	cmd.Flags().StringVarP(&opts.collection, "collection", "c", "", "Collection to search (default: \"default\")")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().StringVar(&opts.provider, "embedder", "", "Embedding provider: static, http (default: static)")
	cmd.Flags().StringVar(&opts.model, "model", "", "Embedding model name (provider-specific default if empty)")

	return cmd
}

func runBatchSearch(ctx context.Context, cmd *cobra.Command, opts batchSearchOptions) error {
	out := output.New(cmd.OutOrStdout())

	queries, err := readQueries(cmd, opts.file)
	if err != nil {
		return err
	}
	if len(queries) == 0 {
		out.Status("", "No queries given")
		return nil
	}

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

	reqs := make([]pipeline.Request, len(queries))
	for i, q := range queries {
		reqs[i] = pipeline.Request{Query: q, Limit: opts.limit, Collection: opts.collection, IncludeScores: true}
	}

	resp, err := svc.BatchSearch(ctx, retrieval.BatchSearchRequest{Requests: reqs})
	if err != nil {
		return fmt.Errorf("batch search failed: %w", err)
	}

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	for _, r := range resp.Results {
		if r.Err != nil {
			out.Statusf("", "%d. %q failed: %v", r.Index+1, queries[r.Index], r.Err)
			continue
		}
		out.Statusf("", "%d. %q -> %d result(s) in %dms", r.Index+1, queries[r.Index], len(r.Response.Results), r.ElapsedMS)
	}
	out.Statusf("", "%.0f%% succeeded in %dms total", resp.SuccessRate*100, resp.ProcessingTimeMS)
	return nil
}

func readQueries(cmd *cobra.Command, file string) ([]string, error) {
	var r io.Reader
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("failed to open query file: %w", err)
		}
		defer f.Close()
		r = f
	} else {
		r = cmd.InOrStdin()
	}

	var queries []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		queries = append(queries, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read queries: %w", err)
	}
	return queries, nil
}
