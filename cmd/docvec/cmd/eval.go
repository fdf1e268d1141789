package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docvec/internal/embed"
	"github.com/Aman-CERP/docvec/internal/eval"
	"github.com/Aman-CERP/docvec/internal/output"
	"github.com/Aman-CERP/docvec/internal/pipeline"
	"github.com/Aman-CERP/docvec/pkg/retrieval"
)

type evalOptions struct {
	dataset      string
	collection   string
	limit        int
	concurrency  int
	baselineNDCG float64
	threshold    float64
	reportPath   string
	provider     string
	model        string
	seed         uint64
	trials       int
}

func newEvalCmd() *cobra.Command {
	var opts evalOptions

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate retrieval quality against a labeled dataset",
		Long: `Run every query of a labeled dataset through the search pipeline and
report NDCG/MRR/MAP/precision/recall aggregates.

With --baseline-ndcg the aggregated NDCG@10 is additionally gated against
a previous run's value, failing the command when the drop exceeds the
regression threshold so CI can block a deployment.

Examples:
  docvec eval --dataset golden.json
  docvec eval --dataset golden.json --baseline-ndcg 0.80 --threshold 0.03
  docvec eval --dataset golden.json --report eval-report.json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEval(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.dataset, "dataset", "d", "", "Path to the labeled dataset JSON (required)")
	cmd.Flags().StringVarP(&opts.collection, "collection", "c", "", "Collection to search (default: \"default\")")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "Results per query")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 8, "Concurrent queries")
	cmd.Flags().Float64Var(&opts.baselineNDCG, "baseline-ndcg", -1, "Baseline NDCG@10 to gate against")
	cmd.Flags().Float64Var(&opts.threshold, "threshold", eval.DefaultRegressionThreshold, "Maximum tolerated NDCG@10 drop")
	cmd.Flags().StringVar(&opts.reportPath, "report", "", "Write the full JSON report to this path")
	cmd.Flags().StringVar(&opts.provider, "embedder", "", "Embedding provider: static, http (default: static)")
	cmd.Flags().StringVar(&opts.model, "model", "", "Embedding model name (provider-specific default if empty)")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 42, "Randomization test seed")
	cmd.Flags().IntVar(&opts.trials, "trials", 10_000, "Randomization test resamples")
	_ = cmd.MarkFlagRequired("dataset")

	return cmd
}

// evalSummary is the command's JSON output shape.
type evalSummary struct {
	Dataset    string                `json:"dataset"`
	Version    string                `json:"version,omitempty"`
	Queries    int                   `json:"queries"`
	Metrics    map[string]float64    `json:"metrics"`
	Regression *eval.RegressionCheck `json:"regression,omitempty"`
	ElapsedMS  int64                 `json:"elapsed_ms"`
}

func runEval(ctx context.Context, cmd *cobra.Command, opts evalOptions) error {
	out := output.New(cmd.OutOrStdout())
	start := time.Now()

	dataset, err := eval.LoadDataset(opts.dataset)
	if err != nil {
		return err
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

	var latMu sync.Mutex
	var latencies []float64
	search := func(ctx context.Context, query string) ([]eval.RankedDoc, error) {
		qStart := time.Now()
		resp, err := svc.Search(ctx, pipeline.Request{
			Query:      query,
			Limit:      opts.limit,
			Collection: opts.collection,
		})
		if err != nil {
			return nil, err
		}
		latMu.Lock()
		latencies = append(latencies, float64(time.Since(qStart).Microseconds())/1000)
		latMu.Unlock()
		ranked := make([]eval.RankedDoc, len(resp.Results))
		for i, r := range resp.Results {
			ranked[i] = eval.RankedDoc{DocID: r.VectorID}
		}
		return ranked, nil
	}

	runs, err := eval.RunDataset(ctx, dataset, search, opts.concurrency)
	if err != nil {
		return err
	}

	metrics := map[string]float64{
		"mrr": eval.Aggregate(dataset, runs, func(r []eval.RankedDoc, ex eval.LabeledExample) float64 {
			return eval.MRR(r, ex)
		}),
		"map": eval.Aggregate(dataset, runs, func(r []eval.RankedDoc, ex eval.LabeledExample) float64 {
			return eval.AP(r, ex)
		}),
	}
	for _, k := range eval.KValues {
		k := k
		metrics[fmt.Sprintf("ndcg@%d", k)] = eval.Aggregate(dataset, runs, func(r []eval.RankedDoc, ex eval.LabeledExample) float64 {
			return eval.NDCG(r, ex, k)
		})
		metrics[fmt.Sprintf("precision@%d", k)] = eval.Aggregate(dataset, runs, func(r []eval.RankedDoc, ex eval.LabeledExample) float64 {
			return eval.PrecisionAtK(r, ex, k)
		})
		metrics[fmt.Sprintf("recall@%d", k)] = eval.Aggregate(dataset, runs, func(r []eval.RankedDoc, ex eval.LabeledExample) float64 {
			return eval.RecallAtK(r, ex, k)
		})
	}

	summary := evalSummary{
		Dataset:   dataset.Name,
		Version:   dataset.Version,
		Queries:   len(dataset.Examples),
		Metrics:   metrics,
		ElapsedMS: time.Since(start).Milliseconds(),
	}

	if opts.baselineNDCG >= 0 {
		check := eval.CheckRegression(metrics["ndcg@10"], opts.baselineNDCG, opts.threshold)
		summary.Regression = &check
	}

	if opts.reportPath != "" {
		randCfg := eval.RandomizationConfig{Trials: opts.trials, Confidence: 0.95, Seed: opts.seed}
		doc := eval.NewReportDocument(dataset, latencies, randCfg)
		doc.Metrics = metrics
		doc.Regression = summary.Regression
		if err := eval.WriteReport(opts.reportPath, doc); err != nil {
			return err
		}
		out.Successf("Report written to %s", opts.reportPath)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return err
	}

	if summary.Regression != nil && summary.Regression.RegressionDetected {
		return fmt.Errorf("regression detected: NDCG@10 %.4f dropped more than %.2f below baseline %.4f",
			summary.Regression.Current, summary.Regression.Threshold, summary.Regression.Baseline)
	}
	return nil
}
