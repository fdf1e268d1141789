package eval

import (
	"encoding/json"
	"os"
	"time"

	"github.com/Aman-CERP/docvec/internal/docerrors"
)

// ReportConfig records the parameters a report was produced under, so a
// reader can reproduce the run.
type ReportConfig struct {
	DatasetName    string              `json:"dataset_name"`
	DatasetVersion string              `json:"dataset_version,omitempty"`
	QueryCount     int                 `json:"query_count"`
	KValues        []int               `json:"k_values"`
	Randomization  RandomizationConfig `json:"randomization"`
}

// PerformanceSummary is the latency side of an A/B report.
type PerformanceSummary struct {
	TestP95LatencyMS  float64 `json:"test_p95_latency_ms"`
	TestMeanLatencyMS float64 `json:"test_mean_latency_ms"`
}

// ReportDocument is the JSON document written for A/B comparisons and
// regression checks: configuration, timestamps, aggregated metrics on both
// sides, per-query comparisons, significance, a performance summary, and
// the deployment recommendation.
type ReportDocument struct {
	GeneratedAt time.Time          `json:"generated_at"`
	Config      ReportConfig       `json:"config"`
	Metrics     map[string]float64 `json:"metrics,omitempty"`
	Report      *ABReport          `json:"report,omitempty"`
	Performance PerformanceSummary `json:"performance"`
	Regression  *RegressionCheck   `json:"regression,omitempty"`
}

// BuildReport wraps an ABReport into the on-disk document shape.
func BuildReport(dataset EvaluationDataset, report ABReport, testLatenciesMS []float64, cfg RandomizationConfig) ReportDocument {
	doc := NewReportDocument(dataset, testLatenciesMS, cfg)
	doc.Report = &report
	doc.Performance.TestP95LatencyMS = report.TestP95LatencyMS
	return doc
}

// NewReportDocument builds the report envelope for a single-system run;
// callers attach Metrics, Report, or Regression as the run produced them.
func NewReportDocument(dataset EvaluationDataset, latenciesMS []float64, cfg RandomizationConfig) ReportDocument {
	perf := PerformanceSummary{TestP95LatencyMS: percentile(latenciesMS, 0.95)}
	if len(latenciesMS) > 0 {
		sum := 0.0
		for _, v := range latenciesMS {
			sum += v
		}
		perf.TestMeanLatencyMS = sum / float64(len(latenciesMS))
	}
	return ReportDocument{
		GeneratedAt: time.Now().UTC(),
		Config: ReportConfig{
			DatasetName:    dataset.Name,
			DatasetVersion: dataset.Version,
			QueryCount:     len(dataset.Examples),
			KValues:        KValues,
			Randomization:  cfg,
		},
		Performance: perf,
	}
}

// WriteReport serializes doc as indented JSON at path.
func WriteReport(path string, doc ReportDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return docerrors.Internal("failed to serialize evaluation report", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return docerrors.Storage("failed to write evaluation report", err)
	}
	return nil
}
