package eval

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// abDataset builds n queries each rating docs a..e, with "a" the only
// relevant doc, so a ranking is either right or wrong per query.
func abDataset(n int) EvaluationDataset {
	ds := EvaluationDataset{Name: "ab", Version: "1"}
	for i := 0; i < n; i++ {
		ds.Examples = append(ds.Examples, LabeledExample{
			Query:         "q" + string(rune('a'+i)),
			Ratings:       map[string]Relevance{"a": 2, "b": 0, "c": 0},
			TotalRelevant: 1,
		})
	}
	return ds
}

func perfectRuns(ds EvaluationDataset) map[string][]RankedDoc {
	runs := make(map[string][]RankedDoc)
	for _, ex := range ds.Examples {
		runs[ex.Query] = []RankedDoc{{DocID: "a"}, {DocID: "b"}, {DocID: "c"}}
	}
	return runs
}

func reversedRuns(ds EvaluationDataset) map[string][]RankedDoc {
	runs := make(map[string][]RankedDoc)
	for _, ex := range ds.Examples {
		runs[ex.Query] = []RankedDoc{{DocID: "c"}, {DocID: "b"}, {DocID: "a"}}
	}
	return runs
}

func TestCompareSystemsStronglyRecommends(t *testing.T) {
	ds := abDataset(20)
	baseline := reversedRuns(ds)
	test := perfectRuns(ds)
	latencies := make([]float64, 20)
	for i := range latencies {
		latencies[i] = 50
	}

	report := CompareSystems(ds, baseline, test, latencies, DefaultRandomizationConfig())

	assert.Equal(t, 20, report.ImprovedCount)
	assert.Equal(t, 0, report.DegradedCount)
	assert.Greater(t, report.NDCGImprovement, 0.15)
	assert.True(t, report.Significance.Significant)
	assert.Equal(t, "StronglyRecommend", report.Recommendation.Verdict)
	assert.InDelta(t, 1.0, report.TestMeanNDCG, 1e-9)
	assert.Less(t, report.BaselineMeanNDCG, 1.0)
}

func TestCompareSystemsNotRecommendedWhenEqual(t *testing.T) {
	ds := abDataset(10)
	runs := perfectRuns(ds)

	report := CompareSystems(ds, runs, runs, []float64{10, 20, 30}, DefaultRandomizationConfig())

	assert.Equal(t, 0, report.ImprovedCount)
	assert.Equal(t, 0, report.DegradedCount)
	assert.InDelta(t, 0.0, report.NDCGImprovement, 1e-9)
	assert.Equal(t, "NotRecommend", report.Recommendation.Verdict)
	assert.Equal(t, "Insufficient quality improvement", report.Recommendation.Reason)
}

func TestRecommendConditionalOnSlowImprovement(t *testing.T) {
	r := ABReport{
		NDCGImprovement:  0.2,
		TestP95LatencyMS: 900, // fails the latency gate
		Significance:     RandomizationResult{Significant: true},
	}
	rec := recommend(r)
	assert.Equal(t, "Conditional", rec.Verdict)
	assert.Equal(t, "Pending performance optimization", rec.Reason)
}

func TestCheckRegressionGateScenarios(t *testing.T) {
	// Baseline 0.80 with the default 0.03 threshold.
	assert.True(t, CheckRegression(0.76, 0.80, 0.03).RegressionDetected)
	assert.False(t, CheckRegression(0.78, 0.80, 0.03).RegressionDetected)

	improved := CheckRegression(0.83, 0.80, 0.03)
	assert.False(t, improved.RegressionDetected)
	assert.InDelta(t, 0.03, improved.Improvement, 1e-9)
}

func TestPercentile(t *testing.T) {
	vals := []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}
	assert.InDelta(t, 90, percentile(vals, 0.95), 10.0)
	assert.Equal(t, 0.0, percentile(nil, 0.95))
}

func TestWriteReportRoundTrip(t *testing.T) {
	ds := abDataset(5)
	report := CompareSystems(ds, reversedRuns(ds), perfectRuns(ds), []float64{5, 10}, DefaultRandomizationConfig())
	doc := BuildReport(ds, report, []float64{5, 10}, DefaultRandomizationConfig())

	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, WriteReport(path, doc))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded ReportDocument
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "ab", decoded.Config.DatasetName)
	assert.Equal(t, 5, decoded.Config.QueryCount)
	require.NotNil(t, decoded.Report)
	assert.Len(t, decoded.Report.Comparisons, 5)
	assert.NotZero(t, decoded.GeneratedAt)
}
