package eval

import (
	"context"
	"math"
	"sort"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"

	"github.com/Aman-CERP/docvec/internal/docerrors"
)

// RandomizationConfig controls the sign-flip significance test.
type RandomizationConfig struct {
	Trials     int     `json:"trials"`     // B, default 10_000
	Confidence float64 `json:"confidence"` // c, default 0.95
	Seed       uint64  `json:"seed"`
}

// DefaultRandomizationConfig returns the standard test parameters.
func DefaultRandomizationConfig() RandomizationConfig {
	return RandomizationConfig{Trials: 10_000, Confidence: 0.95, Seed: 42}
}

// RandomizationResult is the outcome of a sign-flip randomization test over
// per-query metric deltas.
type RandomizationResult struct {
	ObservedMean float64 `json:"observed_mean"`
	PValue       float64 `json:"p_value"`
	Significant  bool    `json:"significant"`
	EffectSize   float64 `json:"effect_size"` // Cohen's d
	CILow        float64 `json:"ci_low"`
	CIHigh       float64 `json:"ci_high"`
}

// RandomizationTest runs the sign-flip resampling test without a
// cancellation point; see RandomizationTestContext for the cancellable form.
func RandomizationTest(deltas []float64, cfg RandomizationConfig) RandomizationResult {
	res, _ := RandomizationTestContext(context.Background(), deltas, cfg)
	return res
}

// RandomizationTestContext runs a sign-flip resampling test on deltas
// (test_i - baseline_i per query). p is the fraction of B
// sign-flipped resample means whose absolute value is >= the observed
// mean's absolute value; the delta is significant at cfg.Confidence iff
// p < 1 - confidence. Cancellation is checked every 1,000 resamples.
func RandomizationTestContext(ctx context.Context, deltas []float64, cfg RandomizationConfig) (RandomizationResult, error) {
	if cfg.Trials <= 0 {
		cfg = DefaultRandomizationConfig()
	}
	if len(deltas) == 0 {
		return RandomizationResult{}, nil
	}

	observedMean := stat.Mean(deltas, nil)
	observedAbs := math.Abs(observedMean)

	src := rand.NewSource(cfg.Seed)
	rng := rand.New(src)

	resampleMeans := make([]float64, cfg.Trials)
	exceed := 0
	buf := make([]float64, len(deltas))
	for t := 0; t < cfg.Trials; t++ {
		if t%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return RandomizationResult{}, docerrors.Cancelled("randomization test cancelled", err)
			}
		}
		for i, d := range deltas {
			if rng.Float64() < 0.5 {
				buf[i] = -d
			} else {
				buf[i] = d
			}
		}
		m := stat.Mean(buf, nil)
		resampleMeans[t] = m
		if math.Abs(m) >= observedAbs {
			exceed++
		}
	}
	p := float64(exceed) / float64(cfg.Trials)

	var effectSize float64
	if sd := stat.StdDev(deltas, nil); sd != 0 {
		effectSize = observedMean / sd
	}

	sorted := append([]float64(nil), resampleMeans...)
	sort.Float64s(sorted)
	alpha := 1 - cfg.Confidence
	lo := stat.Quantile(alpha/2, stat.Empirical, sorted, nil)
	hi := stat.Quantile(1-alpha/2, stat.Empirical, sorted, nil)

	return RandomizationResult{
		ObservedMean: observedMean,
		PValue:       p,
		Significant:  p < alpha,
		EffectSize:   effectSize,
		CILow:        lo,
		CIHigh:       hi,
	}, nil
}
