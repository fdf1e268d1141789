package eval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomizationTestReproducibleWithFixedSeed(t *testing.T) {
	deltas := []float64{0.05, -0.02, 0.08, 0.01, 0.03, -0.01, 0.04, 0.02}
	cfg := RandomizationConfig{Trials: 5000, Confidence: 0.95, Seed: 7}

	first := RandomizationTest(deltas, cfg)
	second := RandomizationTest(deltas, cfg)

	assert.Equal(t, first.PValue, second.PValue)
	assert.Equal(t, first.CILow, second.CILow)
	assert.Equal(t, first.CIHigh, second.CIHigh)
	assert.Equal(t, first.EffectSize, second.EffectSize)
}

func TestRandomizationTestDifferentSeedsDiffer(t *testing.T) {
	deltas := []float64{0.05, -0.02, 0.08, 0.01, 0.03, -0.01, 0.04, 0.02}
	a := RandomizationTest(deltas, RandomizationConfig{Trials: 5000, Confidence: 0.95, Seed: 1})
	b := RandomizationTest(deltas, RandomizationConfig{Trials: 5000, Confidence: 0.95, Seed: 2})

	// The observed mean is seed-independent; only the resampling varies.
	assert.Equal(t, a.ObservedMean, b.ObservedMean)
}

func TestRandomizationTestZeroVarianceEffectSize(t *testing.T) {
	deltas := []float64{0.1, 0.1, 0.1, 0.1}
	res := RandomizationTest(deltas, DefaultRandomizationConfig())
	assert.Equal(t, 0.0, res.EffectSize)
	assert.InDelta(t, 0.1, res.ObservedMean, 1e-12)
}

func TestRandomizationTestEmptyDeltas(t *testing.T) {
	res := RandomizationTest(nil, DefaultRandomizationConfig())
	assert.Equal(t, RandomizationResult{}, res)
}

func TestRandomizationTestContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	deltas := []float64{0.05, -0.02, 0.08}
	_, err := RandomizationTestContext(ctx, deltas, RandomizationConfig{Trials: 50_000, Confidence: 0.95, Seed: 1})
	require.Error(t, err)
}

func TestRandomizationTestNoiseIsNotSignificant(t *testing.T) {
	// Symmetric deltas around zero should not clear a 95% confidence bar.
	deltas := []float64{0.01, -0.01, 0.02, -0.02, 0.005, -0.005, 0.015, -0.015}
	res := RandomizationTest(deltas, DefaultRandomizationConfig())
	assert.False(t, res.Significant)
}
