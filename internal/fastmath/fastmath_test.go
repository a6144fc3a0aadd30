package fastmath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFastSinCosAtQuarterTurns(t *testing.T) {
	cases := []float64{0, math.Pi / 2, math.Pi, 3 * math.Pi / 2}
	for _, x := range cases {
		assert.InDelta(t, math.Sin(x), FastSin(x), 1e-3)
		assert.InDelta(t, math.Cos(x), FastCos(x), 1e-3)
	}
}

func TestFastSinHandlesNegativeAndLargeInputs(t *testing.T) {
	assert.InDelta(t, math.Sin(-3.2), FastSin(-3.2), 1e-3)
	assert.InDelta(t, math.Sin(100.5), FastSin(100.5), 1e-3)
}

func TestFastExpRelativeError(t *testing.T) {
	for x := -10.0; x <= 10.0; x += 1.0 {
		want := math.Exp(x)
		got := FastExp(x)
		if want == 0 {
			continue
		}
		rel := math.Abs(got-want) / math.Abs(want)
		assert.Less(t, rel, 1e-2, "x=%v want=%v got=%v", x, want, got)
	}
}

func TestFastExpSaturates(t *testing.T) {
	assert.True(t, math.IsInf(FastExp(1000), 1))
	assert.Equal(t, 0.0, FastExp(-1000))
}

func TestFastLogRelativeError(t *testing.T) {
	for _, x := range []float64{0.1, 0.5, 1, 2, 10, 50, 100} {
		want := math.Log(x)
		got := FastLog(x)
		rel := math.Abs(got-want) / math.Abs(want+1e-12)
		assert.Less(t, rel, 1e-2, "x=%v want=%v got=%v", x, want, got)
	}
}

func TestFastLogEdgeCases(t *testing.T) {
	assert.True(t, math.IsInf(FastLog(0), -1))
	assert.True(t, math.IsNaN(FastLog(-1)))
}

func TestFastSqrtRelativeError(t *testing.T) {
	for _, x := range []float64{0, 1, 4, 2, 1000, 1e6} {
		want := math.Sqrt(x)
		got := FastSqrt(x)
		if want == 0 {
			assert.Equal(t, 0.0, got)
			continue
		}
		rel := math.Abs(got-want) / want
		assert.Less(t, rel, 1e-6, "x=%v want=%v got=%v", x, want, got)
	}
}

func TestFastSqrtNegativeIsNaN(t *testing.T) {
	assert.True(t, math.IsNaN(FastSqrt(-1)))
}
