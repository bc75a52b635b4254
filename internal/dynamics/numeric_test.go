package dynamics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSoftmax_Uniform(t *testing.T) {
	probs := Softmax([]float64{0, 0, 0, 0})
	assert.Equal(t, []float64{0.25, 0.25, 0.25, 0.25}, probs)
}

func TestSoftmax_SumsToOne(t *testing.T) {
	probs := Softmax([]float64{1.5, -2, 0.3, 7})
	var sum float64
	for _, p := range probs {
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
}

func TestSoftmax_LargeMagnitudes(t *testing.T) {
	probs := Softmax([]float64{1000, 0, -1000})
	require.Len(t, probs, 3)

	var sum float64
	for _, p := range probs {
		require.False(t, math.IsNaN(p), "probability is NaN")
		require.False(t, math.IsInf(p, 0), "probability is Inf")
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
	assert.InDelta(t, 1.0, probs[0], 1e-12)
}

func TestSoftmax_AllLarge(t *testing.T) {
	probs := Softmax([]float64{1000, 1000})
	assert.Equal(t, []float64{0.5, 0.5}, probs)
}

func TestSoftmax_ShiftInvariant(t *testing.T) {
	a := Softmax([]float64{1, 2, 3})
	b := Softmax([]float64{101, 102, 103})
	for i := range a {
		assert.InDelta(t, a[i], b[i], 1e-12)
	}
}

func TestSoftmax_Empty(t *testing.T) {
	assert.Empty(t, Softmax(nil))
}

func TestArgmax(t *testing.T) {
	tests := []struct {
		name      string
		values    []float64
		wantIndex int
		wantValue float64
	}{
		{"single", []float64{0.3}, 0, 0.3},
		{"last", []float64{0.1, 0.2, 0.7}, 2, 0.7},
		{"tie takes lowest index", []float64{0.4, 0.4, 0.2}, 0, 0.4},
		{"tie after first", []float64{0.2, 0.4, 0.4}, 1, 0.4},
		{"empty", nil, -1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, v := Argmax(tt.values)
			assert.Equal(t, tt.wantIndex, idx)
			assert.Equal(t, tt.wantValue, v)
		})
	}
}
