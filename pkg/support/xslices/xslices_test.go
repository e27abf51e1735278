package xslices

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaxAbsDiff(t *testing.T) {
	assert.Equal(t, 0.0, MaxAbsDiff([]float32{}, []float64{}))
	assert.Equal(t, 1.5, MaxAbsDiff([]float32{1, 2, 3}, []float64{1, 3.5, 2}))
	// Only the common prefix is compared.
	assert.Equal(t, 0.0, MaxAbsDiff([]float32{1, 2}, []float32{1, 2, 100}))
	assert.True(t, math.IsNaN(MaxAbsDiff([]float32{1, float32(math.NaN())}, []float32{1, 1})))
}

func TestInDelta(t *testing.T) {
	assert.True(t, InDelta([]float32{1, 2}, []float64{1, 2}, 0))
	assert.False(t, InDelta([]float32{1, 2}, []float64{1, 2.5}, 0))
	assert.True(t, InDelta([]float32{1, 2}, []float64{1, 2.5}, 0.5))
	assert.False(t, InDelta([]float32{1}, []float64{1, 2}, 1))
	inf := float32(math.Inf(1))
	assert.True(t, InDelta([]float32{inf}, []float32{inf}, 0))
	assert.False(t, InDelta([]float32{float32(math.NaN())}, []float32{0}, 10))
}

func TestCountAndMax(t *testing.T) {
	values := []float32{0, 1, 0, -2, 3}
	assert.Equal(t, 3, CountFunc(values, func(v float32) bool { return v != 0 }))
	assert.Equal(t, float32(3), Max(values))
	assert.Equal(t, 0, Max([]int{}))
	assert.Equal(t, -1, Max([]int{-3, -1, -2}))
}

func TestAllFinite(t *testing.T) {
	ok, pos := AllFinite([]float32{1, 2})
	assert.True(t, ok)
	assert.Equal(t, -1, pos)
	ok, pos = AllFinite([]float32{1, float32(math.Inf(-1)), float32(math.NaN())})
	assert.False(t, ok)
	assert.Equal(t, 1, pos)
	ok, pos = AllFinite([]float64{math.NaN()})
	assert.False(t, ok)
	assert.Equal(t, 0, pos)
}
