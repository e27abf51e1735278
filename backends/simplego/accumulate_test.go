// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package simplego

import (
	"math/rand/v2"
	"testing"

	"github.com/gomlx/ellpack/pkg/core/ellpack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccumulate(t *testing.T) {
	for _, kernel := range []Kernel{KernelScalar, KernelBatched} {
		t.Run(kernel.String(), func(t *testing.T) {
			fn := kernel.fn()
			dest := make([]float32, 4)
			fn(2, []float32{1, 3, 0, 0}, []uint32{3, 0, 0, 0}, dest)
			assert.Equal(t, []float32{6, 0, 0, 2}, dest)

			// Nothing after the sentinel.
			fn(1, []float32{0, 1}, []uint32{0, 1}, dest)
			assert.Equal(t, []float32{6, 0, 0, 2}, dest)

			// Rows longer than a batch, with a sentinel in the remainder.
			values := []float32{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 0, 0}
			indices := []uint32{0, 1, 2, 3, 0, 1, 2, 3, 0, 1, 0, 0}
			dest = make([]float32, 4)
			fn(0.5, values, indices, dest)
			assert.Equal(t, []float32{1.5, 1.5, 1, 1}, dest)
		})
	}
	assert.Equal(t, "Kernel(9)", Kernel(9).String())
}

func TestAccumulateBatchedMatchesScalar(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for _, width := range []int{1, 7, 8, 9, 15, 16, 17, 40} {
		// Every position of the sentinel, including none.
		for liveLen := 0; liveLen <= width; liveLen++ {
			values := make([]float32, width)
			indices := make([]uint32, width)
			for ii, col := range rng.Perm(width)[:liveLen] {
				values[ii] = float32(rng.IntN(200)-100) + 0.5
				indices[ii] = uint32(col)
			}
			scalar := make([]float32, width)
			batched := make([]float32, width)
			Accumulate(-1.25, values, indices, scalar)
			AccumulateBatched(-1.25, values, indices, batched)
			require.Equal(t, scalar, batched, "width=%d, liveLen=%d", width, liveLen)
		}
	}
}

func TestSentinelWithGarbage(t *testing.T) {
	// Row 0 of the rhs has a sentinel at position 1 followed by data that would contribute if read.
	lhs, err := ellpack.FromSlices(1, 2, 2, []float32{1, 1}, []uint32{0, 1})
	require.NoError(t, err)
	rhsValues := make([]float32, 2*10)
	rhsIndices := make([]uint32, 2*10)
	rhsValues[0], rhsIndices[0] = 2, 3
	for ii := 2; ii < 10; ii++ {
		rhsValues[ii], rhsIndices[ii] = 100, uint32(ii)
	}
	for ii := range 10 {
		rhsValues[10+ii], rhsIndices[10+ii] = 1, uint32(ii)
	}
	rhs, err := ellpack.FromSlices(2, 10, 10, rhsValues, rhsIndices)
	require.NoError(t, err)

	want := []float32{1, 1, 1, 3, 1, 1, 1, 1, 1, 1}
	b := newTestBackend(t, "workers=2,small_factor=0")
	for _, kernel := range []Kernel{KernelScalar, KernelBatched} {
		dest := newDest(t, lhs, rhs)
		require.NoError(t, b.MultiplySequential(lhs, rhs, dest, kernel))
		assert.Equal(t, want, dest.Flat(), "kernel %s", kernel)
	}
	dest := newDest(t, lhs, rhs)
	require.NoError(t, b.Multiply(lhs, rhs, dest))
	assert.Equal(t, want, dest.Flat())
}

func TestCorruptInput(t *testing.T) {
	b := newTestBackend(t, "workers=3,small_factor=0")
	lhs, rhs := randomOperands(t, 9, false, 12, 6, 6, 3, 3)

	// Matrix rows are views: overwriting them bypasses validation.
	_, lhsIndices := lhs.Row(10)
	lhsIndices[1] = 1000
	for _, kernel := range []Kernel{KernelScalar, KernelBatched} {
		dest := newDest(t, lhs, rhs)
		require.ErrorIs(t, b.MultiplySequential(lhs, rhs, dest, kernel), ellpack.ErrCorruptInput)
	}
	dest := newDest(t, lhs, rhs)
	require.ErrorIs(t, b.MultiplyParallel(lhs, rhs, dest), ellpack.ErrCorruptInput)

	// Out of range scatter.
	lhs, rhs = randomOperands(t, 10, false, 12, 6, 6, 3, 3)
	for row := range rhs.Rows() {
		_, rhsIndices := rhs.Row(row)
		rhsIndices[0] = 77
	}
	dest = newDest(t, lhs, rhs)
	err := b.MultiplyParallel(lhs, rhs, dest)
	require.ErrorIs(t, err, ellpack.ErrCorruptInput)
	dest = newDest(t, lhs, rhs)
	require.ErrorIs(t, b.MultiplySequential(lhs, rhs, dest, KernelBatched), ellpack.ErrCorruptInput)
}
