// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ellpack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDense(t *testing.T) {
	d, err := NewDense(2, 3)
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 6), d.Flat())
	d.Row(1)[2] = 5
	assert.Equal(t, float32(5), d.At(1, 2))
	d.Zeros()
	assert.Equal(t, float32(0), d.At(1, 2))

	_, err = NewDense(0, 3)
	require.ErrorIs(t, err, ErrInvalidFormat)

	_, err = NewDense(1<<20, 1<<20)
	require.ErrorIs(t, err, ErrAllocation)

	saved := MaxDenseElements
	MaxDenseElements = 5
	defer func() { MaxDenseElements = saved }()
	_, err = NewDense(2, 3)
	require.ErrorIs(t, err, ErrAllocation)
}

func TestDenseEqual(t *testing.T) {
	d0, err := DenseFromFlat(1, 2, []float32{1, 2})
	require.NoError(t, err)
	d1, err := DenseFromFlat(1, 2, []float32{1, 2})
	require.NoError(t, err)
	assert.True(t, d0.Equal(d1))
	d1.Row(0)[1] = 2.0000002
	assert.False(t, d0.Equal(d1))
	assert.True(t, InDelta(d0, d1, 1e-3))

	d2, err := DenseFromFlat(2, 1, []float32{1, 2})
	require.NoError(t, err)
	assert.False(t, d0.Equal(d2))
	_, err = MaxAbsDiff(d0, d2)
	require.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = DenseFromFlat(2, 2, []float32{1})
	require.ErrorIs(t, err, ErrInvalidFormat)
}

func TestSplit(t *testing.T) {
	d, err := NewDense(7, 2)
	require.NoError(t, err)
	blocks, err := d.Split([]RowRange{{0, 3}, {3, 4}, {4, 7}})
	require.NoError(t, err)
	require.Len(t, blocks, 3)
	assert.Equal(t, RowRange{3, 4}, blocks[1].Range())
	assert.Equal(t, 2, blocks[2].Cols())

	// Writes land in the parent at the absolute row.
	blocks[2].Row(5)[1] = 3
	assert.Equal(t, float32(3), d.At(5, 1))

	// Views are clipped to their own rows.
	row := blocks[0].Row(2)
	assert.Equal(t, 2, cap(row))
	assert.Panics(t, func() { blocks[0].Row(3) })
	grown := append(blocks[1].Row(3), 9)
	grown[2] = 9
	assert.Equal(t, float32(0), d.At(4, 0))

	full := d.Block()
	assert.Equal(t, RowRange{0, 7}, full.Range())
	assert.Equal(t, float32(3), full.Row(5)[1])

	for _, ranges := range [][]RowRange{
		{},                       // nothing covered
		{{0, 3}, {4, 7}},         // gap
		{{0, 4}, {3, 7}},         // overlap
		{{0, 3}, {3, 3}, {3, 7}}, // empty
		{{0, 3}, {3, 8}},         // past the end
		{{3, 7}, {0, 3}},         // out of order
		{{0, 2}, {2, 4}, {4, 6}}, // incomplete
	} {
		_, err = d.Split(ranges)
		assert.ErrorIs(t, err, ErrInvalidPartition, "ranges %v", ranges)
	}
}

func TestCheckProduct(t *testing.T) {
	a, err := FromSlices(2, 3, 1, []float32{1, 2}, []uint32{0, 1})
	require.NoError(t, err)
	b, err := FromSlices(4, 2, 1, []float32{1, 1, 1, 1}, []uint32{0, 1, 0, 1})
	require.NoError(t, err)
	err = CheckProduct(a, b, nil)
	require.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Contains(t, err.Error(), "(3) != rows in matrix B (4)")
	// Operands are left untouched.
	assert.Equal(t, float32(2), a.At(1, 1))
	assert.Equal(t, 4, b.NumLive())

	b, err = FromSlices(3, 2, 1, []float32{1, 1, 1}, []uint32{0, 1, 0})
	require.NoError(t, err)
	require.NoError(t, CheckProduct(a, b, nil))
	dest, err := NewDense(2, 2)
	require.NoError(t, err)
	require.NoError(t, CheckProduct(a, b, dest))
	dest, err = NewDense(2, 3)
	require.NoError(t, err)
	require.ErrorIs(t, CheckProduct(a, b, dest), ErrDimensionMismatch)
	require.ErrorIs(t, CheckProduct(nil, b, nil), ErrDimensionMismatch)
}
