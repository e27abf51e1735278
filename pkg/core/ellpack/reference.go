// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ellpack

import (
	"github.com/gomlx/ellpack/pkg/support/xslices"
	"github.com/pkg/errors"
)

// DefaultTolerance is the maximum absolute deviation accepted when comparing a product against
// ReferenceProduct.
const DefaultTolerance = 1.0

// ReferenceProduct computes a x b with the plain dense triple loop over the densified operands.
//
// It accumulates in float64 and is only meant to verify the sparse engines: it costs
// O(rows(a) * cols(a) * cols(b)) time and O(rows*cols) memory of each operand.
func ReferenceProduct(a, b *Matrix) (*Dense, error) {
	if err := CheckProduct(a, b, nil); err != nil {
		return nil, err
	}
	denseA, err := a.Densify()
	if err != nil {
		return nil, err
	}
	denseB, err := b.Densify()
	if err != nil {
		return nil, err
	}
	result, err := NewDense(a.rows, b.cols)
	if err != nil {
		return nil, err
	}
	accumulator := make([]float64, b.cols)
	for row := range a.rows {
		clear(accumulator)
		rowA := denseA.Row(row)
		for k, valueA := range rowA {
			if valueA == 0 {
				continue
			}
			rowB := denseB.Row(k)
			for col, valueB := range rowB {
				accumulator[col] += float64(valueA) * float64(valueB)
			}
		}
		resultRow := result.Row(row)
		for col, value := range accumulator {
			resultRow[col] = float32(value)
		}
	}
	return result, nil
}

// MaxAbsDiff returns the largest absolute difference between corresponding elements of x and y.
func MaxAbsDiff(x, y *Dense) (float64, error) {
	if x.rows != y.rows || x.cols != y.cols {
		return 0, errors.Wrapf(ErrDimensionMismatch, "comparing %dx%d with %dx%d", x.rows, x.cols, y.rows, y.cols)
	}
	return xslices.MaxAbsDiff(x.data, y.data), nil
}

// InDelta returns whether every element of x is within delta of the corresponding element in y.
func InDelta(x, y *Dense, delta float64) bool {
	if x.rows != y.rows || x.cols != y.cols {
		return false
	}
	return xslices.InDelta(x.data, y.data, delta)
}
