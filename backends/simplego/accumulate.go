// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package simplego

import "fmt"

// Kernel selects the scatter-accumulate implementation used by the engines.
type Kernel int

const (
	// KernelScalar checks the row sentinel at every element.
	KernelScalar Kernel = iota

	// KernelBatched multiplies batches of BatchSize elements, checking the sentinel once per batch.
	KernelBatched
)

// String implements fmt.Stringer.
func (k Kernel) String() string {
	switch k {
	case KernelScalar:
		return "scalar"
	case KernelBatched:
		return "batched"
	default:
		return fmt.Sprintf("Kernel(%d)", int(k))
	}
}

// AccumulateFn is the signature of the scatter-accumulate kernels.
type AccumulateFn func(scalar float32, rowValues []float32, rowIndices []uint32, dest []float32)

// fn returns the kernel implementation. Unknown kernels use Accumulate.
func (k Kernel) fn() AccumulateFn {
	if k == KernelBatched {
		return AccumulateBatched
	}
	return Accumulate
}

// Accumulate adds scalar * row into dest, where row is one row of an ELLPACK matrix:
// for each live position i, dest[rowIndices[i]] += scalar * rowValues[i].
//
// It stops at the first rowValues[i] == 0.
// It panics if rowIndices is shorter than rowValues or if an index is out of range of dest.
func Accumulate(scalar float32, rowValues []float32, rowIndices []uint32, dest []float32) {
	rowIndices = rowIndices[:len(rowValues)]
	for ii, value := range rowValues {
		if value == 0 {
			return
		}
		dest[rowIndices[ii]] += scalar * value
	}
}
