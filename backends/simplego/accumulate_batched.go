// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package simplego

// BatchSize is the number of elements processed per step by AccumulateBatched: two lanes of 4 float32.
const BatchSize = 8

// AccumulateBatched is equivalent to Accumulate, but processes the row in batches of BatchSize elements.
//
// The row sentinel is only checked at the first element of each batch: the BatchSize products are computed
// unconditionally, and then scatter-added one at a time. Positions after a sentinel inside a batch must hold
// a value of 0 with a valid index (which ellpack.Matrix guarantees), so they add 0. The remaining
// len(rowValues) % BatchSize elements are checked one by one.
func AccumulateBatched(scalar float32, rowValues []float32, rowIndices []uint32, dest []float32) {
	n := len(rowValues)
	rowIndices = rowIndices[:n]
	var products [BatchSize]float32
	ii := 0
	for ; ii+BatchSize <= n; ii += BatchSize {
		if rowValues[ii] == 0 {
			return
		}
		values := rowValues[ii : ii+BatchSize : ii+BatchSize]
		indices := rowIndices[ii : ii+BatchSize : ii+BatchSize]

		// Lane 0.
		products[0] = scalar * values[0]
		products[1] = scalar * values[1]
		products[2] = scalar * values[2]
		products[3] = scalar * values[3]
		// Lane 1.
		products[4] = scalar * values[4]
		products[5] = scalar * values[5]
		products[6] = scalar * values[6]
		products[7] = scalar * values[7]

		dest[indices[0]] += products[0]
		dest[indices[1]] += products[1]
		dest[indices[2]] += products[2]
		dest[indices[3]] += products[3]
		dest[indices[4]] += products[4]
		dest[indices[5]] += products[5]
		dest[indices[6]] += products[6]
		dest[indices[7]] += products[7]
	}
	for ; ii < n; ii++ {
		value := rowValues[ii]
		if value == 0 {
			return
		}
		dest[rowIndices[ii]] += scalar * value
	}
}
