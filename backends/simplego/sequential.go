// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package simplego

import (
	"time"

	"github.com/gomlx/ellpack/pkg/core/ellpack"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// MultiplySequential accumulates lhs x rhs into dest, one row at a time, in the calling goroutine.
//
// It returns an error wrapping ellpack.ErrDimensionMismatch, and doesn't touch dest, if lhs.Cols() != rhs.Rows()
// or dest is not lhs.Rows() x rhs.Cols().
// The cost is O(rows(lhs) * width(lhs) * width(rhs)).
func (b *Backend) MultiplySequential(lhs, rhs *ellpack.Matrix, dest *ellpack.Dense, kernel Kernel) error {
	if err := ellpack.CheckProduct(lhs, rhs, dest); err != nil {
		return err
	}
	start := time.Now()
	if err := multiplyRows(lhs, rhs, dest.Block(), kernel); err != nil {
		return err
	}
	klog.V(2).Infof("simplego: sequential %s multiplication of %d rows took %s", kernel, lhs.Rows(), time.Since(start))
	return nil
}

// multiplyRows accumulates the rows of lhs x rhs owned by block into it.
//
// Operands are assumed to be checked with ellpack.CheckProduct. A live column of lhs that is not a row of rhs,
// or any out-of-range access caused by buffers modified after validation, returns ellpack.ErrCorruptInput.
func multiplyRows(lhs, rhs *ellpack.Matrix, block ellpack.RowBlock, kernel Kernel) error {
	accumulate := kernel.fn()
	rows := block.Range()
	numRhsRows := rhs.Rows()
	var err error
	panicErr := exceptions.TryCatch[error](func() {
		for row := rows.Start; row < rows.End; row++ {
			destRow := block.Row(row)
			lhsValues, lhsIndices := lhs.Row(row)
			for ii, lhsValue := range lhsValues {
				if lhsValue == 0 {
					break
				}
				k := int(lhsIndices[ii])
				if k >= numRhsRows {
					err = errors.Wrapf(ellpack.ErrCorruptInput, "row %d of lhs references row %d of rhs, which has %d rows",
						row, k, numRhsRows)
					return
				}
				rhsValues, rhsIndices := rhs.Row(k)
				accumulate(lhsValue, rhsValues, rhsIndices, destRow)
			}
		}
	})
	if panicErr != nil {
		return errors.Wrapf(ellpack.ErrCorruptInput, "multiplying rows %s: %v", rows, panicErr)
	}
	return err
}
