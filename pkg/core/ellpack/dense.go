// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ellpack

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// MaxDenseElements limits the size of a Dense buffer allocated with NewDense. Larger requests
// fail with ErrAllocation instead of exhausting memory.
var MaxDenseElements = math.MaxInt32

// Dense is a row-major rows x cols matrix of float32, used as the accumulator of products.
type Dense struct {
	rows, cols int
	data       []float32
}

// NewDense returns a zero-initialized rows x cols Dense.
func NewDense(rows, cols int) (*Dense, error) {
	if rows <= 0 || cols <= 0 {
		return nil, NewFormatError(ErrInvalidFormat, 0, -1, "",
			"dense dimensions must be positive, got %dx%d", rows, cols)
	}
	size, ok := mulNoOverflow(rows, cols)
	if !ok || size > MaxDenseElements {
		return nil, errors.Wrapf(ErrAllocation, "dense %dx%d exceeds the limit of %d elements", rows, cols, MaxDenseElements)
	}
	data, err := makeSlice[float32](size)
	if err != nil {
		return nil, errors.WithMessagef(err, "dense %dx%d", rows, cols)
	}
	return &Dense{rows: rows, cols: cols, data: data}, nil
}

// DenseFromFlat wraps a row-major flat slice of length rows*cols. The slice is not copied.
func DenseFromFlat(rows, cols int, flat []float32) (*Dense, error) {
	if rows <= 0 || cols <= 0 || len(flat) != rows*cols {
		return nil, NewFormatError(ErrInvalidFormat, 0, -1, "",
			"flat slice of length %d doesn't match dense %dx%d", len(flat), rows, cols)
	}
	return &Dense{rows: rows, cols: cols, data: flat}, nil
}

// Rows returns the number of rows.
func (d *Dense) Rows() int { return d.rows }

// Cols returns the number of columns.
func (d *Dense) Cols() int { return d.cols }

// At returns the value at (row, col).
func (d *Dense) At(row, col int) float32 { return d.data[row*d.cols+col] }

// Row returns a view of the given row.
func (d *Dense) Row(row int) []float32 {
	start := row * d.cols
	end := start + d.cols
	return d.data[start:end:end]
}

// Flat returns the underlying row-major buffer.
func (d *Dense) Flat() []float32 { return d.data }

// Zeros resets every element to 0.
func (d *Dense) Zeros() { clear(d.data) }

// Equal returns whether both have the same shape and bitwise-identical elements.
func (d *Dense) Equal(other *Dense) bool {
	if d.rows != other.rows || d.cols != other.cols {
		return false
	}
	for ii, value := range d.data {
		if math.Float32bits(value) != math.Float32bits(other.data[ii]) {
			return false
		}
	}
	return true
}

// String returns a short description, and the values if the matrix is small.
func (d *Dense) String() string {
	s := fmt.Sprintf("Dense(%dx%d)", d.rows, d.cols)
	if len(d.data) > 64 {
		return s
	}
	for row := range d.rows {
		s += fmt.Sprintf("\n\t%v", d.Row(row))
	}
	return s
}

// RowRange is the half-open range of rows [Start, End).
type RowRange struct {
	Start, End int
}

// Len returns the number of rows in the range.
func (r RowRange) Len() int { return r.End - r.Start }

// String implements fmt.Stringer.
func (r RowRange) String() string { return fmt.Sprintf("[%d, %d)", r.Start, r.End) }

// RowBlock is an exclusive writable view over a contiguous range of rows of a Dense.
//
// Its buffer is capacity-clipped to its range, so no write through a RowBlock can reach rows
// owned by another block.
type RowBlock struct {
	rows RowRange
	cols int
	data []float32
}

// Split partitions d into one RowBlock per range. The ranges must be non-empty, sorted, disjoint
// and together cover every row of d exactly once, otherwise ErrInvalidPartition is returned.
func (d *Dense) Split(ranges []RowRange) ([]RowBlock, error) {
	blocks := make([]RowBlock, 0, len(ranges))
	next := 0
	for ii, r := range ranges {
		if r.Start != next || r.End <= r.Start || r.End > d.rows {
			return nil, errors.Wrapf(ErrInvalidPartition, "range #%d %s of %d rows (expected it to start at %d)",
				ii, r, d.rows, next)
		}
		start, end := r.Start*d.cols, r.End*d.cols
		blocks = append(blocks, RowBlock{rows: r, cols: d.cols, data: d.data[start:end:end]})
		next = r.End
	}
	if next != d.rows {
		return nil, errors.Wrapf(ErrInvalidPartition, "ranges cover rows [0, %d) of %d", next, d.rows)
	}
	return blocks, nil
}

// Block returns a single RowBlock covering all rows of d.
func (d *Dense) Block() RowBlock {
	return RowBlock{rows: RowRange{0, d.rows}, cols: d.cols, data: d.data}
}

// Range returns the rows owned by the block.
func (b RowBlock) Range() RowRange { return b.rows }

// Cols returns the number of columns of each row.
func (b RowBlock) Cols() int { return b.cols }

// Row returns the writable view of row, given as an absolute row number of the parent Dense.
// It panics if row is not owned by the block.
func (b RowBlock) Row(row int) []float32 {
	if row < b.rows.Start || row >= b.rows.End {
		exceptions.Panicf("row %d is outside of block %s", row, b.rows)
	}
	start := (row - b.rows.Start) * b.cols
	end := start + b.cols
	return b.data[start:end:end]
}

// CheckProduct verifies that a x b can be accumulated into dest: a.Cols() == b.Rows() and dest is
// a.Rows() x b.Cols(). It returns an error wrapping ErrDimensionMismatch otherwise.
// dest may be nil, in which case only the operands are checked.
func CheckProduct(a, b *Matrix, dest *Dense) error {
	if a == nil || b == nil {
		return errors.Wrap(ErrDimensionMismatch, "nil operand")
	}
	if a.cols != b.rows {
		return errors.Wrapf(ErrDimensionMismatch, "columns in matrix A (%d) != rows in matrix B (%d)", a.cols, b.rows)
	}
	if dest != nil && (dest.rows != a.rows || dest.cols != b.cols) {
		return errors.Wrapf(ErrDimensionMismatch, "destination is %dx%d, product is %dx%d",
			dest.rows, dest.cols, a.rows, b.cols)
	}
	return nil
}

func mulNoOverflow(x, y int) (int, bool) {
	hi, lo := bits.Mul64(uint64(x), uint64(y))
	if hi != 0 || lo > math.MaxInt {
		return 0, false
	}
	return int(lo), true
}

// makeSlice allocates a zeroed slice, converting a failed allocation into ErrAllocation.
func makeSlice[T any](size int) (slice []T, err error) {
	err = exceptions.TryCatch[error](func() {
		slice = make([]T, size)
	})
	if err != nil {
		return nil, errors.Wrapf(ErrAllocation, "%d elements: %v", size, err)
	}
	return slice, nil
}
