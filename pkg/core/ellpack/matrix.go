// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package ellpack implements the ELLPACK sparse matrix encoding and the dense buffers its products
// are accumulated into.
//
// An ELLPACK matrix stores, for each row, up to `width` (value, column) pairs in two dense
// rows x width grids. The live entries of a row are the prefix before the first stored value of
// exactly 0.0 (the sentinel): everything at or after it is considered not present. As a consequence
// an explicitly stored zero coefficient can't be distinguished from padding.
//
// Matrices are immutable once built: use FromSlices or FromRows, and treat the slices returned by
// the accessors as read-only.
package ellpack

import (
	"fmt"
	"math"
	"strings"
	"unsafe"

	"github.com/pkg/errors"
)

// MaxCols is the largest number of columns representable: column ids are stored as uint32.
const MaxCols = math.MaxUint32 + 1

// Matrix is a sparse matrix in ELLPACK encoding.
//
// values and indices are flat row-major buffers of rows*width elements. Positions at or after a
// row's sentinel always hold (0, 0): see FromSlices.
type Matrix struct {
	rows, cols, width int
	values            []float32
	indices           []uint32
}

// Entry is one (column, value) pair of a row, used by FromRows.
type Entry struct {
	Col   uint32
	Value float32
}

// FromSlices validates and builds a Matrix from flat row-major values and indices, each of length
// rows*width. The inputs are copied: the caller keeps ownership of them.
//
// Positions after a row's sentinel may hold any data: they are normalized to (0, 0) in the returned matrix.
// Errors are *FormatError of kind ErrInvalidFormat, ErrInvalidIndex or ErrDuplicateIndex, or ErrAllocation.
func FromSlices(rows, cols, width int, values []float32, indices []uint32) (*Matrix, error) {
	if err := checkShape(rows, cols, width); err != nil {
		return nil, err
	}
	size := rows * width
	if len(values) != size || len(indices) != size {
		return nil, NewFormatError(ErrInvalidFormat, 0, -1, "",
			"expected %d values and indices for a %dx%d matrix of width %d, got %d values and %d indices",
			size, rows, cols, width, len(values), len(indices))
	}
	m, err := allocate(rows, cols, width)
	if err != nil {
		return nil, err
	}
	copy(m.values, values)
	copy(m.indices, indices)
	if err = m.canonicalize(); err != nil {
		return nil, err
	}
	return m, nil
}

// FromRows builds a Matrix from per-row entries. Rows shorter than width are padded, and the number
// of rows is len(rowEntries). An entry with Value 0 terminates its row, like in any ELLPACK matrix.
func FromRows(cols, width int, rowEntries [][]Entry) (*Matrix, error) {
	rows := len(rowEntries)
	if err := checkShape(rows, cols, width); err != nil {
		return nil, err
	}
	m, err := allocate(rows, cols, width)
	if err != nil {
		return nil, err
	}
	for row, entries := range rowEntries {
		if len(entries) > width {
			return nil, NewFormatError(ErrInvalidFormat, 0, row*width, "",
				"row %d has %d entries, more than the width %d", row, len(entries), width)
		}
		base := row * width
		for ii, entry := range entries {
			m.values[base+ii] = entry.Value
			m.indices[base+ii] = entry.Col
		}
	}
	if err = m.canonicalize(); err != nil {
		return nil, err
	}
	return m, nil
}

func checkShape(rows, cols, width int) error {
	if rows <= 0 || cols <= 0 || width <= 0 {
		return NewFormatError(ErrInvalidFormat, 0, -1, "",
			"dimensions must be positive, got rows=%d, cols=%d, width=%d", rows, cols, width)
	}
	if width > cols {
		return NewFormatError(ErrInvalidFormat, 0, -1, "",
			"width (%d) must be <= cols (%d)", width, cols)
	}
	if uint64(cols) > MaxCols {
		return NewFormatError(ErrInvalidFormat, 0, -1, "",
			"cols (%d) larger than the maximum supported %d", cols, uint64(MaxCols))
	}
	return nil
}

// allocate a zero matrix of the given shape, assumed valid.
func allocate(rows, cols, width int) (*Matrix, error) {
	size, ok := mulNoOverflow(rows, width)
	if !ok {
		return nil, errors.Wrapf(ErrAllocation, "%d rows x width %d overflows", rows, width)
	}
	values, err := makeSlice[float32](size)
	if err != nil {
		return nil, errors.WithMessagef(err, "matrix values of %dx%d", rows, width)
	}
	indices, err := makeSlice[uint32](size)
	if err != nil {
		return nil, errors.WithMessagef(err, "matrix indices of %dx%d", rows, width)
	}
	return &Matrix{rows: rows, cols: cols, width: width, values: values, indices: indices}, nil
}

// canonicalize validates every row and zeroes what comes after its sentinel.
func (m *Matrix) canonicalize() error {
	// seen maps a column to the last row that referenced it.
	seen := make(map[uint32]int, m.width)
	for row := range m.rows {
		base := row * m.width
		live := true
		for pos := range m.width {
			idx := base + pos
			if !live {
				m.values[idx], m.indices[idx] = 0, 0
				continue
			}
			value := m.values[idx]
			if math.IsNaN(float64(value)) || math.IsInf(float64(value), 0) {
				return NewFormatError(ErrInvalidFormat, 0, idx, "", "row %d has a non-finite value %g", row, value)
			}
			if value == 0 {
				live = false
				m.indices[idx] = 0
				continue
			}
			col := m.indices[idx]
			if int(col) >= m.cols {
				return NewFormatError(ErrInvalidIndex, 0, idx, "",
					"row %d references column %d, matrix has %d columns", row, col, m.cols)
			}
			if seenRow, found := seen[col]; found && seenRow == row {
				return NewFormatError(ErrDuplicateIndex, 0, idx, "",
					"row %d references column %d more than once", row, col)
			}
			seen[col] = row
		}
	}
	return nil
}

// Rows returns the number of rows.
func (m *Matrix) Rows() int { return m.rows }

// Cols returns the number of columns.
func (m *Matrix) Cols() int { return m.cols }

// Width returns the per-row capacity of the encoding.
func (m *Matrix) Width() int { return m.width }

// Row returns the stored values and column ids of the given row, both of length Width().
// The slices are views into the matrix and must not be modified.
func (m *Matrix) Row(row int) (values []float32, indices []uint32) {
	base := row * m.width
	end := base + m.width
	return m.values[base:end:end], m.indices[base:end:end]
}

// LiveLen returns the number of live entries of the row, that is, the position of its sentinel
// or Width() if it has none.
func (m *Matrix) LiveLen(row int) int {
	values, _ := m.Row(row)
	for ii, value := range values {
		if value == 0 {
			return ii
		}
	}
	return m.width
}

// NumLive returns the total number of live entries in the matrix.
func (m *Matrix) NumLive() int {
	var count int
	for row := range m.rows {
		count += m.LiveLen(row)
	}
	return count
}

// At returns the value at (row, col) of the equivalent dense matrix, 0 if not present.
// It costs O(Width()).
func (m *Matrix) At(row, col int) float32 {
	values, indices := m.Row(row)
	for ii, value := range values {
		if value == 0 {
			break
		}
		if int(indices[ii]) == col {
			return value
		}
	}
	return 0
}

// Memory returns the number of bytes used by the values and indices buffers.
func (m *Matrix) Memory() uintptr {
	return uintptr(len(m.values))*unsafe.Sizeof(float32(0)) + uintptr(len(m.indices))*unsafe.Sizeof(uint32(0))
}

// Densify returns the equivalent rows x cols dense matrix.
func (m *Matrix) Densify() (*Dense, error) {
	dense, err := NewDense(m.rows, m.cols)
	if err != nil {
		return nil, err
	}
	for row := range m.rows {
		values, indices := m.Row(row)
		denseRow := dense.Row(row)
		for ii, value := range values {
			if value == 0 {
				break
			}
			denseRow[indices[ii]] = value
		}
	}
	return dense, nil
}

// String returns a short description of the matrix, and its live entries if it is small.
func (m *Matrix) String() string {
	var sb strings.Builder
	_, _ = fmt.Fprintf(&sb, "ELLPACK(%dx%d, width=%d, live=%d)", m.rows, m.cols, m.width, m.NumLive())
	if m.rows*m.width > 64 {
		return sb.String()
	}
	for row := range m.rows {
		values, indices := m.Row(row)
		sb.WriteString("\n\t[")
		for ii, value := range values {
			if value == 0 {
				break
			}
			if ii > 0 {
				sb.WriteString(", ")
			}
			_, _ = fmt.Fprintf(&sb, "%d:%g", indices[ii], value)
		}
		sb.WriteString("]")
	}
	return sb.String()
}
