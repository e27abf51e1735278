// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package wire

import (
	"bufio"
	"io"
	"strconv"

	"github.com/gomlx/ellpack/pkg/core/ellpack"
	"github.com/gomlx/ellpack/pkg/support/fsutil"
	"github.com/gomlx/ellpack/pkg/support/xslices"
	"github.com/pkg/errors"
)

// tokenWriter writes comma-separated tokens, keeping the first write error.
type tokenWriter struct {
	w       *bufio.Writer
	scratch []byte
	count   int
	err     error
}

func newTokenWriter(w io.Writer) *tokenWriter {
	return &tokenWriter{w: bufio.NewWriter(w), scratch: make([]byte, 0, 32)}
}

func (tw *tokenWriter) write(token []byte) {
	if tw.err != nil {
		return
	}
	if tw.count > 0 {
		tw.err = tw.w.WriteByte(',')
	}
	if tw.err == nil {
		_, tw.err = tw.w.Write(token)
	}
	tw.count++
}

func (tw *tokenWriter) value(v float32) {
	tw.scratch = strconv.AppendFloat(tw.scratch[:0], float64(v), 'f', 1, 32)
	tw.write(tw.scratch)
}

func (tw *tokenWriter) index(idx int) {
	tw.scratch = strconv.AppendInt(tw.scratch[:0], int64(idx), 10)
	tw.write(tw.scratch)
}

func (tw *tokenWriter) padding() { tw.write([]byte(Padding)) }

// endLine terminates the current line and resets the token count.
func (tw *tokenWriter) endLine() {
	if tw.err == nil {
		tw.err = tw.w.WriteByte('\n')
	}
	tw.count = 0
}

func (tw *tokenWriter) header(rows, cols, width int) {
	tw.index(rows)
	tw.index(cols)
	tw.index(width)
	tw.endLine()
}

func (tw *tokenWriter) flush() error {
	if tw.err == nil {
		tw.err = tw.w.Flush()
	}
	return errors.Wrap(tw.err, "writing ELLPACK text")
}

// EncodeMatrix writes m in the wire format. Positions after each row's sentinel are written as
// padding, so Decode of the output returns an equivalent matrix, given values with at most one
// fractional digit.
func EncodeMatrix(w io.Writer, m *ellpack.Matrix) error {
	tw := newTokenWriter(w)
	tw.header(m.Rows(), m.Cols(), m.Width())
	for row := range m.Rows() {
		values, _ := m.Row(row)
		liveLen := m.LiveLen(row)
		for pos := range values {
			if pos < liveLen {
				tw.value(values[pos])
			} else {
				tw.padding()
			}
		}
	}
	tw.endLine()
	for row := range m.Rows() {
		_, indices := m.Row(row)
		liveLen := m.LiveLen(row)
		for pos := range indices {
			if pos < liveLen {
				tw.index(int(indices[pos]))
			} else {
				tw.padding()
			}
		}
	}
	tw.endLine()
	return tw.flush()
}

// ResultWidth returns the width of the ELLPACK encoding of d: the largest number of non-zero
// elements in any of its rows.
func ResultWidth(d *ellpack.Dense) int {
	counts := make([]int, d.Rows())
	for row := range d.Rows() {
		counts[row] = xslices.CountFunc(d.Row(row), func(v float32) bool { return v != 0 })
	}
	return xslices.Max(counts)
}

// EncodeResult writes the dense result d in the ELLPACK wire format, with width given by ResultWidth.
// Values are printed with one fractional digit, and rows with fewer non-zero elements are padded.
//
// It fails with ellpack.ErrOverflow, before writing anything, if any element of d is not finite.
// A result without any non-zero element is written with width 0 and empty value and index lines.
func EncodeResult(w io.Writer, d *ellpack.Dense) error {
	if ok, pos := xslices.AllFinite(d.Flat()); !ok {
		row, col := pos/d.Cols(), pos%d.Cols()
		return errors.Wrapf(ellpack.ErrOverflow, "element (%d, %d) is %g", row, col, d.At(row, col))
	}
	width := ResultWidth(d)
	tw := newTokenWriter(w)
	tw.header(d.Rows(), d.Cols(), width)
	for row := range d.Rows() {
		written := 0
		for _, v := range d.Row(row) {
			if v != 0 {
				tw.value(v)
				written++
			}
		}
		for ; written < width; written++ {
			tw.padding()
		}
	}
	tw.endLine()
	for row := range d.Rows() {
		written := 0
		for col, v := range d.Row(row) {
			if v != 0 {
				tw.index(col)
				written++
			}
		}
		for ; written < width; written++ {
			tw.padding()
		}
	}
	tw.endLine()
	return tw.flush()
}

// WriteResultFile writes d with EncodeResult to path. On error, the file at path is left untouched.
func WriteResultFile(path string, d *ellpack.Dense) error {
	err := fsutil.WriteFile(path, func(w io.Writer) error {
		return EncodeResult(w, d)
	})
	return errors.WithMessagef(err, "writing result to %q", path)
}
