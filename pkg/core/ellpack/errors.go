// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ellpack

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel errors. Match them with errors.Is: functions wrap them with context
// (dimensions, row, token) before returning.
var (
	// ErrInputFormat is the umbrella for every violation of the ELLPACK encoding:
	// bad header, bad token, wrong token count, out-of-range or duplicate index.
	// A FormatError matches it regardless of its specific Kind.
	ErrInputFormat = errors.New("ellpack: input format error")

	// ErrInvalidFormat is returned for malformed dimensions, tokens or token counts.
	ErrInvalidFormat = errors.New("ellpack: invalid format")

	// ErrInvalidIndex is returned when a column id is >= the number of columns.
	ErrInvalidIndex = errors.New("ellpack: column index out of range")

	// ErrDuplicateIndex is returned when a column id repeats within a row's live entries.
	ErrDuplicateIndex = errors.New("ellpack: duplicate column index")

	// ErrAllocation is returned when a matrix or dense buffer can't be allocated.
	ErrAllocation = errors.New("ellpack: allocation failed")

	// ErrDimensionMismatch is returned when operands of a product don't agree: A.cols != B.rows,
	// or the destination is not rows(A) x cols(B).
	ErrDimensionMismatch = errors.New("ellpack: dimension mismatch")

	// ErrOverflow is returned when a result cell is not finite at serialization time.
	ErrOverflow = errors.New("ellpack: overflow in result")

	// ErrCorruptInput is returned by engines when a matrix escaped validation, e.g. its buffers
	// were modified after construction.
	ErrCorruptInput = errors.New("ellpack: corrupt input")

	// ErrInvalidPartition is returned by Dense.Split for ranges that are empty, overlapping,
	// out of order or that don't cover every row.
	ErrInvalidPartition = errors.New("ellpack: invalid row partition")
)

// FormatError describes where an encoding violation happened.
//
// Line is 1-based and refers to the wire format line (0 when the error comes from in-memory
// construction). Position is the 0-based token/entry position in that line, or -1 if not applicable.
type FormatError struct {
	Line, Position int
	Token          string
	Kind           error
	Msg            string
}

// Error implements error.
func (e *FormatError) Error() string {
	var where string
	switch {
	case e.Line > 0 && e.Position >= 0:
		where = fmt.Sprintf(" (line %d, token #%d %q)", e.Line, e.Position, e.Token)
	case e.Line > 0:
		where = fmt.Sprintf(" (line %d)", e.Line)
	case e.Position >= 0:
		where = fmt.Sprintf(" (entry #%d)", e.Position)
	}
	return fmt.Sprintf("%v: %s%s", e.Kind, e.Msg, where)
}

// Unwrap returns the specific kind of the error.
func (e *FormatError) Unwrap() error { return e.Kind }

// Is makes every FormatError match ErrInputFormat.
func (e *FormatError) Is(target error) bool {
	return target == ErrInputFormat
}

// NewFormatError creates a FormatError of the given kind.
func NewFormatError(kind error, line, position int, token string, format string, args ...any) *FormatError {
	return &FormatError{
		Line:     line,
		Position: position,
		Token:    token,
		Kind:     kind,
		Msg:      fmt.Sprintf(format, args...),
	}
}
