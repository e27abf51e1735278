// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package wire reads and writes ELLPACK matrices and dense results in their three line text format:
//
//	rows,cols,width
//	v_0,v_1,...,v_{rows*width-1}
//	i_0,i_1,...,i_{rows*width-1}
//
// Values are decimals with exactly one fractional digit (e.g. "-3.5") and indices are decimal
// column ids. The literal "*" marks a padding position in both lines: it reads as 0.
package wire

import (
	"bufio"
	"io"
	"math"
	"math/bits"
	"regexp"
	"strconv"
	"strings"

	"github.com/gomlx/ellpack/pkg/core/ellpack"
	"github.com/gomlx/ellpack/pkg/support/fsutil"
	"github.com/pkg/errors"
)

// Padding is the token used for non-present positions.
const Padding = "*"

const (
	headerLine = iota + 1
	valuesLine
	indicesLine
)

var valueTokenRegexp = regexp.MustCompile(`^-?[0-9]+\.[0-9]$`)

// Decode reads one matrix from r.
//
// Any violation of the format returns an *ellpack.FormatError (matching ellpack.ErrInputFormat and
// one of ellpack.ErrInvalidFormat, ellpack.ErrInvalidIndex or ellpack.ErrDuplicateIndex), and no
// matrix. The matrix buffers are only allocated after the header and both token counts validated.
func Decode(r io.Reader) (*ellpack.Matrix, error) {
	reader := bufio.NewReader(r)
	lines := make([]string, 0, 3)
	for lineNum := headerLine; lineNum <= indicesLine; lineNum++ {
		line, err := readLine(reader)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, ellpack.NewFormatError(ellpack.ErrInvalidFormat, lineNum, -1, "",
					"missing line, expected 3 lines")
			}
			return nil, errors.Wrapf(err, "failed to read line %d", lineNum)
		}
		lines = append(lines, line)
	}

	rows, cols, width, err := parseHeader(lines[0])
	if err != nil {
		return nil, err
	}
	size, err := tokenCount(rows, width)
	if err != nil {
		return nil, err
	}
	valueTokens := strings.Split(lines[1], ",")
	if len(valueTokens) != size {
		return nil, ellpack.NewFormatError(ellpack.ErrInvalidFormat, valuesLine, -1, "",
			"expected %d values (rows=%d x width=%d), got %d tokens", size, rows, width, len(valueTokens))
	}
	indexTokens := strings.Split(lines[2], ",")
	if len(indexTokens) != size {
		return nil, ellpack.NewFormatError(ellpack.ErrInvalidFormat, indicesLine, -1, "",
			"expected %d indices (rows=%d x width=%d), got %d tokens", size, rows, width, len(indexTokens))
	}

	values := make([]float32, size)
	for pos, token := range valueTokens {
		values[pos], err = parseValue(token, pos)
		if err != nil {
			return nil, err
		}
	}

	indices := make([]uint32, size)
	// seen maps a column to the last row whose live prefix referenced it.
	seen := make(map[uint32]int, width)
	for row := range rows {
		live := true
		for col := range width {
			pos := row*width + col
			token := strings.TrimSpace(indexTokens[pos])
			if values[pos] == 0 {
				live = false
			}
			if token == Padding {
				continue
			}
			idx, err := strconv.ParseUint(token, 10, 64)
			if err != nil {
				return nil, ellpack.NewFormatError(ellpack.ErrInvalidFormat, indicesLine, pos, token,
					"index is not a non-negative integer")
			}
			if idx >= uint64(cols) {
				return nil, ellpack.NewFormatError(ellpack.ErrInvalidIndex, indicesLine, pos, token,
					"index must be < cols=%d", cols)
			}
			indices[pos] = uint32(idx)
			if !live {
				continue
			}
			if seenRow, found := seen[uint32(idx)]; found && seenRow == row {
				return nil, ellpack.NewFormatError(ellpack.ErrDuplicateIndex, indicesLine, pos, token,
					"column %d repeats in row %d", idx, row)
			}
			seen[uint32(idx)] = row
		}
	}

	m, err := ellpack.FromSlices(rows, cols, width, values, indices)
	if err != nil {
		return nil, errors.WithMessage(err, "decoding matrix")
	}
	return m, nil
}

// LoadFile reads a matrix from the file at path. A leading "~" in path is expanded.
func LoadFile(path string) (*ellpack.Matrix, error) {
	f, err := fsutil.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	m, err := Decode(f)
	if err != nil {
		return nil, errors.WithMessagef(err, "loading %q", path)
	}
	return m, nil
}

// readLine returns the next line without its terminating "\n" or "\r\n".
// The last line of the input doesn't need a terminator.
func readLine(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || len(line) == 0) {
		return "", err
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}

func parseHeader(line string) (rows, cols, width int, err error) {
	tokens := strings.Split(line, ",")
	if len(tokens) != 3 {
		err = ellpack.NewFormatError(ellpack.ErrInvalidFormat, headerLine, -1, "",
			"expected 3 comma-separated dimensions (rows,cols,width), got %d tokens", len(tokens))
		return
	}
	var dims [3]int
	for pos, token := range tokens {
		token = strings.TrimSpace(token)
		dim, parseErr := strconv.ParseUint(token, 10, 63)
		if parseErr != nil {
			err = ellpack.NewFormatError(ellpack.ErrInvalidFormat, headerLine, pos, token,
				"dimension is not a non-negative integer")
			return
		}
		if dim == 0 {
			err = ellpack.NewFormatError(ellpack.ErrInvalidFormat, headerLine, pos, token,
				"dimensions can't be zero")
			return
		}
		dims[pos] = int(dim)
	}
	rows, cols, width = dims[0], dims[1], dims[2]
	if width > cols {
		err = ellpack.NewFormatError(ellpack.ErrInvalidFormat, headerLine, 2, tokens[2],
			"width must be <= cols=%d", cols)
		return
	}
	if uint64(cols) > ellpack.MaxCols {
		err = ellpack.NewFormatError(ellpack.ErrInvalidFormat, headerLine, 1, tokens[1],
			"cols larger than the maximum supported %d", uint64(ellpack.MaxCols))
	}
	return
}

// tokenCount returns rows*width, or an error if it isn't addressable.
func tokenCount(rows, width int) (int, error) {
	hi, lo := bits.Mul64(uint64(rows), uint64(width))
	if hi != 0 || lo > math.MaxInt {
		return 0, ellpack.NewFormatError(ellpack.ErrInvalidFormat, headerLine, -1, "",
			"rows=%d x width=%d is too large", rows, width)
	}
	return int(lo), nil
}

func parseValue(token string, pos int) (float32, error) {
	token = strings.TrimSpace(token)
	if token == Padding {
		return 0, nil
	}
	if !valueTokenRegexp.MatchString(token) {
		return 0, ellpack.NewFormatError(ellpack.ErrInvalidFormat, valuesLine, pos, token,
			"value must be %q or a decimal with one fractional digit", Padding)
	}
	value, err := strconv.ParseFloat(token, 32)
	if err != nil || math.IsInf(value, 0) || math.IsNaN(value) {
		return 0, ellpack.NewFormatError(ellpack.ErrInvalidFormat, valuesLine, pos, token,
			"value doesn't fit a finite float32")
	}
	return float32(value), nil
}
