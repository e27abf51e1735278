// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ellpack

import (
	"math/rand/v2"
)

// Range of the values generated by Random and RandomRagged.
const (
	RandomMinValue = -100.0
	RandomMaxValue = 100.0
)

// Random generates a rows x cols matrix of the given width, with every row filled: values are
// uniform in [RandomMinValue, RandomMaxValue] and each row uses distinct random columns.
//
// A generated value of exactly 0 ends its row early, as it would in any ELLPACK matrix.
func Random(rng *rand.Rand, rows, cols, width int) (*Matrix, error) {
	return generate(rng, rows, cols, width, func(int) int { return width })
}

// RandomRagged is like Random, but each row gets a random number of live entries in [0, width],
// so most rows end with a sentinel.
func RandomRagged(rng *rand.Rand, rows, cols, width int) (*Matrix, error) {
	return generate(rng, rows, cols, width, func(int) int { return rng.IntN(width + 1) })
}

func generate(rng *rand.Rand, rows, cols, width int, liveLenFn func(row int) int) (*Matrix, error) {
	if err := checkShape(rows, cols, width); err != nil {
		return nil, err
	}
	m, err := allocate(rows, cols, width)
	if err != nil {
		return nil, err
	}
	for row := range rows {
		values, indices := m.values[row*width:(row+1)*width], m.indices[row*width:(row+1)*width]
		// A partial Fisher-Yates over the permutation picks distinct columns in O(width) per row,
		// with a map holding only the swapped positions.
		swapped := make(map[int]int, width)
		liveLen := liveLenFn(row)
		for pos := range liveLen {
			value := RandomMinValue + rng.Float32()*(RandomMaxValue-RandomMinValue)
			if value == 0 {
				break
			}
			pick := pos + rng.IntN(cols-pos)
			col, found := swapped[pick]
			if !found {
				col = pick
			}
			atPos, found := swapped[pos]
			if !found {
				atPos = pos
			}
			swapped[pick] = atPos
			values[pos] = value
			indices[pos] = uint32(col)
		}
	}
	return m, nil
}
