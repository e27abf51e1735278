/*
 *	Copyright 2023 Jan Pfeifer
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

// Package xslices provide numeric slice helpers missing from the slices package.
package xslices

import (
	"cmp"
	"math"

	"golang.org/x/exp/constraints"
)

// MaxAbsDiff returns the largest absolute difference between s0[i] and s1[i], computed in float64.
// Only the common prefix of the slices is compared. A NaN on either side yields NaN.
func MaxAbsDiff[T0, T1 constraints.Float](s0 []T0, s1 []T1) float64 {
	var maxDiff float64
	for ii := range min(len(s0), len(s1)) {
		diff := math.Abs(float64(s0[ii]) - float64(s1[ii]))
		if math.IsNaN(diff) {
			return diff
		}
		maxDiff = max(maxDiff, diff)
	}
	return maxDiff
}

// InDelta returns whether s0 and s1 have the same length and each of their values are within
// the given delta.
//
// If delta <= 0, it checks for equality.
func InDelta[T0, T1 constraints.Float](s0 []T0, s1 []T1, delta float64) bool {
	if len(s0) != len(s1) {
		return false
	}
	for ii, v0 := range s0 {
		v1 := float64(s1[ii])
		if float64(v0) == v1 {
			continue
		}
		if delta <= 0 || !(math.Abs(float64(v0)-v1) <= delta) {
			return false
		}
	}
	return true
}

// CountFunc returns the number of elements of the slice for which fn returns true.
func CountFunc[T any](slice []T, fn func(e T) bool) (count int) {
	for _, e := range slice {
		if fn(e) {
			count++
		}
	}
	return
}

// Max scans the slice and returns the maximum value.
func Max[T cmp.Ordered](slice []T) (max T) {
	if len(slice) == 0 {
		return
	}
	max = slice[0]
	for _, v := range slice {
		if max < v {
			max = v
		}
	}
	return
}

// AllFinite returns whether no element is NaN or ±Inf. If not, it also returns the position of
// the first offending element.
func AllFinite[T constraints.Float](slice []T) (ok bool, position int) {
	for ii, v := range slice {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return false, ii
		}
	}
	return true, -1
}
