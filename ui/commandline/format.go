// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package commandline

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
)

var durationRegexp = regexp.MustCompile(`^(\d+\.?\d*)([µa-z]+)$`)

// FormatDuration pretty prints a duration with at most 2 decimal places.
// Durations of a minute or more are printed as time.Duration does.
func FormatDuration(d time.Duration) string {
	s := d.String()
	matches := durationRegexp.FindStringSubmatch(s)
	if len(matches) != 3 {
		return s
	}
	num, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return s
	}
	return fmt.Sprintf("%.2f%s", num, matches[2])
}

// FormatRate formats count events over elapsed as a rate per second, using SI prefixes, e.g.: "1.5 k" + unit + "/s".
func FormatRate(count int, elapsed time.Duration, unit string) string {
	if elapsed <= 0 {
		return "-"
	}
	return humanize.SIWithDigits(float64(count)/elapsed.Seconds(), 2, unit) + "/s"
}

// FormatBytes formats a memory size, e.g.: "4.1 kB".
func FormatBytes[I interface{ ~int | ~int64 | ~uintptr }](n I) string {
	if n < 0 {
		return "-" + humanize.Bytes(uint64(-n))
	}
	return humanize.Bytes(uint64(n))
}

// HumanizeInt formats an integer with "_" separating the thousands.
func HumanizeInt[I interface {
	uint64 | uint32 | uint16 | uint8 | int64 | int32 | int16 | int8 | int
}](nI I) string {
	n := int(nI)
	str := strconv.Itoa(n)
	result := make([]byte, 0, len(str)+len(str)/3)
	strLen := len(str)
	for i := strLen - 1; i >= 0; i-- {
		if (strLen-i-1)%3 == 0 && i < strLen-1 && str[i] != '-' {
			result = append([]byte{'_'}, result...)
		}
		result = append([]byte{str[i]}, result...)
	}
	return string(result)
}
