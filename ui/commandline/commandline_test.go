// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package commandline

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHumanizeInt(t *testing.T) {
	assert.Equal(t, "0", HumanizeInt(0))
	assert.Equal(t, "999", HumanizeInt(999))
	assert.Equal(t, "1_000", HumanizeInt(1000))
	assert.Equal(t, "1_234_567", HumanizeInt(int64(1234567)))
	assert.Equal(t, "-123", HumanizeInt(-123))
	assert.Equal(t, "-123_456", HumanizeInt(-123456))
	assert.Equal(t, "42", HumanizeInt(uint8(42)))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "1.23ms", FormatDuration(1234567*time.Nanosecond))
	assert.Equal(t, "2.00s", FormatDuration(2*time.Second))
	assert.Equal(t, "1m30s", FormatDuration(90*time.Second))
	assert.Equal(t, "10 B", FormatBytes(10))
	assert.Equal(t, "4.1 kB", FormatBytes(int64(4096)))
	assert.Equal(t, "-", FormatRate(10, 0, "it"))
	assert.True(t, strings.HasSuffix(FormatRate(3000, time.Second, "it"), "kit/s"))
}

func TestTables(t *testing.T) {
	table := NewTable()
	table.Row("Engine", "go")
	table.Row("Workers", "5")
	out := table.String()
	assert.Contains(t, out, "Engine")
	assert.Contains(t, out, "Workers")

	reds := NewTableWithReds([]string{"Version", "Max diff"}, lipgloss.Left, lipgloss.Right)
	reds.Row(false, "scalar", "0")
	reds.Row(true, "simd", "2")
	assert.Equal(t, 2, reds.Count)
	assert.True(t, reds.Reds[1])
	assert.False(t, reds.Reds[0])
	out = reds.String()
	for _, s := range []string{"Version", "Max diff", "scalar", "simd"} {
		assert.Contains(t, out, s)
	}
}

func TestProgressBar(t *testing.T) {
	var buf bytes.Buffer
	var calls int
	pBar := NewProgressBar(&buf, 10, "rounds", func() (string, string) {
		calls++
		return "Max diff", "0.5"
	})
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pBar.Add(3)
		}()
	}
	wg.Wait()
	// Steps are clipped to the total.
	require.Equal(t, 10, pBar.Steps())
	pBar.Add(1)
	assert.Equal(t, 10, pBar.Steps())
	pBar.Done()
	assert.GreaterOrEqual(t, calls, 1)
	assert.Contains(t, buf.String(), "Max diff")
	assert.Contains(t, buf.String(), "10 of 10")
}
