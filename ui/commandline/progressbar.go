// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package commandline holds the terminal display helpers of the ellpack command: a progress bar for
// benchmark iterations and self-test rounds, and lipgloss tables for the summaries.
package commandline

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/muesli/termenv"
	"github.com/schollz/progressbar/v3"
)

// ExtraMetricFn is any function that will give extra values to display along the progress bar.
// It is called at each update of the progress bar, and it should return a name and the current value.
type ExtraMetricFn func() (name, value string)

// ProgressbarStyle to use. Defaults to the ASCII version.
// Consider "progressbar.ThemeUnicode" for a prettier version.
// But it requires some of the graphical symbols to be supported.
var ProgressbarStyle = progressbar.ThemeASCII

// maxUpdateFrequency is the minimum time between redraws of the metrics table.
const maxUpdateFrequency = time.Millisecond * 200

// ProgressBar displays the progression of a fixed number of steps (benchmark iterations or self-test rounds),
// with an optional table of metrics redrawn above it.
//
// It is safe to call Add from multiple goroutines.
type ProgressBar struct {
	mu       sync.Mutex
	bar      *progressbar.ProgressBar
	out      io.Writer
	termenv  *termenv.Output
	numSteps int
	done     int

	extraMetricFns []ExtraMetricFn
	lastDraw       time.Time
	drawnLines     int
}

// NewProgressBar creates a progress bar for numSteps, writing to out (usually os.Stdout).
// The unit is displayed as the rate, e.g.: "iterations" or "rounds".
func NewProgressBar(out io.Writer, numSteps int, unit string, extraMetrics ...ExtraMetricFn) *ProgressBar {
	pBar := &ProgressBar{
		out:            out,
		numSteps:       numSteps,
		extraMetricFns: extraMetrics,
	}
	if f, ok := out.(*os.File); ok {
		pBar.termenv = termenv.NewOutput(f)
	}
	pBar.bar = progressbar.NewOptions(numSteps,
		progressbar.OptionSetDescription("      [bold]"),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString(unit),
		progressbar.OptionSetTheme(ProgressbarStyle),
		progressbar.OptionSetWriter(out),
	)
	return pBar
}

// Add reports amount more steps finished.
func (pBar *ProgressBar) Add(amount int) {
	pBar.mu.Lock()
	defer pBar.mu.Unlock()
	if amount <= 0 || pBar.done >= pBar.numSteps {
		return
	}
	amount = min(amount, pBar.numSteps-pBar.done)
	pBar.done += amount
	if len(pBar.extraMetricFns) > 0 && (pBar.done == pBar.numSteps || time.Since(pBar.lastDraw) >= maxUpdateFrequency) {
		pBar.lockedDrawMetrics()
	}
	_ = pBar.bar.Add(amount)
}

// Steps returns the number of steps reported so far.
func (pBar *ProgressBar) Steps() int {
	pBar.mu.Lock()
	defer pBar.mu.Unlock()
	return pBar.done
}

// lockedDrawMetrics redraws the metrics table above the progress bar line.
func (pBar *ProgressBar) lockedDrawMetrics() {
	table := NewTable()
	table.Row("Steps", fmt.Sprintf("%s of %s", HumanizeInt(pBar.done), HumanizeInt(pBar.numSteps)))
	for _, extraMetric := range pBar.extraMetricFns {
		name, value := extraMetric()
		table.Row(name, value)
	}
	rendered := statsStyle.Render(table.String())

	if pBar.termenv != nil {
		pBar.termenv.HideCursor()
		defer pBar.termenv.ShowCursor()
		if pBar.drawnLines > 0 {
			pBar.termenv.CursorPrevLine(pBar.drawnLines)
		}
	}
	// Erase the progress bar line before printing over it.
	_, _ = fmt.Fprint(pBar.out, "\r\033[J")
	_, _ = fmt.Fprintln(pBar.out, rendered)
	pBar.drawnLines = countLines(rendered)
	pBar.lastDraw = time.Now()
}

// Done finishes the progress bar and leaves the cursor on a new line.
func (pBar *ProgressBar) Done() {
	pBar.mu.Lock()
	defer pBar.mu.Unlock()
	if pBar.done < pBar.numSteps {
		_ = pBar.bar.Finish()
	}
	if pBar.termenv != nil {
		pBar.termenv.ShowCursor()
	}
	_, _ = fmt.Fprintln(pBar.out)
}

func countLines(s string) int {
	n := 1
	for _, r := range s {
		if r == '\n' {
			n++
		}
	}
	return n
}
