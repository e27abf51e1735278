// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package selftest

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gomlx/ellpack/backends"
	"github.com/gomlx/ellpack/backends/simplego"
	"github.com/gomlx/ellpack/pkg/core/ellpack"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/klog/v2"
)

func init() {
	klog.InitFlags(nil)
}

// offByTwoEngine adds 2 to the first element of every product.
type offByTwoEngine struct {
	backends.Engine
}

func (e offByTwoEngine) Dispatch(version backends.Version, a, b *ellpack.Matrix, dest *ellpack.Dense) error {
	if err := e.Engine.Dispatch(version, a, b, dest); err != nil {
		return err
	}
	dest.Row(0)[0] += 2
	return nil
}

func TestRun(t *testing.T) {
	engine := must.M1(simplego.New("workers=2,small_factor=1"))
	var report bytes.Buffer
	var rounds int
	results, err := Run(engine, Options{
		Seed:    42,
		Report:  &report,
		OnRound: func(RoundResult) { rounds++ },
	})
	require.NoError(t, err)
	require.Len(t, results, 3*int(backends.NumVersions))
	assert.Equal(t, len(results), rounds)
	for _, result := range results {
		assert.True(t, result.Passed)
		assert.LessOrEqual(t, result.MaxDiff, ellpack.DefaultTolerance)
	}
	assert.Equal(t, backends.VersionAdaptive, results[len(results)-1].Version)
	text := report.String()
	assert.Equal(t, 3*int(backends.NumVersions), strings.Count(text, "multiplication successful"))
	assert.Contains(t, text, "matrix_a")
	assert.Contains(t, text, "20,20,10\n")
	assert.Contains(t, text, "Average time of ellpack-mul")
}

func TestRunReportDir(t *testing.T) {
	engine := must.M1(simplego.New(""))
	dir := filepath.Join(t.TempDir(), "reports")
	results, err := Run(engine, Options{
		Versions:  []backends.Version{backends.VersionScalar, backends.VersionAdaptive},
		Rounds:    2,
		Rows:      30,
		Cols:      12,
		Width:     4,
		ReportDir: dir,
	})
	require.NoError(t, err)
	require.Len(t, results, 4)
	for _, version := range []backends.Version{backends.VersionScalar, backends.VersionAdaptive} {
		contents, err := os.ReadFile(filepath.Join(dir, ReportFileName(version)))
		require.NoError(t, err)
		assert.Equal(t, 2, strings.Count(string(contents), "round: "))
	}
	_, err = os.Stat(filepath.Join(dir, "test_v1.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunFailures(t *testing.T) {
	engine := offByTwoEngine{Engine: must.M1(simplego.New(""))}
	var report bytes.Buffer
	results, err := Run(engine, Options{Versions: []backends.Version{backends.VersionSIMD}, Rounds: 2, Report: &report})
	require.ErrorIs(t, err, ErrSelfTestFailed)
	require.Len(t, results, 2)
	for _, result := range results {
		assert.False(t, result.Passed)
		assert.InDelta(t, 2.0, result.MaxDiff, 0.1)
	}
	assert.Contains(t, report.String(), "multiplication failed")

	_, err = Run(engine, Options{Versions: []backends.Version{7}})
	require.ErrorIs(t, err, backends.ErrUnsupportedVersion)
}
