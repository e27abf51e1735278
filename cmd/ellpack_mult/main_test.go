package main

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gomlx/ellpack/backends"
	"github.com/gomlx/ellpack/pkg/core/ellpack"
	"github.com/gomlx/ellpack/pkg/selftest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/klog/v2"
)

func TestMain(m *testing.M) {
	klog.InitFlags(nil)
	os.Exit(m.Run())
}

func writeFile(t *testing.T, dir, name, contents string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestEngineConfig(t *testing.T) {
	t.Setenv(backends.ConfigEnv, "")
	for _, tc := range []struct {
		backend string
		workers int
		want    string
	}{
		{"", 0, ""},
		{"go", 0, "go"},
		{"", 3, ":workers=3"},
		{"go", 8, "go:workers=8"},
		{"go:", 8, "go:workers=8"},
		{"go:nosimd", 2, "go:nosimd,workers=2"},
	} {
		assert.Equal(t, tc.want, engineConfig(tc.backend, tc.workers), "backend=%q, workers=%d", tc.backend, tc.workers)
	}
	t.Setenv(backends.ConfigEnv, "go:small_factor=1")
	assert.Equal(t, "go:small_factor=1,workers=4", engineConfig("", 4))
}

func TestMultiply(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "2,2,2\n1.0,2.0,3.0,*\n0,1,1,*\n")
	b := writeFile(t, dir, "b.txt", "2,2,1\n1.0,1.0\n0,1\n")
	for _, version := range []string{"0", "1", "2", "adaptive"} {
		output := filepath.Join(dir, "result_"+version+".txt")
		var stdout bytes.Buffer
		err := run([]string{"-a", a, "-b", b, "-o", output, "-V", version, "-B", "3", "-workers", "2"}, &stdout)
		require.NoError(t, err, "version %s", version)
		contents, err := os.ReadFile(output)
		require.NoError(t, err)
		assert.Equal(t, "2,2,2\n1.0,2.0,3.0,*\n0,1,1,*\n", string(contents))
		assert.Contains(t, stdout.String(), "average elapsed time per iteration")
		assert.Contains(t, stdout.String(), "(3 iterations ran)")
	}

	// Long flag names.
	output := filepath.Join(dir, "result.txt")
	var stdout bytes.Buffer
	require.NoError(t, run([]string{"-matrix_a", a, "-matrix_b", b, "-output", output, "-version", "1"}, &stdout))
	assert.Contains(t, stdout.String(), "Version 1 average elapsed time")
	assert.Equal(t, 1, strings.Count(stdout.String(), "iterations ran"))
}

func TestErrors(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "2,2,1\n1.0,1.0\n0,1\n")
	b3 := writeFile(t, dir, "b3.txt", "3,3,1\n1.0,1.0,1.0\n0,1,2\n")
	bad := writeFile(t, dir, "bad.txt", "2,2,3\n1.0,1.0\n0,1\n")
	dup := writeFile(t, dir, "dup.txt", "1,2,2\n1.0,1.0\n1,1\n")
	huge := writeFile(t, dir, "huge.txt", "1,1,1\n300000000000000000000000000000000000000.0\n0\n")
	output := filepath.Join(dir, "out.txt")
	var stdout bytes.Buffer

	err := run([]string{"-help"}, &stdout)
	assert.ErrorIs(t, err, flag.ErrHelp)

	require.Error(t, run([]string{"-a", a, "-b", a}, &stdout))
	require.Error(t, run([]string{"-a", a, "-b", a, "-o", output, "extra"}, &stdout))
	require.Error(t, run([]string{"-a", a, "-b", a, "-o", output, "-B", "0"}, &stdout))
	require.Error(t, run([]string{"-unknown_flag"}, &stdout))
	assert.ErrorIs(t, run([]string{"-a", a, "-b", a, "-o", output, "-V", "7"}, &stdout), backends.ErrUnsupportedVersion)
	assert.ErrorIs(t, run([]string{"-a", a, "-b", b3, "-o", output}, &stdout), ellpack.ErrDimensionMismatch)
	assert.ErrorIs(t, run([]string{"-a", bad, "-b", a, "-o", output}, &stdout), ellpack.ErrInvalidFormat)
	assert.ErrorIs(t, run([]string{"-a", a, "-b", dup, "-o", output}, &stdout), ellpack.ErrDuplicateIndex)
	assert.ErrorIs(t, run([]string{"-a", huge, "-b", huge, "-o", output}, &stdout), ellpack.ErrOverflow)
	assert.Error(t, run([]string{"-a", filepath.Join(dir, "missing.txt"), "-b", a, "-o", output}, &stdout))
	assert.Error(t, run([]string{"-backend", "missing_engine", "-a", a, "-b", a, "-o", output}, &stdout))

	// No output is written on failure.
	_, err = os.Stat(output)
	assert.True(t, os.IsNotExist(err))
}

func TestSelfTest(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	var stdout bytes.Buffer
	require.NoError(t, run([]string{"-t", "-report_dir", dir, "-workers", "3"}, &stdout))
	for v := range backends.NumVersions {
		_, err := os.Stat(filepath.Join(dir, selftest.ReportFileName(v)))
		assert.NoError(t, err, "report of version %s", v)
	}
	assert.Contains(t, stdout.String(), "Reports written to")
	assert.NotContains(t, stdout.String(), "FAILED")
}
