// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package selftest verifies an engine against the dense reference product on random matrices, and writes
// a human-readable report of each round.
package selftest

import (
	"fmt"
	"io"
	"math/rand/v2"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/ellpack/backends"
	"github.com/gomlx/ellpack/pkg/core/ellpack"
	"github.com/gomlx/ellpack/pkg/core/ellpack/wire"
	"github.com/gomlx/ellpack/pkg/support/fsutil"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ErrSelfTestFailed is returned by Run if any round deviates from the reference by more than the tolerance.
var ErrSelfTestFailed = errors.New("ellpack: self-test failed")

// Defaults used for the zero values of Options.
const (
	DefaultRounds = 3
	DefaultRows   = 20
	DefaultCols   = 20
	DefaultWidth  = 10
)

// Options configure Run. Zero values take the defaults.
type Options struct {
	// Versions to test. Defaults to all versions.
	Versions []backends.Version

	// Rounds per version. Defaults to DefaultRounds.
	Rounds int

	// Rows, Cols, Width of the operands: the lhs is Rows x Cols and the rhs is Cols x Cols, both with the given
	// Width. Default to DefaultRows, DefaultCols and DefaultWidth.
	Rows, Cols, Width int

	// Seed of the random generator. If 0 a random seed is used.
	Seed uint64

	// Tolerance is the maximum absolute deviation from the reference. Defaults to ellpack.DefaultTolerance.
	Tolerance float64

	// Report, if not nil, receives the report of every version.
	Report io.Writer

	// ReportDir, if not empty, gets one report file per version, named by ReportFileName.
	ReportDir string

	// OnRound, if not nil, is called after every round.
	OnRound func(RoundResult)
}

// RoundResult is the outcome of one round.
type RoundResult struct {
	Version backends.Version
	Round   int

	// MaxDiff is the maximum absolute deviation from the reference product.
	MaxDiff float64
	Passed  bool

	EngineTime, ReferenceTime time.Duration
}

// ReportFileName returns the name of the report file of the given version.
func ReportFileName(version backends.Version) string {
	return fmt.Sprintf("test_v%d.txt", int(version))
}

func (opts *Options) setDefaults() {
	if len(opts.Versions) == 0 {
		for v := range backends.NumVersions {
			opts.Versions = append(opts.Versions, v)
		}
	}
	if opts.Rounds <= 0 {
		opts.Rounds = DefaultRounds
	}
	if opts.Rows <= 0 {
		opts.Rows = DefaultRows
	}
	if opts.Cols <= 0 {
		opts.Cols = DefaultCols
	}
	if opts.Width <= 0 {
		opts.Width = min(DefaultWidth, opts.Cols)
	}
	if opts.Seed == 0 {
		opts.Seed = rand.Uint64()
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = ellpack.DefaultTolerance
	}
}

// Run tests engine with every version in opts, opts.Rounds times each.
//
// It returns the result of every round. If any of them deviates from the reference more than the tolerance,
// it also returns an error wrapping ErrSelfTestFailed; other errors (invalid options, engine failures,
// report writing) interrupt the run.
func Run(engine backends.Engine, opts Options) ([]RoundResult, error) {
	opts.setDefaults()
	for _, version := range opts.Versions {
		if err := version.Check(); err != nil {
			return nil, err
		}
	}
	runID := uuid.New()
	klog.V(1).Infof("selftest: run %s, engine %s, seed %d, versions %v", runID, engine.Name(), opts.Seed, opts.Versions)
	var reportDir string
	if opts.ReportDir != "" {
		var err error
		reportDir, err = fsutil.EnsureDir(opts.ReportDir)
		if err != nil {
			return nil, err
		}
	}

	var results []RoundResult
	for _, version := range opts.Versions {
		r := &runner{engine: engine, opts: &opts, runID: runID, version: version}
		var err error
		switch {
		case reportDir != "":
			err = fsutil.WriteFile(filepath.Join(reportDir, ReportFileName(version)), func(w io.Writer) error {
				if opts.Report != nil {
					w = io.MultiWriter(w, opts.Report)
				}
				return r.run(w)
			})
		case opts.Report != nil:
			err = r.run(opts.Report)
		default:
			err = r.run(io.Discard)
		}
		results = append(results, r.results...)
		if err != nil {
			return results, errors.WithMessagef(err, "self-test of version %s", version)
		}
	}

	var failed int
	for _, result := range results {
		if !result.Passed {
			failed++
		}
	}
	if failed > 0 {
		return results, errors.Wrapf(ErrSelfTestFailed, "%d of %d rounds deviated more than %g from the reference",
			failed, len(results), opts.Tolerance)
	}
	return results, nil
}

// runner runs the rounds of one version.
type runner struct {
	engine  backends.Engine
	opts    *Options
	runID   uuid.UUID
	version backends.Version
	results []RoundResult
	w       io.Writer
	err     error
}

// printf writes to the report, keeping the first error.
func (r *runner) printf(format string, args ...any) {
	if r.err == nil {
		_, r.err = fmt.Fprintf(r.w, format, args...)
	}
}

func (r *runner) run(w io.Writer) error {
	r.w = w
	rng := rand.New(rand.NewPCG(r.opts.Seed, uint64(r.version)))
	r.printf("run %s: engine %s, seed %d\n", r.runID, r.engine.Description(), r.opts.Seed)
	var total time.Duration
	for round := range r.opts.Rounds {
		r.printf("round: %d\n", round)
		result, err := r.round(rng, round)
		if err != nil {
			return err
		}
		r.results = append(r.results, result)
		total += result.EngineTime
		if r.opts.OnRound != nil {
			r.opts.OnRound(result)
		}
		r.printf("\n\n\n")
	}
	r.printf("Average time of ellpack-mul: %f seconds\n", (total / time.Duration(r.opts.Rounds)).Seconds())
	return errors.Wrap(r.err, "writing self-test report")
}

func (r *runner) round(rng *rand.Rand, round int) (RoundResult, error) {
	result := RoundResult{Version: r.version, Round: round}
	opts := r.opts
	r.printf("testing matrix multiplication with version %d (%s):\n", int(r.version), r.version)
	r.printf("generating random matrices of float values between %g and %g:\n\n", ellpack.RandomMinValue, ellpack.RandomMaxValue)
	lhs, err := ellpack.Random(rng, opts.Rows, opts.Cols, opts.Width)
	if err != nil {
		return result, err
	}
	rhs, err := ellpack.Random(rng, opts.Cols, opts.Cols, opts.Width)
	if err != nil {
		return result, err
	}
	dest, err := ellpack.NewDense(lhs.Rows(), rhs.Cols())
	if err != nil {
		return result, err
	}

	start := time.Now()
	if err = r.engine.Dispatch(r.version, lhs, rhs, dest); err != nil {
		return result, err
	}
	result.EngineTime = time.Since(start)

	r.printf("matrix_a (%s):\n", humanize.Bytes(uint64(lhs.Memory())))
	r.encode(func(w io.Writer) error { return wire.EncodeMatrix(w, lhs) })
	r.printf("\nmatrix_b (%s):\n", humanize.Bytes(uint64(rhs.Memory())))
	r.encode(func(w io.Writer) error { return wire.EncodeMatrix(w, rhs) })
	r.printf("\nresult:\n")
	r.encode(func(w io.Writer) error { return wire.EncodeResult(w, dest) })
	r.printf("\n")

	start = time.Now()
	want, err := ellpack.ReferenceProduct(lhs, rhs)
	if err != nil {
		return result, err
	}
	result.ReferenceTime = time.Since(start)
	result.MaxDiff, err = ellpack.MaxAbsDiff(dest, want)
	if err != nil {
		return result, err
	}
	result.Passed = result.MaxDiff <= opts.Tolerance
	if result.Passed {
		r.printf("multiplication successful\n")
	} else {
		r.printf("multiplication failed: maximum deviation %g\n", result.MaxDiff)
		klog.Errorf("selftest: version %s round %d deviates %g from the reference (tolerance %g)",
			r.version, round, result.MaxDiff, opts.Tolerance)
	}
	r.printf("accepted float variation tolerance was: %.1f\n", opts.Tolerance)
	r.printf("benchmarking:\n")
	r.printf("ellpack matrix multiplication took: %f seconds\n", result.EngineTime.Seconds())
	r.printf("normal matrix multiplication took: %f seconds\n", result.ReferenceTime.Seconds())
	klog.V(1).Infof("selftest: version %s round %d: max diff %g, engine %s, reference %s",
		r.version, round, result.MaxDiff, result.EngineTime, result.ReferenceTime)
	return result, nil
}

// encode writes a matrix in wire format into the report. Encoding failures (e.g. an overflowing result)
// are reported inline.
func (r *runner) encode(encodeFn func(w io.Writer) error) {
	if r.err != nil {
		return
	}
	if err := encodeFn(r.w); err != nil {
		if errors.Is(err, ellpack.ErrOverflow) {
			r.printf("%v\n", err)
			return
		}
		r.err = err
	}
}
