// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package simplego

import (
	"fmt"

	"github.com/gomlx/ellpack/backends"
	"github.com/gomlx/ellpack/pkg/core/ellpack"
	"k8s.io/klog/v2"
)

// Plan is the engine selected by Strategy.
type Plan struct {
	// Parallel is true for the parallel orchestrator, false for the sequential engine.
	Parallel bool

	// Kernel used for the accumulation.
	Kernel Kernel
}

// String implements fmt.Stringer.
func (p Plan) String() string {
	if p.Parallel {
		return fmt.Sprintf("parallel/%s", p.Kernel)
	}
	return fmt.Sprintf("sequential/%s", p.Kernel)
}

// Strategy returns the engine Dispatch uses for the given version and number of rows of the lhs operand:
//
//   - backends.VersionScalar: sequential, scalar kernel.
//   - backends.VersionSIMD: sequential, batched kernel.
//   - backends.VersionAdaptive: sequential if rowsLhs <= SmallFactor * Workers, parallel otherwise,
//     with the configured kernel.
//
// It returns backends.ErrUnsupportedVersion for any other version.
func (b *Backend) Strategy(version backends.Version, rowsLhs int) (Plan, error) {
	if err := version.Check(); err != nil {
		return Plan{}, err
	}
	switch version {
	case backends.VersionScalar:
		return Plan{Kernel: KernelScalar}, nil
	case backends.VersionSIMD:
		return Plan{Kernel: KernelBatched}, nil
	}
	threshold := b.config.SmallFactor * b.config.Workers
	return Plan{Parallel: rowsLhs > threshold, Kernel: b.config.Kernel}, nil
}

// Dispatch implements backends.Engine: it accumulates lhs x rhs into dest with the engine chosen by Strategy.
//
// An unsupported version fails before dest is touched.
func (b *Backend) Dispatch(version backends.Version, lhs, rhs *ellpack.Matrix, dest *ellpack.Dense) error {
	if err := version.Check(); err != nil {
		return err
	}
	if err := ellpack.CheckProduct(lhs, rhs, dest); err != nil {
		return err
	}
	plan, err := b.Strategy(version, lhs.Rows())
	if err != nil {
		return err
	}
	klog.V(1).Infof("simplego: version %s, %d rows: using %s", version, lhs.Rows(), plan)
	if plan.Parallel {
		return b.MultiplyParallel(lhs, rhs, dest)
	}
	return b.MultiplySequential(lhs, rhs, dest, plan.Kernel)
}
