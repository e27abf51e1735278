// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package simplego

import (
	"time"

	"github.com/gomlx/ellpack/internal/workerspool"
	"github.com/gomlx/ellpack/pkg/core/ellpack"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// PartitionRows splits [0, rows) into min(numWorkers, rows) contiguous non-empty ranges.
// All ranges have rows/T rows, except the last one which also takes the remainder.
//
// It returns nil if rows <= 0. numWorkers < 1 is taken as 1.
func PartitionRows(rows, numWorkers int) []ellpack.RowRange {
	if rows <= 0 {
		return nil
	}
	numWorkers = max(1, min(numWorkers, rows))
	chunkSize := rows / numWorkers
	ranges := make([]ellpack.RowRange, numWorkers)
	for ii := range ranges {
		ranges[ii].Start = ii * chunkSize
		ranges[ii].End = ranges[ii].Start + chunkSize
	}
	ranges[numWorkers-1].End = rows
	return ranges
}

// MultiplyParallel accumulates lhs x rhs into dest, splitting the rows among Workers() goroutines.
//
// Each goroutine owns an exclusive ellpack.RowBlock of dest, so the result is deterministic. All of them are
// joined before returning, and the first error by worker order is returned.
// Dimensions are checked before any goroutine starts, see MultiplySequential.
func (b *Backend) MultiplyParallel(lhs, rhs *ellpack.Matrix, dest *ellpack.Dense) error {
	if err := ellpack.CheckProduct(lhs, rhs, dest); err != nil {
		return err
	}
	ranges := PartitionRows(lhs.Rows(), b.config.Workers)
	blocks, err := dest.Split(ranges)
	if err != nil {
		return err
	}
	klog.V(1).Infof("simplego: parallel multiplication of %d rows with %d workers (%s kernel), partition %v",
		lhs.Rows(), len(blocks), b.config.Kernel, ranges)

	kernel := b.config.Kernel
	tasks := make([]workerspool.Task, len(blocks))
	for ii, block := range blocks {
		tasks[ii] = func() error {
			start := time.Now()
			err := multiplyRows(lhs, rhs, block, kernel)
			klog.V(2).Infof("simplego: worker #%d rows %s took %s", ii, block.Range(), time.Since(start))
			return err
		}
	}
	err = workerspool.New(len(tasks)).Run(tasks)
	if errors.Is(err, workerspool.ErrTaskPanic) {
		err = errors.Wrapf(ellpack.ErrCorruptInput, "%v", err)
	}
	return err
}
