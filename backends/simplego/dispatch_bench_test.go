package simplego

import (
	"fmt"
	"testing"

	"github.com/gomlx/ellpack/backends"
)

// BenchmarkDispatch benchmarks every version on square random operands.
func BenchmarkDispatch(b *testing.B) {
	backend, err := New("")
	if err != nil {
		b.Fatalf("New failed: %v", err)
	}

	sizes := []struct {
		rows, width int
	}{
		{100, 10},
		{1000, 32},
		{4000, 64},
	}
	for _, size := range sizes {
		lhs, rhs := randomOperands(b, 1, false, size.rows, size.rows, size.rows, size.width, size.width)
		for version := range backends.NumVersions {
			b.Run(fmt.Sprintf("%dx%d_w%d/%s", size.rows, size.rows, size.width, version), func(b *testing.B) {
				dest := newDest(b, lhs, rhs)
				b.ResetTimer()
				for b.Loop() {
					dest.Zeros()
					if err := backend.Dispatch(version, lhs, rhs, dest); err != nil {
						b.Fatalf("Dispatch failed: %v", err)
					}
				}
			})
		}
	}
}

// BenchmarkAccumulate compares the scalar and batched kernels on a single full row.
func BenchmarkAccumulate(b *testing.B) {
	for _, width := range []int{8, 64, 512} {
		values := make([]float32, width)
		indices := make([]uint32, width)
		for ii := range width {
			values[ii] = float32(ii + 1)
			indices[ii] = uint32(width - 1 - ii)
		}
		dest := make([]float32, width)
		for _, kernel := range []Kernel{KernelScalar, KernelBatched} {
			fn := kernel.fn()
			b.Run(fmt.Sprintf("w%d/%s", width, kernel), func(b *testing.B) {
				for b.Loop() {
					fn(1.5, values, indices, dest)
				}
			})
		}
	}
}
