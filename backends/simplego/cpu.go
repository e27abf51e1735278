// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package simplego

import (
	"os"
	"strconv"

	"golang.org/x/sys/cpu"
)

// SIMDLevel is the vector instruction set detected in the running CPU.
type SIMDLevel int

const (
	// SIMDScalar indicates no vector support, or that it was disabled.
	SIMDScalar SIMDLevel = iota

	// SIMDSSE2 indicates SSE2 instructions (x86-64 baseline, 4 float32 lanes).
	SIMDSSE2

	// SIMDAVX2 indicates AVX2 instructions (8 float32 lanes).
	SIMDAVX2

	// SIMDAVX512 indicates AVX-512 instructions (16 float32 lanes).
	SIMDAVX512

	// SIMDNEON indicates ARM NEON instructions (4 float32 lanes).
	SIMDNEON
)

// String returns a human-readable name for the SIMD level.
func (l SIMDLevel) String() string {
	switch l {
	case SIMDScalar:
		return "scalar"
	case SIMDSSE2:
		return "sse2"
	case SIMDAVX2:
		return "avx2"
	case SIMDAVX512:
		return "avx512"
	case SIMDNEON:
		return "neon"
	default:
		return "unknown"
	}
}

// NoSIMDEnv is the environment variable that, if set to true (or any non-boolean value), disables
// the batched accumulation kernel by default.
const NoSIMDEnv = "ELLPACK_NO_SIMD"

// detectedSIMD is set at initialization.
var detectedSIMD = detectSIMD()

// DetectedSIMD returns the SIMD level of the running CPU, or SIMDScalar if disabled with ELLPACK_NO_SIMD.
func DetectedSIMD() SIMDLevel {
	return detectedSIMD
}

func detectSIMD() SIMDLevel {
	if noSIMDFromEnv() {
		return SIMDScalar
	}
	switch {
	case cpu.X86.HasAVX512F:
		return SIMDAVX512
	case cpu.X86.HasAVX2:
		return SIMDAVX2
	case cpu.X86.HasSSE2:
		return SIMDSSE2
	case cpu.ARM64.HasASIMD:
		return SIMDNEON
	}
	return SIMDScalar
}

func noSIMDFromEnv() bool {
	val := os.Getenv(NoSIMDEnv)
	if val == "" {
		return false
	}
	if b, err := strconv.ParseBool(val); err == nil {
		return b
	}
	return true
}

// DefaultKernel returns the accumulation kernel to use when none is specified: batched, unless the
// CPU has no vector support or it was disabled.
func DefaultKernel() Kernel {
	if detectedSIMD == SIMDScalar {
		return KernelScalar
	}
	return KernelBatched
}
