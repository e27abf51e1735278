// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Version selects the multiplication strategy used by Engine.Dispatch.
type Version int

const (
	// VersionScalar multiplies sequentially, checking the row sentinel for every element.
	VersionScalar Version = iota

	// VersionSIMD multiplies sequentially with the batched (8 element) accumulation kernel.
	VersionSIMD

	// VersionAdaptive multiplies sequentially for small inputs and in parallel otherwise.
	VersionAdaptive

	// NumVersions is the number of valid versions.
	NumVersions
)

// ErrUnsupportedVersion is returned for a Version outside of [0, NumVersions).
var ErrUnsupportedVersion = errors.New("ellpack: unsupported version")

var versionNames = [NumVersions]string{"scalar", "simd", "adaptive"}

// IsValid returns whether v is one of the known versions.
func (v Version) IsValid() bool {
	return v >= 0 && v < NumVersions
}

// String implements fmt.Stringer.
func (v Version) String() string {
	if !v.IsValid() {
		return fmt.Sprintf("Version(%d)", int(v))
	}
	return versionNames[v]
}

// Check returns ErrUnsupportedVersion, wrapped with the version value, if v is not valid.
func (v Version) Check() error {
	if !v.IsValid() {
		return errors.Wrapf(ErrUnsupportedVersion, "version %d, valid versions are 0 to %d", int(v), NumVersions-1)
	}
	return nil
}

// ParseVersion parses a version given by its number (e.g.: "1") or its name (e.g.: "simd").
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		v := Version(n)
		return v, v.Check()
	}
	for v, name := range versionNames {
		if strings.EqualFold(s, name) {
			return Version(v), nil
		}
	}
	return 0, errors.Wrapf(ErrUnsupportedVersion, "can't parse version %q", s)
}
