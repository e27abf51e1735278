// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package simplego

import (
	"strconv"
	"strings"

	"github.com/gomlx/ellpack/backends"
	"github.com/pkg/errors"
)

const (
	// DefaultWorkers is the default number of workers of the parallel orchestrator.
	DefaultWorkers = 5

	// DefaultSmallFactor is the default multiple of the number of workers up to which VersionAdaptive
	// multiplies sequentially.
	DefaultSmallFactor = 5
)

// Config holds the options of a Backend.
type Config struct {
	// Workers is the number of workers of the parallel orchestrator. Must be > 0.
	Workers int

	// SmallFactor: VersionAdaptive multiplies sequentially if rows(lhs) <= SmallFactor * Workers.
	SmallFactor int

	// Version used by Multiply.
	Version backends.Version

	// Kernel used by the adaptive and parallel strategies.
	Kernel Kernel
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Workers:     DefaultWorkers,
		SmallFactor: DefaultSmallFactor,
		Version:     backends.VersionAdaptive,
		Kernel:      DefaultKernel(),
	}
}

// Validate returns an error if any of the options is out of range.
func (c Config) Validate() error {
	if c.Workers <= 0 {
		return errors.Errorf("simplego: workers must be > 0, got %d", c.Workers)
	}
	if c.SmallFactor < 0 {
		return errors.Errorf("simplego: small_factor must be >= 0, got %d", c.SmallFactor)
	}
	if err := c.Version.Check(); err != nil {
		return err
	}
	if c.Kernel != KernelScalar && c.Kernel != KernelBatched {
		return errors.Errorf("simplego: invalid kernel %s", c.Kernel)
	}
	return nil
}

// ParseConfig parses a comma-separated list of options over DefaultConfig:
//
//   - "workers=N": number of workers of the parallel orchestrator (default 5).
//   - "small_factor=N": VersionAdaptive multiplies sequentially if rows <= N * workers (default 5).
//   - "version=V": version used by Multiply, by number or name (default 2, "adaptive").
//   - "nosimd": use the scalar kernel for the adaptive and parallel strategies.
//
// Example: backends.NewWithConfig("go:workers=8,nosimd")
func ParseConfig(config string) (Config, error) {
	cfg := DefaultConfig()
	if config == "" {
		return cfg, nil
	}
	for _, part := range strings.Split(config, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, hasValue := strings.Cut(part, "=")
		var err error
		switch {
		case key == "workers" && hasValue:
			cfg.Workers, err = strconv.Atoi(value)
		case key == "small_factor" && hasValue:
			cfg.SmallFactor, err = strconv.Atoi(value)
		case key == "version" && hasValue:
			cfg.Version, err = backends.ParseVersion(value)
		case key == "nosimd" && !hasValue:
			cfg.Kernel = KernelScalar
		default:
			return cfg, errors.Errorf("unknown configuration option %q for SimpleGo (go) engine", part)
		}
		if err != nil {
			return cfg, errors.Wrapf(err, "invalid configuration option %q for SimpleGo (go) engine", part)
		}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
