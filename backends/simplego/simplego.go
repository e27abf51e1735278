// Package simplego implements a simple, portable, pure Go engine for ELLPACK sparse x sparse multiplication.
//
// It provides a sequential engine (with a scalar or a batched accumulation kernel), a parallel orchestrator
// that splits the rows of the result among a fixed number of workers, and a dispatcher that selects
// among them given a backends.Version.
package simplego

import (
	"fmt"

	"github.com/gomlx/ellpack/backends"
	"github.com/gomlx/ellpack/pkg/core/ellpack"
)

// BackendName to be used in ELLPACK_BACKEND to specify this engine.
const BackendName = "go"

// Registers New() as the default constructor for the "go" engine.
func init() {
	backends.Register(BackendName, func(config string) (backends.Engine, error) {
		return New(config)
	})
}

// Backend implements the backends.Engine interface.
//
// It is immutable after construction, and safe for concurrent use.
type Backend struct {
	config Config
}

// Compile-time check that simplego.Backend implements backends.Engine.
var _ backends.Engine = &Backend{}

// New constructs a new SimpleGo Backend from a configuration string. See ParseConfig for the options.
func New(config string) (*Backend, error) {
	cfg, err := ParseConfig(config)
	if err != nil {
		return nil, err
	}
	return NewWithOptions(cfg)
}

// NewWithOptions constructs a new SimpleGo Backend from an already parsed configuration.
func NewWithOptions(cfg Config) (*Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Backend{config: cfg}, nil
}

// Name returns the short name of the engine.
func (b *Backend) Name() string {
	return BackendName
}

// String implements fmt.Stringer.
func (b *Backend) String() string { return BackendName }

// Description is a longer description of the Backend that can be used to pretty-print.
func (b *Backend) Description() string {
	return fmt.Sprintf("Simple Go Portable Engine (workers=%d, small_factor=%d, version=%s, kernel=%s, simd=%s)",
		b.config.Workers, b.config.SmallFactor, b.config.Version, b.config.Kernel, DetectedSIMD())
}

// Config returns the configuration of the backend.
func (b *Backend) Config() Config {
	return b.config
}

// Workers returns the number of workers used by the parallel orchestrator.
func (b *Backend) Workers() int {
	return b.config.Workers
}

// Multiply accumulates lhs x rhs into dest using the configured default version.
func (b *Backend) Multiply(lhs, rhs *ellpack.Matrix, dest *ellpack.Dense) error {
	return b.Dispatch(b.config.Version, lhs, rhs, dest)
}
