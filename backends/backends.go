// Package backends defines the interface an ELLPACK multiplication engine implements, and a registry
// of the available engines.
//
// Engines register themselves during initialization of their package, so to use one, import it.
// E.g.: the portable Go engine:
//
//	import _ "github.com/gomlx/ellpack/backends/simplego"
//
// All errors are returned, never thrown: engines must not panic or terminate the process on bad input.
package backends

import (
	"os"
	"slices"
	"strings"

	"github.com/gomlx/ellpack/pkg/core/ellpack"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
)

// Engine is the API implemented by an ELLPACK multiplication backend.
//
// For every multiplication, dest must be a zero-initialized rows(a) x cols(b) buffer owned by the caller:
// the product is accumulated into it. Engines never modify a or b, and never release anything they don't own.
type Engine interface {
	// Name returns the short name of the engine. E.g.: "go" for the portable Go engine.
	Name() string

	// Description is a longer description of the Engine that can be used to pretty-print.
	Description() string

	// Multiply accumulates a x b into dest using the engine's default Version.
	Multiply(a, b *ellpack.Matrix, dest *ellpack.Dense) error

	// Dispatch accumulates a x b into dest using the strategy selected by version.
	// It returns ErrUnsupportedVersion, before any work, if the version is not valid.
	Dispatch(version Version, a, b *ellpack.Matrix, dest *ellpack.Dense) error
}

// Constructor takes a config string (optionally empty) and returns an Engine.
type Constructor func(config string) (Engine, error)

var (
	registeredConstructors = make(map[string]Constructor)
	firstRegistered        string
)

// Register engine with the given name, and a default constructor that takes as input a configuration string that is
// passed along to the engine constructor.
//
// To be safe, call Register during initialization of a package.
func Register(name string, constructor Constructor) {
	if len(registeredConstructors) == 0 {
		firstRegistered = name
	}
	registeredConstructors[name] = constructor
}

// List returns the names of the registered engines, sorted.
func List() []string {
	names := make([]string, 0, len(registeredConstructors))
	for name := range registeredConstructors {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// DefaultConfig is the name of the default engine configuration to use if specified.
//
// See NewWithConfig for the format of the configuration string.
var DefaultConfig string

// ConfigEnv is the environment variable with the default engine configuration to use.
//
// The format of config is "<engine_name>:<engine_configuration>".
// The "<engine_name>" is the name of a registered engine (e.g.: "go") and
// "<engine_configuration>" is engine specific (e.g.: for the go engine, "workers=8,nosimd").
const ConfigEnv = "ELLPACK_BACKEND"

// New returns a new default Engine.
//
// The default is:
//
// 1. The environment ELLPACK_BACKEND is used as a configuration if defined.
// 2. Next the variable DefaultConfig is used as a configuration if defined.
// 3. The first registered engine is used with an empty configuration.
func New() (Engine, error) {
	config, found := os.LookupEnv(ConfigEnv)
	if found {
		return NewWithConfig(config)
	}
	if DefaultConfig != "" {
		return NewWithConfig(DefaultConfig)
	}
	return NewWithConfig("")
}

// MustNew is like New, but panics on error.
func MustNew() Engine {
	return must.M1(New())
}

// NewWithConfig takes a configurations string formated as "<engine_name>:<engine_configuration>".
//
// The "<engine_name>" is the name of a registered engine (e.g.: "go") and "<engine_configuration>" is
// engine specific. If there is no ":", the whole config is taken as the engine name, and if it is
// empty the first registered engine is used.
func NewWithConfig(config string) (Engine, error) {
	if len(registeredConstructors) == 0 {
		return nil, errors.New(`no registered ELLPACK engines -- maybe import the default one with import _ "github.com/gomlx/ellpack/backends/simplego"?`)
	}
	engineName, engineConfig := config, ""
	if idx := strings.Index(config, ":"); idx != -1 {
		engineName = config[:idx]
		engineConfig = config[idx+1:]
	}
	if engineName == "" {
		engineName = firstRegistered
	}
	constructor, found := registeredConstructors[engineName]
	if !found {
		return nil, errors.Errorf("can't find engine %q for configuration %q given, registered engines: %q",
			engineName, config, List())
	}
	engine, err := constructor(engineConfig)
	if err != nil {
		return nil, errors.WithMessagef(err, "creating engine %q", engineName)
	}
	return engine, nil
}
