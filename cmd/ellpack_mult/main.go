// ellpack_mult multiplies two ELLPACK matrices read from files, and writes the product as an ELLPACK file.
//
// Usage:
//
//	ellpack_mult -a <matrix_a> -b <matrix_b> -o <output> [-V <version>] [-B <iterations>] [-workers <n>]
//	ellpack_mult -t [-report_dir <dir>]
//
// The version selects the multiplication strategy: 0 (scalar), 1 (simd) or 2 (adaptive, parallel for large inputs).
// With -t it runs the self-test of every version on random matrices instead.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/gomlx/ellpack/backends"
	_ "github.com/gomlx/ellpack/backends/simplego"
	"github.com/gomlx/ellpack/pkg/core/ellpack"
	"github.com/gomlx/ellpack/pkg/core/ellpack/wire"
	"github.com/gomlx/ellpack/pkg/selftest"
	"github.com/gomlx/ellpack/ui/commandline"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// flags of one invocation.
type flags struct {
	matrixA, matrixB, output string
	version                  string
	iterations               int
	selfTest                 bool
	workers                  int
	backend                  string
	reportDir                string
}

func newFlagSet(name string, f *flags) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	for _, n := range []string{"matrix_a", "a"} {
		fs.StringVar(&f.matrixA, n, "", "Path to the ELLPACK file of the left operand.")
	}
	for _, n := range []string{"matrix_b", "b"} {
		fs.StringVar(&f.matrixB, n, "", "Path to the ELLPACK file of the right operand.")
	}
	for _, n := range []string{"output", "o"} {
		fs.StringVar(&f.output, n, "", "Path where to write the ELLPACK encoded product.")
	}
	for _, n := range []string{"version", "V"} {
		fs.StringVar(&f.version, n, "0", "Multiplication strategy: 0 (scalar), 1 (simd) or 2 (adaptive).")
	}
	for _, n := range []string{"iterations", "B"} {
		fs.IntVar(&f.iterations, n, 1, "Number of times to run the multiplication, for timing.")
	}
	for _, n := range []string{"test", "t"} {
		fs.BoolVar(&f.selfTest, n, false, "Run the self-test of every version on random matrices, and exit.")
	}
	fs.IntVar(&f.workers, "workers", 0, "Number of parallel workers. If 0, the engine default is used.")
	fs.StringVar(&f.backend, "backend", "",
		fmt.Sprintf("Engine configuration, formatted as \"<engine>:<options>\". If empty, $%s is used. Registered engines: %q.",
			backends.ConfigEnv, backends.List()))
	fs.StringVar(&f.reportDir, "report_dir", "", "Directory where to write the self-test reports, one file per version.")
	klog.InitFlags(fs)
	return fs
}

func main() {
	err := run(os.Args[1:], os.Stdout)
	klog.Flush()
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		klog.Errorf("%+v", err)
		os.Exit(1)
	}
}

// run executes the command with the given arguments, printing the progress and summaries to stdout.
func run(args []string, stdout io.Writer) error {
	var f flags
	fs := newFlagSet("ellpack_mult", &f)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return errors.Errorf("unexpected arguments %q, see 'ellpack_mult -help'", fs.Args())
	}
	engine, err := newEngine(f.backend, f.workers)
	if err != nil {
		return err
	}
	klog.V(1).Infof("engine: %s", engine.Description())
	if f.selfTest {
		return runSelfTest(engine, &f, stdout)
	}
	return multiply(engine, &f, stdout)
}

// engineConfig returns the engine configuration to use, with the number of workers appended if workers > 0.
func engineConfig(backend string, workers int) string {
	if backend == "" {
		backend = os.Getenv(backends.ConfigEnv)
	}
	if workers <= 0 {
		return backend
	}
	option := fmt.Sprintf("workers=%d", workers)
	switch {
	case !strings.Contains(backend, ":"):
		return backend + ":" + option
	case strings.HasSuffix(backend, ":"):
		return backend + option
	default:
		return backend + "," + option
	}
}

func newEngine(backend string, workers int) (backends.Engine, error) {
	return backends.NewWithConfig(engineConfig(backend, workers))
}

func multiply(engine backends.Engine, f *flags, stdout io.Writer) error {
	if f.matrixA == "" || f.matrixB == "" || f.output == "" {
		return errors.New("missing required arguments -matrix_a, -matrix_b and -output, see 'ellpack_mult -help'")
	}
	version, err := backends.ParseVersion(f.version)
	if err != nil {
		return err
	}
	if f.iterations < 1 {
		return errors.Errorf("invalid -iterations=%d, it must be at least 1", f.iterations)
	}
	lhs, err := wire.LoadFile(f.matrixA)
	if err != nil {
		return err
	}
	rhs, err := wire.LoadFile(f.matrixB)
	if err != nil {
		return err
	}
	dest, err := ellpack.NewDense(lhs.Rows(), rhs.Cols())
	if err != nil {
		return err
	}

	runID := uuid.New()
	klog.V(1).Infof("run %s: %s (%dx%d, width %d) x %s (%dx%d, width %d), version %s, %d iterations",
		runID, f.matrixA, lhs.Rows(), lhs.Cols(), lhs.Width(), f.matrixB, rhs.Rows(), rhs.Cols(), rhs.Width(),
		version, f.iterations)
	var pBar *commandline.ProgressBar
	if f.iterations > 1 {
		pBar = commandline.NewProgressBar(stdout, f.iterations, "iterations")
	}
	var elapsed time.Duration
	for range f.iterations {
		dest.Zeros()
		start := time.Now()
		err = engine.Dispatch(version, lhs, rhs, dest)
		elapsed += time.Since(start)
		if err != nil {
			if pBar != nil {
				pBar.Done()
			}
			return errors.WithMessagef(err, "multiplying %q x %q", f.matrixA, f.matrixB)
		}
		if pBar != nil {
			pBar.Add(1)
		}
	}
	if pBar != nil {
		pBar.Done()
	}
	if err = wire.WriteResultFile(f.output, dest); err != nil {
		return err
	}

	average := elapsed / time.Duration(f.iterations)
	table := commandline.NewTable()
	table.Row("Run", runID.String())
	table.Row("Engine", engine.Description())
	table.Row("Version", fmt.Sprintf("%d (%s)", int(version), version))
	table.Row("Matrix A", matrixSummary(f.matrixA, lhs))
	table.Row("Matrix B", matrixSummary(f.matrixB, rhs))
	table.Row("Result", fmt.Sprintf("%s: %dx%d, width %d", f.output, dest.Rows(), dest.Cols(), wire.ResultWidth(dest)))
	table.Row("Iterations", commandline.HumanizeInt(f.iterations))
	table.Row("Average time", commandline.FormatDuration(average))
	table.Row("Rate", commandline.FormatRate(f.iterations, elapsed, "it"))
	_, _ = fmt.Fprintln(stdout, table.String())
	_, err = fmt.Fprintf(stdout, "Version %d average elapsed time per iteration: %f seconds (%d iterations ran)\n",
		int(version), average.Seconds(), f.iterations)
	return err
}

func matrixSummary(path string, m *ellpack.Matrix) string {
	return fmt.Sprintf("%s: %dx%d, width %d, %s live, %s",
		path, m.Rows(), m.Cols(), m.Width(), commandline.HumanizeInt(m.NumLive()), commandline.FormatBytes(m.Memory()))
}

func runSelfTest(engine backends.Engine, f *flags, stdout io.Writer) error {
	opts := selftest.Options{ReportDir: f.reportDir}
	opts.Versions = make([]backends.Version, 0, backends.NumVersions)
	for v := range backends.NumVersions {
		opts.Versions = append(opts.Versions, v)
	}
	rounds := selftest.DefaultRounds * len(opts.Versions)
	var (
		lastDiff float64
		failed   int
	)
	pBar := commandline.NewProgressBar(stdout, rounds, "rounds",
		func() (string, string) { return "Last max diff", fmt.Sprintf("%g", lastDiff) },
		func() (string, string) { return "Failed rounds", commandline.HumanizeInt(failed) },
	)
	opts.OnRound = func(result selftest.RoundResult) {
		lastDiff = result.MaxDiff
		if !result.Passed {
			failed++
		}
		pBar.Add(1)
	}
	results, err := selftest.Run(engine, opts)
	pBar.Done()

	table := commandline.NewTableWithReds([]string{"Version", "Round", "Max diff", "Engine", "Reference", "Status"},
		lipgloss.Left, lipgloss.Right, lipgloss.Right, lipgloss.Right, lipgloss.Right, lipgloss.Left)
	for _, result := range results {
		status := "ok"
		if !result.Passed {
			status = "FAILED"
		}
		table.Row(!result.Passed, fmt.Sprintf("%d (%s)", int(result.Version), result.Version),
			fmt.Sprintf("%d", result.Round), fmt.Sprintf("%g", result.MaxDiff),
			commandline.FormatDuration(result.EngineTime), commandline.FormatDuration(result.ReferenceTime), status)
	}
	_, _ = fmt.Fprintln(stdout, table.String())
	if f.reportDir != "" {
		_, _ = fmt.Fprintf(stdout, "Reports written to %s\n", f.reportDir)
	}
	return err
}
