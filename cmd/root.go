// Package cmd implements the tausplit command-line front-end (spec.md
// §6.2): it wires parse.Parse, engine.New, sampler.Run, and
// output.TSVWriter together behind a single Cobra command. Grounded
// directly on the teacher's rootCmd/flag-var pattern: package-level flag
// variables bound in init(), a single RunE closure, and logrus.SetLevel
// driven by a --log string flag.
package cmd

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tausplit/tausplit/crn/engine"
	"github.com/tausplit/tausplit/crn/rng"
	"github.com/tausplit/tausplit/crn/sampler"
	"github.com/tausplit/tausplit/output"
	"github.com/tausplit/tausplit/parse"
)

// Exit codes per spec.md §6.2.
const (
	exitOK         = 0
	exitParseError = 1
	exitSimError   = 2
	exitUsageError = 3
)

var (
	flagSamples        int
	flagAlgorithm      string
	flagSeed           int64
	flagCountReactions bool
	flagCPUTime        bool
	flagNoPrintState   bool
	flagLogLevel       string
	flagRunID          bool
	flagTolerances     string
)

// rootCmd is the tausplit command: `tausplit TIME INPUT_FILE [INPUT_FILE...] [OPTIONS]`.
var rootCmd = &cobra.Command{
	Use:   "tausplit TIME INPUT_FILE [INPUT_FILE...]",
	Short: "Simulate a stochastic chemical reaction network",
	Args:  cobra.MinimumNArgs(2),
	RunE:  run,
}

func init() {
	rootCmd.Flags().IntVarP(&flagSamples, "samples", "s", 1, "number of evenly spaced samples over [0, TIME]")
	rootCmd.Flags().StringVar(&flagAlgorithm, "algorithm", "tau-split", "simulation algorithm: tau-split, tau-split6, gillespie")
	rootCmd.Flags().Int64Var(&flagSeed, "seed", 0, "RNG seed; default draws from OS entropy")
	rootCmd.Flags().BoolVar(&flagCountReactions, "count-reactions", false, "append a cumulative reaction-count column")
	rootCmd.Flags().BoolVar(&flagCPUTime, "cpu-time", false, "append a wall-clock elapsed-seconds column")
	rootCmd.Flags().BoolVar(&flagNoPrintState, "no-print-state", false, "suppress per-species state columns")
	rootCmd.Flags().StringVar(&flagLogLevel, "log", "error", "log level: trace, debug, info, warn, error")
	rootCmd.Flags().BoolVar(&flagRunID, "run-id", false, "attach a random UUID to all log lines for this run")
	rootCmd.Flags().StringVar(&flagTolerances, "tolerances", "", "YAML file overriding the tau-split error-budget defaults")
}

// Execute runs the tausplit command and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		if exitCode == exitOK {
			return exitUsageError
		}
		return exitCode
	}
	return exitCode
}

// exitCode is set by run() before returning, since cobra's RunE contract
// only reports success/failure, not which of spec.md §6.2's specific codes
// applies.
var exitCode = exitOK

func run(cmd *cobra.Command, args []string) error {
	level, err := logrus.ParseLevel(flagLogLevel)
	if err != nil {
		exitCode = exitUsageError
		return fmt.Errorf("invalid --log level %q: %w", flagLogLevel, err)
	}
	logrus.SetLevel(level)
	if flagRunID {
		logrus.SetFormatter(&logrus.TextFormatter{})
		logrus.AddHook(runIDHook{id: uuid.New().String()})
	}

	horizon, err := parseTime(args[0])
	if err != nil {
		exitCode = exitUsageError
		return err
	}

	files := args[1:]
	readers, closeAll, err := openAll(files)
	if err != nil {
		exitCode = exitUsageError
		return err
	}
	defer closeAll()

	result, err := parse.Parse(readers...)
	if err != nil {
		exitCode = exitParseError
		return err
	}
	logrus.Debugf("parsed network: %d species, %d reactions", len(result.Network.Species), len(result.Network.Reactions))

	tol := engine.DefaultTolerances()
	if flagTolerances != "" {
		if tol, err = loadTolerances(flagTolerances, tol); err != nil {
			exitCode = exitUsageError
			return err
		}
	}

	seed := rng.Seed(flagSeed)
	if !cmd.Flags().Changed("seed") {
		var buf [8]byte
		if _, err := crand.Read(buf[:]); err != nil {
			exitCode = exitUsageError
			return fmt.Errorf("drawing seed from OS entropy: %w", err)
		}
		seed = rng.Seed(binary.LittleEndian.Uint64(buf[:]))
	}

	eng, err := engine.New(flagAlgorithm, result.Network, result.Initial, seed, tol)
	if err != nil {
		exitCode = exitUsageError
		return err
	}

	out := output.New(os.Stdout, result.Network.Species, output.Options{
		PrintState:     !flagNoPrintState,
		CountReactions: flagCountReactions,
		CPUTime:        flagCPUTime,
	})

	started := time.Now()
	runErr := sampler.Run(eng, horizon, flagSamples, sampler.Options{
		CountReactions: flagCountReactions,
		CPUTime:        flagCPUTime,
	}, started, out)
	if flushErr := out.Flush(); flushErr != nil && runErr == nil {
		runErr = flushErr
	}
	if runErr != nil {
		exitCode = exitSimError
		return runErr
	}
	return nil
}

func parseTime(text string) (float64, error) {
	var t float64
	if _, err := fmt.Sscanf(text, "%g", &t); err != nil || t < 0 {
		return 0, fmt.Errorf("invalid TIME argument %q", text)
	}
	return t, nil
}

func openAll(paths []string) ([]io.Reader, func(), error) {
	readers := make([]io.Reader, 0, len(paths))
	files := make([]*os.File, 0, len(paths))
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("opening %s: %w", p, err)
		}
		files = append(files, f)
		readers = append(readers, f)
	}
	return readers, closeAll, nil
}

func loadTolerances(path string, base engine.Tolerances) (engine.Tolerances, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("reading --tolerances file: %w", err)
	}
	var override struct {
		AbsEps   *float64 `yaml:"abs_eps"`
		RelEps   *float64 `yaml:"rel_eps"`
		MaxDepth *int     `yaml:"max_depth"`
	}
	if err := yaml.Unmarshal(data, &override); err != nil {
		return base, fmt.Errorf("parsing --tolerances file: %w", err)
	}
	if override.AbsEps != nil {
		base.AbsEps = *override.AbsEps
	}
	if override.RelEps != nil {
		base.RelEps = *override.RelEps
	}
	if override.MaxDepth != nil {
		base.MaxDepth = *override.MaxDepth
	}
	return base, nil
}

// runIDHook tags every log entry with a run identifier, purely diagnostic
// (spec.md SPEC_FULL.md §6 addendum "--run-id"); it never affects
// simulation output.
type runIDHook struct{ id string }

func (h runIDHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h runIDHook) Fire(e *logrus.Entry) error {
	e.Data["run_id"] = h.id
	return nil
}
