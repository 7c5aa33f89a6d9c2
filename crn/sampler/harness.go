// Package sampler provides the time-point scheduler of spec.md §4.6: given
// a horizon T and a sample count K, it advances an engine.Engine to each of
// the K evenly spaced target times T*i/K (plus the initial state at t=0),
// handing each emitted row to an OutputWriter.
package sampler

import (
	"time"

	"github.com/tausplit/tausplit/crn/engine"
)

// Row is one emitted sample: the state at a point in simulated time, plus
// the optional columns the CLI's --count-reactions and --cpu-time flags
// request (spec.md §6.3).
type Row struct {
	Time          float64
	State         []int64
	ReactionCount uint64
	HasReactions  bool
	CPUTime       time.Duration
	HasCPUTime    bool
}

// OutputWriter receives rows in emission order, starting with the row at
// t=0. Implemented by output.TSVWriter; kept as an interface here so the
// harness has no dependency on the output package's formatting details.
type OutputWriter interface {
	WriteRow(Row) error
}

// Options configures which optional columns the harness populates on each
// Row (spec.md §6.2's --count-reactions / --cpu-time flags).
type Options struct {
	CountReactions bool
	CPUTime        bool
}

// Run advances eng from t=0 to horizon across samples evenly spaced target
// times, writing one Row per target (plus the initial state) to out. The
// wall-clock reference point is startedAt, the instant the caller began the
// run, typically the CLI's time.Now() taken just before it calls Run; if Options.CPUTime
// is false it's never read.
func Run(eng engine.Engine, horizon float64, samples int, opts Options, startedAt time.Time, out OutputWriter) error {
	if err := out.WriteRow(makeRow(eng, opts, startedAt)); err != nil {
		return err
	}
	if samples <= 0 {
		samples = 1
	}
	for i := 1; i <= samples; i++ {
		target := horizon * float64(i) / float64(samples)
		if err := eng.Advance(target); err != nil {
			return err
		}
		if err := out.WriteRow(makeRow(eng, opts, startedAt)); err != nil {
			return err
		}
	}
	return nil
}

func makeRow(eng engine.Engine, opts Options, startedAt time.Time) Row {
	state := eng.State()
	row := Row{
		Time:  eng.Time(),
		State: append([]int64(nil), state...),
	}
	if opts.CountReactions {
		row.HasReactions = true
		row.ReactionCount = eng.ReactionCount()
	}
	if opts.CPUTime {
		row.HasCPUTime = true
		row.CPUTime = time.Since(startedAt)
	}
	return row
}
