// Package output writes sampler.Row values as the tab-separated format of
// spec.md §6.3: a header row of column names, then one row per sample.
// Grounded on a plain bufio.Writer with '\t'-joined fields rather than
// encoding/csv, since the output format is not comma-escaped CSV and the
// header/column set is fixed once at construction.
package output

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tausplit/tausplit/crn"
	"github.com/tausplit/tausplit/crn/sampler"
)

// TSVWriter writes sampler.Row values to an underlying io.Writer as TSV,
// per the CLI's --no-print-state / --count-reactions / --cpu-time flags
// (spec.md §6.2, §6.3).
type TSVWriter struct {
	w              *bufio.Writer
	species        []crn.Species
	printState     bool
	countReactions bool
	cpuTime        bool
	headerWritten  bool
}

// Options mirrors the subset of CLI flags that affect TSV column selection.
type Options struct {
	PrintState     bool
	CountReactions bool
	CPUTime        bool
}

// New constructs a TSVWriter over w, for a network's species in declaration
// order. The header row is written lazily, on the first WriteRow call.
func New(w io.Writer, species []crn.Species, opts Options) *TSVWriter {
	return &TSVWriter{
		w:              bufio.NewWriter(w),
		species:        species,
		printState:     opts.PrintState,
		countReactions: opts.CountReactions,
		cpuTime:        opts.CPUTime,
	}
}

// WriteRow appends one TSV row, writing the header first if this is the
// first call.
func (t *TSVWriter) WriteRow(row sampler.Row) error {
	if !t.headerWritten {
		if err := t.writeHeader(); err != nil {
			return err
		}
		t.headerWritten = true
	}

	fields := make([]string, 0, 2+len(t.species))
	fields = append(fields, strconv.FormatFloat(row.Time, 'g', -1, 64))
	if t.printState {
		for _, count := range row.State {
			fields = append(fields, strconv.FormatInt(count, 10))
		}
	}
	if t.countReactions {
		fields = append(fields, strconv.FormatUint(row.ReactionCount, 10))
	}
	if t.cpuTime {
		fields = append(fields, strconv.FormatFloat(row.CPUTime.Seconds(), 'f', 6, 64))
	}

	if _, err := fmt.Fprintln(t.w, strings.Join(fields, "\t")); err != nil {
		return fmt.Errorf("output: writing row: %w", err)
	}
	return nil
}

func (t *TSVWriter) writeHeader() error {
	columns := make([]string, 0, 2+len(t.species))
	columns = append(columns, "time")
	if t.printState {
		for _, s := range t.species {
			columns = append(columns, s.Name)
		}
	}
	if t.countReactions {
		columns = append(columns, "reactions")
	}
	if t.cpuTime {
		columns = append(columns, "cpu_time")
	}
	if _, err := fmt.Fprintln(t.w, strings.Join(columns, "\t")); err != nil {
		return fmt.Errorf("output: writing header: %w", err)
	}
	return nil
}

// Flush flushes any buffered output. Must be called before the process
// exits.
func (t *TSVWriter) Flush() error {
	return t.w.Flush()
}
