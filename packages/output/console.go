package output

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/caseflow/caseflow/packages/runner"
)

// Options configure formatter construction.
type Options struct {
	Writer  io.Writer
	Verbose bool
	NoColor bool
}

// ConsoleFormatter prints a live line per case and a closing summary.
type ConsoleFormatter struct {
	w       io.Writer
	verbose bool

	green  *color.Color
	red    *color.Color
	yellow *color.Color
	dim    *color.Color
}

func NewConsole(opts Options) *ConsoleFormatter {
	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}
	f := &ConsoleFormatter{
		w:       w,
		verbose: opts.Verbose,
		green:   color.New(color.FgGreen),
		red:     color.New(color.FgRed),
		yellow:  color.New(color.FgYellow),
		dim:     color.New(color.Faint),
	}
	if opts.NoColor {
		for _, c := range []*color.Color{f.green, f.red, f.yellow, f.dim} {
			c.DisableColor()
		}
	}
	return f
}

func (f *ConsoleFormatter) CaseResult(o runner.CaseOutcome) {
	switch o.Status {
	case runner.StatusPassed:
		fmt.Fprintf(f.w, "  %s %s %s\n", f.green.Sprint("✓"), o.Name, f.dim.Sprintf("(%s)", o.Duration.Round(time.Millisecond)))
	case runner.StatusFailed:
		fmt.Fprintf(f.w, "  %s %s\n", f.red.Sprint("✗"), o.Name)
		for _, d := range o.Diagnostics {
			if d.Passed && !f.verbose {
				continue
			}
			mark := f.red.Sprint("✗")
			if d.Passed {
				mark = f.green.Sprint("✓")
			}
			fmt.Fprintf(f.w, "      %s %s\n", mark, d.String())
		}
	case runner.StatusErrored:
		fmt.Fprintf(f.w, "  %s %s: %s: %v\n", f.red.Sprint("!"), o.Name, runner.Classify(o.Err), o.Err)
	case runner.StatusSkipped:
		fmt.Fprintf(f.w, "  %s %s\n", f.yellow.Sprint("-"), o.Name)
	}

	if f.verbose && o.Status == runner.StatusPassed {
		for _, d := range o.Diagnostics {
			fmt.Fprintf(f.w, "      %s %s\n", f.green.Sprint("✓"), d.String())
		}
	}
}

func (f *ConsoleFormatter) Summary(s *runner.Summary) {
	fmt.Fprintln(f.w)
	line := s.Message()
	if s.OK() {
		f.green.Fprintln(f.w, line)
	} else {
		f.red.Fprintln(f.w, line)
	}
}
