// Package output renders session results for humans and machines.
package output

import (
	"fmt"

	"github.com/caseflow/caseflow/packages/runner"
)

// Formatter receives outcomes as they complete and the summary at the end.
type Formatter interface {
	CaseResult(outcome runner.CaseOutcome)
	Summary(summary *runner.Summary)
}

// Flushable formatters buffer output and write it all at once. The CLI calls
// Flush after the summary.
type Flushable interface {
	Flush() error
}

// New returns the formatter for a format name.
func New(format string, opts Options) (Formatter, error) {
	switch format {
	case "console", "":
		return NewConsole(opts), nil
	case "json":
		return NewJSON(opts.Writer), nil
	case "junit":
		return NewJUnit(opts.Writer), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want console, json or junit)", format)
	}
}
