package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/caseflow/caseflow/packages/runner"
)

// JSONFormatter buffers the whole session and writes one document on Flush.
type JSONFormatter struct {
	w       io.Writer
	cases   []jsonCase
	summary *runner.Summary
}

type jsonCase struct {
	Suite       string           `json:"suite"`
	Name        string           `json:"name"`
	Status      string           `json:"status"`
	DurationMs  int64            `json:"duration_ms"`
	Error       string           `json:"error,omitempty"`
	ErrorKind   string           `json:"error_kind,omitempty"`
	Diagnostics []jsonDiagnostic `json:"diagnostics,omitempty"`
}

type jsonDiagnostic struct {
	Op       string `json:"op"`
	Path     string `json:"path"`
	Expected any    `json:"expected"`
	Actual   any    `json:"actual"`
	Passed   bool   `json:"passed"`
	Message  string `json:"message,omitempty"`
}

type jsonDocument struct {
	Timestamp time.Time   `json:"timestamp"`
	Cases     []jsonCase  `json:"cases"`
	Summary   jsonSummary `json:"summary"`
}

type jsonSummary struct {
	Total      int   `json:"total"`
	Passed     int   `json:"passed"`
	Failed     int   `json:"failed"`
	Errored    int   `json:"errored"`
	Skipped    int   `json:"skipped"`
	DurationMs int64 `json:"duration_ms"`
	OK         bool  `json:"ok"`
}

func NewJSON(w io.Writer) *JSONFormatter {
	if w == nil {
		w = os.Stdout
	}
	return &JSONFormatter{w: w}
}

func (f *JSONFormatter) CaseResult(o runner.CaseOutcome) {
	c := jsonCase{
		Suite:      o.Suite,
		Name:       o.Name,
		Status:     o.Status.String(),
		DurationMs: o.Duration.Milliseconds(),
	}
	if o.Err != nil {
		c.Error = o.Err.Error()
		c.ErrorKind = string(runner.Classify(o.Err))
	}
	for _, d := range o.Diagnostics {
		c.Diagnostics = append(c.Diagnostics, jsonDiagnostic{
			Op:       d.Op,
			Path:     d.Path,
			Expected: d.Expected,
			Actual:   d.Actual,
			Passed:   d.Passed,
			Message:  d.Message,
		})
	}
	f.cases = append(f.cases, c)
}

func (f *JSONFormatter) Summary(s *runner.Summary) {
	f.summary = s
}

func (f *JSONFormatter) Flush() error {
	doc := jsonDocument{
		Timestamp: time.Now().UTC(),
		Cases:     f.cases,
	}
	if f.summary != nil {
		doc.Summary = jsonSummary{
			Total:      f.summary.Total,
			Passed:     f.summary.Passed,
			Failed:     f.summary.Failed,
			Errored:    f.summary.Errored,
			Skipped:    f.summary.Skipped,
			DurationMs: f.summary.Duration.Milliseconds(),
			OK:         f.summary.OK(),
		}
	}
	enc := json.NewEncoder(f.w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
