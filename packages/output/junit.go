package output

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/caseflow/caseflow/packages/runner"
)

// JUnitFormatter renders the session as JUnit XML for CI systems.
type JUnitFormatter struct {
	w        io.Writer
	outcomes []runner.CaseOutcome
	summary  *runner.Summary
}

type junitTestSuites struct {
	XMLName  xml.Name         `xml:"testsuites"`
	Tests    int              `xml:"tests,attr"`
	Failures int              `xml:"failures,attr"`
	Errors   int              `xml:"errors,attr"`
	Skipped  int              `xml:"skipped,attr"`
	Time     float64          `xml:"time,attr"`
	Suites   []junitTestSuite `xml:"testsuite"`
}

type junitTestSuite struct {
	Name     string          `xml:"name,attr"`
	Tests    int             `xml:"tests,attr"`
	Failures int             `xml:"failures,attr"`
	Errors   int             `xml:"errors,attr"`
	Skipped  int             `xml:"skipped,attr"`
	Cases    []junitTestCase `xml:"testcase"`
}

type junitTestCase struct {
	Name    string        `xml:"name,attr"`
	Time    float64       `xml:"time,attr"`
	Failure *junitMessage `xml:"failure,omitempty"`
	Error   *junitMessage `xml:"error,omitempty"`
	Skipped *struct{}     `xml:"skipped,omitempty"`
}

type junitMessage struct {
	Message string `xml:"message,attr"`
	Body    string `xml:",chardata"`
}

func NewJUnit(w io.Writer) *JUnitFormatter {
	if w == nil {
		w = os.Stdout
	}
	return &JUnitFormatter{w: w}
}

func (f *JUnitFormatter) CaseResult(o runner.CaseOutcome) {
	f.outcomes = append(f.outcomes, o)
}

func (f *JUnitFormatter) Summary(s *runner.Summary) {
	f.summary = s
}

func (f *JUnitFormatter) Flush() error {
	doc := junitTestSuites{}
	if f.summary != nil {
		doc.Tests = f.summary.Total
		doc.Failures = f.summary.Failed
		doc.Errors = f.summary.Errored
		doc.Skipped = f.summary.Skipped
		doc.Time = f.summary.Duration.Seconds()
	}

	// Group consecutive outcomes by suite, preserving run order.
	var current *junitTestSuite
	for _, o := range f.outcomes {
		if current == nil || current.Name != o.Suite {
			doc.Suites = append(doc.Suites, junitTestSuite{Name: o.Suite})
			current = &doc.Suites[len(doc.Suites)-1]
		}
		current.Tests++

		tc := junitTestCase{Name: o.Name, Time: o.Duration.Seconds()}
		switch o.Status {
		case runner.StatusFailed:
			current.Failures++
			var lines []string
			for _, d := range o.Diagnostics {
				if !d.Passed {
					lines = append(lines, d.String())
				}
			}
			tc.Failure = &junitMessage{
				Message: "assertions failed",
				Body:    strings.Join(lines, "\n"),
			}
		case runner.StatusErrored:
			current.Errors++
			tc.Error = &junitMessage{
				Message: string(runner.Classify(o.Err)),
				Body:    o.Err.Error(),
			}
		case runner.StatusSkipped:
			current.Skipped++
			tc.Skipped = &struct{}{}
		}
		current.Cases = append(current.Cases, tc)
	}

	if _, err := fmt.Fprint(f.w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(f.w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	_, err := fmt.Fprintln(f.w)
	return err
}
