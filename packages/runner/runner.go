// Package runner executes suites case by case against a live endpoint.
//
// Execution is strictly sequential: cases share one variable store, and a
// later case may depend on values extracted by an earlier one, so order is
// part of a suite's meaning.
package runner

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/caseflow/caseflow/packages/builtin"
	"github.com/caseflow/caseflow/packages/db"
	"github.com/caseflow/caseflow/packages/expect"
	"github.com/caseflow/caseflow/packages/extract"
	"github.com/caseflow/caseflow/packages/httpclient"
	"github.com/caseflow/caseflow/packages/request"
	"github.com/caseflow/caseflow/packages/suite"
	"github.com/caseflow/caseflow/packages/vars"
)

// Status is a case's terminal result.
type Status int

const (
	StatusPassed Status = iota
	StatusFailed
	StatusErrored
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	case StatusErrored:
		return "errored"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// State tracks how far a case got through its lifecycle. A Failed case still
// reached StateAsserted; an Errored case stopped wherever its error struck.
type State int

const (
	StatePending State = iota
	StateRequestBuilt
	StateDispatched
	StateExtracted
	StateAsserted
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRequestBuilt:
		return "request built"
	case StateDispatched:
		return "dispatched"
	case StateExtracted:
		return "extracted"
	case StateAsserted:
		return "asserted"
	default:
		return "unknown"
	}
}

// CaseOutcome is the result of one executed case.
type CaseOutcome struct {
	Suite       string
	Name        string
	Status      Status
	State       State
	Diagnostics []expect.Diagnostic
	Duration    time.Duration
	Err         error
}

// Summary aggregates a session's outcomes.
type Summary struct {
	Total    int
	Passed   int
	Failed   int
	Errored  int
	Skipped  int
	Duration time.Duration
	Outcomes []CaseOutcome
}

// OK reports whether every executed case passed.
func (s *Summary) OK() bool {
	return s.Failed == 0 && s.Errored == 0
}

// Message renders a one-line result suitable for notifications.
func (s *Summary) Message() string {
	return fmt.Sprintf("%d cases: %d passed, %d failed, %d errored, %d skipped in %s",
		s.Total, s.Passed, s.Failed, s.Errored, s.Skipped, s.Duration.Round(time.Millisecond))
}

// Notifier receives the session summary after all cases finish.
type Notifier interface {
	Notify(*Summary) error
}

// Session runs suites sequentially over a shared variable store.
type Session struct {
	client   httpclient.Doer
	store    *vars.Store
	funcs    *builtin.Registry
	dbClient *db.Client
	notifier Notifier
	log      logrus.FieldLogger
	cleanup  []func() error
	onCase   func(CaseOutcome)
	bail     bool
}

type Option func(*Session)

// WithClient sets the HTTP client. Tests inject fakes through this.
func WithClient(c httpclient.Doer) Option {
	return func(s *Session) { s.client = c }
}

// WithDB enables db assertion rules.
func WithDB(client *db.Client) Option {
	return func(s *Session) { s.dbClient = client }
}

// WithNotifier sets where the summary is delivered. Delivery failures are
// logged, never fatal.
func WithNotifier(n Notifier) Option {
	return func(s *Session) { s.notifier = n }
}

// WithLogger sets the session logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Session) { s.log = log }
}

// WithCleanup registers a hook run once at session start, before any case.
func WithCleanup(fn func() error) Option {
	return func(s *Session) { s.cleanup = append(s.cleanup, fn) }
}

// WithCaseHook streams each outcome as it completes.
func WithCaseHook(fn func(CaseOutcome)) Option {
	return func(s *Session) { s.onCase = fn }
}

// WithBail stops the session at the first failed or errored case.
func WithBail(bail bool) Option {
	return func(s *Session) { s.bail = bail }
}

// WithFunctions overrides the builtin placeholder functions.
func WithFunctions(funcs *builtin.Registry) Option {
	return func(s *Session) { s.funcs = funcs }
}

func NewSession(opts ...Option) *Session {
	s := &Session{
		store: vars.NewStore(),
		funcs: builtin.NewRegistry(),
		log:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = httpclient.NewClient()
	}
	return s
}

// Run executes every case of every suite in order and returns the aggregated
// summary. The variable store is cleared once at the start, so state from a
// previous session never leaks in, while cases within the session share it
// freely.
func (s *Session) Run(suites []*suite.Suite) (*Summary, error) {
	s.store.Clear()
	for _, fn := range s.cleanup {
		if err := fn(); err != nil {
			return nil, fmt.Errorf("session cleanup: %w", err)
		}
	}

	summary := &Summary{}
	start := time.Now()

loop:
	for _, st := range suites {
		builder := request.NewBuilder(s.store,
			request.WithBaseURL(st.BaseURL),
			request.WithHeaders(st.Headers),
			request.WithCookies(st.Cookies),
			request.WithFunctions(s.funcs),
		)
		baseDir := filepath.Dir(st.Path)

		for _, c := range st.Cases {
			var outcome CaseOutcome
			if c.Skip {
				outcome = CaseOutcome{Suite: st.Name, Name: c.Name, Status: StatusSkipped}
			} else {
				outcome = s.runCase(st.Name, c, builder, baseDir)
			}

			summary.Outcomes = append(summary.Outcomes, outcome)
			summary.Total++
			switch outcome.Status {
			case StatusPassed:
				summary.Passed++
			case StatusFailed:
				summary.Failed++
			case StatusErrored:
				summary.Errored++
			case StatusSkipped:
				summary.Skipped++
			}

			if s.onCase != nil {
				s.onCase(outcome)
			}
			if s.bail && (outcome.Status == StatusFailed || outcome.Status == StatusErrored) {
				break loop
			}
		}
	}

	summary.Duration = time.Since(start)

	if s.notifier != nil {
		if err := s.notifier.Notify(summary); err != nil {
			s.log.WithError(err).Warn("notification delivery failed")
		}
	}
	return summary, nil
}

func (s *Session) runCase(suiteName string, c suite.Case, builder *request.Builder, baseDir string) CaseOutcome {
	outcome := CaseOutcome{Suite: suiteName, Name: c.Name, State: StatePending}
	log := s.log.WithFields(logrus.Fields{"suite": suiteName, "case": c.Name})
	start := time.Now()
	defer func() {
		outcome.Duration = time.Since(start)
	}()

	req, err := builder.Build(c.RequestSpec())
	if err != nil {
		log.WithError(err).Error("request build failed")
		outcome.Status = StatusErrored
		outcome.Err = err
		return outcome
	}
	outcome.State = StateRequestBuilt

	log.WithFields(logrus.Fields{"method": req.Method, "url": req.URL}).Info("dispatching request")
	resp, err := s.client.Do(req)
	if err != nil {
		log.WithError(err).Error("request failed")
		outcome.Status = StatusErrored
		outcome.Err = fmt.Errorf("dispatch %s %s: %w", req.Method, req.URL, err)
		return outcome
	}
	outcome.State = StateDispatched
	log.WithFields(logrus.Fields{
		"status":      resp.StatusCode,
		"duration_ms": resp.DurationMs(),
	}).Info("response received")

	extract.ExtractAll(resp, c.ExtractRules(), s.store, extract.WithLogger(log))
	outcome.State = StateExtracted

	engineOpts := []expect.Option{expect.WithBaseDir(baseDir), expect.WithLogger(log)}
	if s.dbClient != nil {
		engineOpts = append(engineOpts, expect.WithDB(s.dbClient))
	}
	pass, diags := expect.AssertAll(resp, c.Validate, engineOpts...)
	outcome.State = StateAsserted
	outcome.Diagnostics = diags

	if pass {
		outcome.Status = StatusPassed
	} else {
		outcome.Status = StatusFailed
	}
	return outcome
}
