// Package notify delivers session summaries to chat webhooks.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/caseflow/caseflow/packages/runner"
)

// Mode controls when a manager forwards summaries.
type Mode string

const (
	NotifyAlways    Mode = "always"
	NotifyOnFailure Mode = "failure"
	NotifyOnSuccess Mode = "success"
)

// ParseMode validates a mode string from config or flags.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case NotifyAlways, NotifyOnFailure, NotifyOnSuccess:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown notify mode %q (want always, failure or success)", s)
	}
}

// Notifier delivers one summary to one destination.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, summary *runner.Summary) error
}

// Manager fans a summary out to its notifiers when the mode matches. It
// implements runner.Notifier.
type Manager struct {
	notifiers []Notifier
	mode      Mode
	timeout   time.Duration
	log       logrus.FieldLogger
}

type ManagerOption func(*Manager)

// WithMode sets when notifications fire. Default is failure only.
func WithMode(mode Mode) ManagerOption {
	return func(m *Manager) { m.mode = mode }
}

// WithTimeout bounds each delivery attempt.
func WithTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) { m.timeout = d }
}

// WithLogger sets the delivery logger.
func WithLogger(log logrus.FieldLogger) ManagerOption {
	return func(m *Manager) { m.log = log }
}

func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		mode:    NotifyOnFailure,
		timeout: 10 * time.Second,
		log:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Add registers a destination.
func (m *Manager) Add(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// Len reports how many destinations are registered.
func (m *Manager) Len() int {
	return len(m.notifiers)
}

// Notify forwards the summary to every destination if the mode matches.
// Failed deliveries are joined into one error; one bad webhook never blocks
// the others.
func (m *Manager) Notify(summary *runner.Summary) error {
	if !m.shouldNotify(summary) {
		return nil
	}

	var errs []error
	for _, n := range m.notifiers {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		err := n.Notify(ctx, summary)
		cancel()
		if err != nil {
			m.log.WithError(err).WithField("notifier", n.Name()).Warn("notification failed")
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
			continue
		}
		m.log.WithField("notifier", n.Name()).Debug("notification sent")
	}
	return errors.Join(errs...)
}

func (m *Manager) shouldNotify(summary *runner.Summary) bool {
	switch m.mode {
	case NotifyAlways:
		return true
	case NotifyOnFailure:
		return !summary.OK()
	case NotifyOnSuccess:
		return summary.OK()
	default:
		return false
	}
}

// summaryText renders the shared message body used by text-based notifiers.
func summaryText(summary *runner.Summary) string {
	msg := summary.Message()
	for _, o := range summary.Outcomes {
		switch o.Status {
		case runner.StatusFailed:
			msg += fmt.Sprintf("\n✗ %s / %s", o.Suite, o.Name)
		case runner.StatusErrored:
			msg += fmt.Sprintf("\n! %s / %s: %v", o.Suite, o.Name, o.Err)
		}
	}
	return msg
}
