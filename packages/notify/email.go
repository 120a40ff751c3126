package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/caseflow/caseflow/packages/runner"
)

// EmailNotifier sends the summary as a plain-text mail over SMTP.
type EmailNotifier struct {
	host     string
	port     int
	username string
	password string
	from     string
	to       []string
	subject  string

	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

type EmailOption func(*EmailNotifier)

// WithEmailAuth enables SMTP plain authentication.
func WithEmailAuth(username, password string) EmailOption {
	return func(n *EmailNotifier) {
		n.username = username
		n.password = password
	}
}

// WithEmailSubject overrides the subject prefix.
func WithEmailSubject(subject string) EmailOption {
	return func(n *EmailNotifier) { n.subject = subject }
}

func NewEmail(host string, port int, from string, to []string, opts ...EmailOption) *EmailNotifier {
	n := &EmailNotifier{
		host:    host,
		port:    port,
		from:    from,
		to:      to,
		subject: "API test report",
		send:    smtp.SendMail,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *EmailNotifier) Name() string { return "email" }

// Notify builds and sends the mail. smtp.SendMail blocks; the context
// deadline is not threaded through because net/smtp offers no hook for it,
// and the manager's timeout still bounds the session-visible wait.
func (n *EmailNotifier) Notify(ctx context.Context, summary *runner.Summary) error {
	verdict := "PASSED"
	if !summary.OK() {
		verdict = "FAILED"
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", n.from)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(n.to, ", "))
	fmt.Fprintf(&msg, "Subject: %s - %s\r\n", n.subject, verdict)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(summaryText(summary))
	msg.WriteString("\r\n")

	var auth smtp.Auth
	if n.username != "" {
		auth = smtp.PlainAuth("", n.username, n.password, n.host)
	}

	addr := fmt.Sprintf("%s:%d", n.host, n.port)
	if err := n.send(addr, auth, n.from, n.to, []byte(msg.String())); err != nil {
		return fmt.Errorf("send mail via %s: %w", addr, err)
	}
	return nil
}
