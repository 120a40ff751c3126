package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/caseflow/caseflow/packages/runner"
)

// SlackNotifier posts summaries to a Slack incoming webhook.
type SlackNotifier struct {
	webhookURL string
	channel    string
	username   string
	client     *http.Client
}

type SlackOption func(*SlackNotifier)

// WithSlackChannel overrides the webhook's default channel.
func WithSlackChannel(channel string) SlackOption {
	return func(n *SlackNotifier) { n.channel = channel }
}

// WithSlackUsername overrides the sender name.
func WithSlackUsername(username string) SlackOption {
	return func(n *SlackNotifier) { n.username = username }
}

// WithSlackClient overrides the HTTP client.
func WithSlackClient(client *http.Client) SlackOption {
	return func(n *SlackNotifier) { n.client = client }
}

func NewSlack(webhookURL string, opts ...SlackOption) *SlackNotifier {
	n := &SlackNotifier{
		webhookURL: webhookURL,
		username:   "caseflow",
		client:     http.DefaultClient,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *SlackNotifier) Name() string { return "slack" }

type slackPayload struct {
	Channel     string            `json:"channel,omitempty"`
	Username    string            `json:"username,omitempty"`
	Text        string            `json:"text"`
	Attachments []slackAttachment `json:"attachments,omitempty"`
}

type slackAttachment struct {
	Color string `json:"color"`
	Text  string `json:"text"`
}

func (n *SlackNotifier) Notify(ctx context.Context, summary *runner.Summary) error {
	color := "good"
	if !summary.OK() {
		color = "danger"
	}

	payload := slackPayload{
		Channel:  n.channel,
		Username: n.username,
		Text:     "API test session finished",
		Attachments: []slackAttachment{
			{Color: color, Text: summaryText(summary)},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("slack webhook returned %d: %s", resp.StatusCode, msg)
	}
	return nil
}
