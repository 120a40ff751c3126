package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/caseflow/caseflow/packages/runner"
)

// DingTalkNotifier posts summaries to a DingTalk group robot webhook. When a
// secret is set, requests carry the timestamp/sign pair DingTalk's security
// setting requires.
type DingTalkNotifier struct {
	webhookURL string
	secret     string
	atAll      bool
	client     *http.Client
	now        func() time.Time
}

type DingTalkOption func(*DingTalkNotifier)

// WithDingTalkSecret enables HMAC request signing.
func WithDingTalkSecret(secret string) DingTalkOption {
	return func(n *DingTalkNotifier) { n.secret = secret }
}

// WithDingTalkAtAll mentions everyone in the group.
func WithDingTalkAtAll(atAll bool) DingTalkOption {
	return func(n *DingTalkNotifier) { n.atAll = atAll }
}

// WithDingTalkClient overrides the HTTP client.
func WithDingTalkClient(client *http.Client) DingTalkOption {
	return func(n *DingTalkNotifier) { n.client = client }
}

func NewDingTalk(webhookURL string, opts ...DingTalkOption) *DingTalkNotifier {
	n := &DingTalkNotifier{
		webhookURL: webhookURL,
		client:     http.DefaultClient,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *DingTalkNotifier) Name() string { return "dingtalk" }

type dingTalkPayload struct {
	MsgType string `json:"msgtype"`
	Text    struct {
		Content string `json:"content"`
	} `json:"text"`
	At struct {
		IsAtAll bool `json:"isAtAll"`
	} `json:"at"`
}

type dingTalkResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

func (n *DingTalkNotifier) Notify(ctx context.Context, summary *runner.Summary) error {
	var payload dingTalkPayload
	payload.MsgType = "text"
	payload.Text.Content = summaryText(summary)
	payload.At.IsAtAll = n.atAll

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal dingtalk payload: %w", err)
	}

	target := n.webhookURL
	if n.secret != "" {
		timestamp := n.now().UnixMilli()
		sep := "?"
		if u, err := url.Parse(target); err == nil && u.RawQuery != "" {
			sep = "&"
		}
		target += fmt.Sprintf("%stimestamp=%d&sign=%s", sep, timestamp, n.sign(timestamp))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build dingtalk request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post to dingtalk: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("dingtalk webhook returned %d: %s", resp.StatusCode, msg)
	}

	var result dingTalkResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		// DingTalk always answers with JSON; anything else is a proxy or
		// misconfigured URL.
		return fmt.Errorf("decode dingtalk response: %w", err)
	}
	if result.ErrCode != 0 {
		return fmt.Errorf("dingtalk rejected message: %d %s", result.ErrCode, result.ErrMsg)
	}
	return nil
}

// sign computes the webhook signature: base64(hmac-sha256("<ts>\n<secret>"))
// with the secret as key, URL-encoded.
func (n *DingTalkNotifier) sign(timestamp int64) string {
	payload := strconv.FormatInt(timestamp, 10) + "\n" + n.secret
	mac := hmac.New(sha256.New, []byte(n.secret))
	mac.Write([]byte(payload))
	return url.QueryEscape(base64.StdEncoding.EncodeToString(mac.Sum(nil)))
}
