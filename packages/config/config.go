// Package config loads project-level settings from a JSON file.
//
// The CLI looks for .caseflow.config.json in the working directory (or the
// path given by --config). Flags win over file values, which win over the
// built-in defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

const DefaultFileName = ".caseflow.config.json"

// Config mirrors the JSON file. Pointer fields distinguish "unset" from a
// zero value so Merge knows what the file actually said.
type Config struct {
	BaseURL   string            `json:"base_url,omitempty"`
	Timeout   string            `json:"timeout,omitempty"`
	Retries   *int              `json:"retries,omitempty"`
	Insecure  *bool             `json:"insecure,omitempty"`
	Proxy     string            `json:"proxy,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
	ReportDir string            `json:"report_dir,omitempty"`
	Database  string            `json:"database,omitempty"`
	LogLevel  string            `json:"log_level,omitempty"`
	Output    string            `json:"output,omitempty"`

	Notify NotifyConfig `json:"notify,omitempty"`
}

// NotifyConfig holds notification destinations.
type NotifyConfig struct {
	Mode     string         `json:"mode,omitempty"`
	Slack    SlackConfig    `json:"slack,omitempty"`
	DingTalk DingTalkConfig `json:"dingtalk,omitempty"`
	Email    EmailConfig    `json:"email,omitempty"`
}

type SlackConfig struct {
	WebhookURL string `json:"webhook_url,omitempty"`
	Channel    string `json:"channel,omitempty"`
	Username   string `json:"username,omitempty"`
}

type DingTalkConfig struct {
	WebhookURL string `json:"webhook_url,omitempty"`
	Secret     string `json:"secret,omitempty"`
	AtAll      bool   `json:"at_all,omitempty"`
}

type EmailConfig struct {
	Host     string   `json:"host,omitempty"`
	Port     int      `json:"port,omitempty"`
	Username string   `json:"username,omitempty"`
	Password string   `json:"password,omitempty"`
	From     string   `json:"from,omitempty"`
	To       []string `json:"to,omitempty"`
	Subject  string   `json:"subject,omitempty"`
}

// Load reads a config file. A missing file at the default path is not an
// error; an explicitly named missing file is.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFileName
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) && !explicit {
		return &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &c, nil
}

func (c *Config) validate() error {
	if c.Timeout != "" {
		if _, err := time.ParseDuration(c.Timeout); err != nil {
			return fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
		}
	}
	if c.Retries != nil && *c.Retries < 0 {
		return fmt.Errorf("retries must not be negative")
	}
	return nil
}

// TimeoutDuration returns the parsed timeout, or fallback when unset.
func (c *Config) TimeoutDuration(fallback time.Duration) time.Duration {
	if c.Timeout == "" {
		return fallback
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return fallback
	}
	return d
}

// Merge overlays other on top of c: set fields in other win.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}
	if other.BaseURL != "" {
		c.BaseURL = other.BaseURL
	}
	if other.Timeout != "" {
		c.Timeout = other.Timeout
	}
	if other.Retries != nil {
		c.Retries = other.Retries
	}
	if other.Insecure != nil {
		c.Insecure = other.Insecure
	}
	if other.Proxy != "" {
		c.Proxy = other.Proxy
	}
	for k, v := range other.Headers {
		if c.Headers == nil {
			c.Headers = make(map[string]string)
		}
		c.Headers[k] = v
	}
	if other.ReportDir != "" {
		c.ReportDir = other.ReportDir
	}
	if other.Database != "" {
		c.Database = other.Database
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.Output != "" {
		c.Output = other.Output
	}
	if other.Notify.Mode != "" {
		c.Notify.Mode = other.Notify.Mode
	}
	if other.Notify.Slack.WebhookURL != "" {
		c.Notify.Slack = other.Notify.Slack
	}
	if other.Notify.DingTalk.WebhookURL != "" {
		c.Notify.DingTalk = other.Notify.DingTalk
	}
	if other.Notify.Email.Host != "" {
		c.Notify.Email = other.Notify.Email
	}
}

// IntPtr returns a pointer to v, for building configs in code.
func IntPtr(v int) *int { return &v }

// BoolPtr returns a pointer to v.
func BoolPtr(v bool) *bool { return &v }
