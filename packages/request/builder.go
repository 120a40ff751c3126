package request

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caseflow/caseflow/packages/builtin"
	"github.com/caseflow/caseflow/packages/httpclient"
	"github.com/caseflow/caseflow/packages/vars"
)

// Spec is the declarative shape of one request before resolution. Exactly one
// of Data and JSON should carry a body; Params always go on the query string.
type Spec struct {
	Method  string
	URL     string
	Headers map[string]string
	Params  map[string]any
	Data    map[string]any
	JSON    any
	Timeout time.Duration
}

// Builder turns request specs into ready-to-send httpclient requests,
// resolving every placeholder against the session store first. An unset
// variable aborts the build so a case never fires with a literal {{name}}
// in its payload.
type Builder struct {
	resolver *Resolver
	baseURL  string
	headers  map[string]string
	cookies  map[string]string
}

type BuilderOption func(*Builder)

// WithBaseURL sets the prefix joined onto relative case URLs.
func WithBaseURL(base string) BuilderOption {
	return func(b *Builder) {
		b.baseURL = strings.TrimRight(base, "/")
	}
}

// WithHeaders sets headers applied to every built request. Case headers win
// on conflict.
func WithHeaders(headers map[string]string) BuilderOption {
	return func(b *Builder) {
		b.headers = headers
	}
}

// WithCookies sets cookies applied to every built request.
func WithCookies(cookies map[string]string) BuilderOption {
	return func(b *Builder) {
		b.cookies = cookies
	}
}

// WithFunctions overrides the builtin function registry.
func WithFunctions(funcs *builtin.Registry) BuilderOption {
	return func(b *Builder) {
		b.resolver.funcs = funcs
	}
}

func NewBuilder(store *vars.Store, opts ...BuilderOption) *Builder {
	b := &Builder{
		resolver: NewResolver(store, nil),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build resolves spec into a concrete request.
func (b *Builder) Build(spec Spec) (*httpclient.Request, error) {
	rawURL, err := b.resolver.ResolveString(spec.URL)
	if err != nil {
		return nil, err
	}
	fullURL, err := b.joinURL(rawURL)
	if err != nil {
		return nil, err
	}

	method := strings.ToUpper(strings.TrimSpace(spec.Method))
	if method == "" {
		method = "GET"
	}

	req := httpclient.NewRequest(method, fullURL)
	if spec.Timeout > 0 {
		req.SetTimeout(spec.Timeout)
	}

	for name, value := range b.headers {
		req.SetHeader(name, value)
	}
	for name, raw := range spec.Headers {
		value, err := b.resolver.ResolveString(raw)
		if err != nil {
			return nil, err
		}
		req.SetHeader(name, value)
	}

	for name, raw := range b.cookies {
		value, err := b.resolver.ResolveString(raw)
		if err != nil {
			return nil, err
		}
		req.SetCookie(name, value)
	}

	for name, raw := range spec.Params {
		value, err := b.resolver.ResolveValue(raw)
		if err != nil {
			return nil, err
		}
		req.SetQueryParam(name, stringifyValue(value))
	}

	if err := b.applyBody(req, spec); err != nil {
		return nil, err
	}

	return req, nil
}

func (b *Builder) applyBody(req *httpclient.Request, spec Spec) error {
	if len(spec.Data) > 0 && spec.JSON != nil {
		return fmt.Errorf("case sets both form data and a JSON body")
	}

	if len(spec.Data) > 0 {
		form := make(map[string]string, len(spec.Data))
		for name, raw := range spec.Data {
			value, err := b.resolver.ResolveValue(raw)
			if err != nil {
				return err
			}
			form[name] = stringifyValue(value)
		}
		req.Form = form
		return nil
	}

	if spec.JSON != nil {
		resolved, err := b.resolver.ResolveValue(spec.JSON)
		if err != nil {
			return err
		}
		body, err := json.Marshal(resolved)
		if err != nil {
			return fmt.Errorf("marshal JSON body: %w", err)
		}
		req.SetBody(body)
		req.SetHeader("Content-Type", "application/json")
	}

	return nil
}

// joinURL prefixes relative URLs with the base URL and validates the result.
func (b *Builder) joinURL(raw string) (string, error) {
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		if b.baseURL == "" {
			return "", fmt.Errorf("relative URL %q with no base URL configured", raw)
		}
		raw = b.baseURL + "/" + strings.TrimLeft(raw, "/")
	}
	if _, err := url.Parse(raw); err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if err := httpclient.ValidateURL(raw); err != nil {
		return "", err
	}
	return raw, nil
}
