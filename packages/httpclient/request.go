package httpclient

import (
	"net/http"
	"net/url"
	"time"
)

// Request is a fully resolved request: every placeholder has already been
// substituted by the builder before it reaches the client.
type Request struct {
	Method      string
	URL         string
	Headers     map[string]string
	QueryParams map[string]string
	CookieJar   map[string]string
	Body        []byte
	Form        map[string]string
	Timeout     time.Duration
}

func NewRequest(method, requestURL string) *Request {
	return &Request{
		Method:      method,
		URL:         requestURL,
		Headers:     make(map[string]string),
		QueryParams: make(map[string]string),
		CookieJar:   make(map[string]string),
	}
}

func (r *Request) SetHeader(key, value string) *Request {
	r.Headers[key] = value
	return r
}

func (r *Request) SetQueryParam(key, value string) *Request {
	r.QueryParams[key] = value
	return r
}

func (r *Request) SetCookie(name, value string) *Request {
	r.CookieJar[name] = value
	return r
}

func (r *Request) SetBody(body []byte) *Request {
	r.Body = body
	return r
}

func (r *Request) SetTimeout(d time.Duration) *Request {
	r.Timeout = d
	return r
}

// BuildURL returns the URL with query parameters appended.
func (r *Request) BuildURL() string {
	if len(r.QueryParams) == 0 {
		return r.URL
	}

	u, err := url.Parse(r.URL)
	if err != nil {
		return r.URL
	}

	q := u.Query()
	for k, v := range r.QueryParams {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (r *Request) Cookies() []*http.Cookie {
	cookies := make([]*http.Cookie, 0, len(r.CookieJar))
	for name, value := range r.CookieJar {
		cookies = append(cookies, &http.Cookie{Name: name, Value: value})
	}
	return cookies
}
