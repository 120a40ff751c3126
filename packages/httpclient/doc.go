// Package httpclient wraps net/http with the transport policy the runner
// delegates to it: timeouts, redirects, TLS validation, proxying, and retries.
package httpclient
