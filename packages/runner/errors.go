package runner

import (
	"errors"
	"net"
	"net/url"

	"github.com/caseflow/caseflow/packages/expect"
	"github.com/caseflow/caseflow/packages/vars"
)

// ErrorKind classifies why a case errored, for reporting.
type ErrorKind string

const (
	KindVariableNotFound ErrorKind = "variable not found"
	KindTransport        ErrorKind = "transport failure"
	KindMalformedRule    ErrorKind = "malformed rule"
	KindUnknown          ErrorKind = "error"
)

// Classify maps an outcome error onto its kind.
func Classify(err error) ErrorKind {
	if err == nil {
		return ""
	}
	if vars.IsNotFound(err) {
		return KindVariableNotFound
	}
	var malformed *expect.MalformedRuleError
	if errors.As(err, &malformed) {
		return KindMalformedRule
	}
	var netErr net.Error
	var urlErr *url.Error
	if errors.As(err, &netErr) || errors.As(err, &urlErr) {
		return KindTransport
	}
	return KindUnknown
}
