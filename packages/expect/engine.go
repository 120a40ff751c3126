package expect

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"

	"github.com/caseflow/caseflow/packages/db"
	"github.com/caseflow/caseflow/packages/httpclient"
)

// Diagnostic records the evaluation of one expected/actual pair. Every
// evaluated check produces one, pass or fail, so a run can always be audited.
type Diagnostic struct {
	Op       string
	Path     string
	Expected any
	Actual   any
	Passed   bool
	Message  string
}

func (d Diagnostic) String() string {
	status := "pass"
	if !d.Passed {
		status = "fail"
	}
	s := fmt.Sprintf("[%s] %s: expected %v, actual %v: %s", d.Op, d.Path, d.Expected, d.Actual, status)
	if d.Message != "" {
		s += " (" + d.Message + ")"
	}
	return s
}

// Engine evaluates assertion rules against one response. Unlike extraction, a
// rule referencing an absent path fails: an assertion exists to check response
// shape.
type Engine struct {
	response *httpclient.Response
	bodyJSON gjson.Result
	baseDir  string
	dbClient *db.Client
	log      logrus.FieldLogger
}

type Option func(*Engine)

// WithBaseDir sets the directory schema file paths resolve against.
func WithBaseDir(dir string) Option {
	return func(e *Engine) {
		e.baseDir = dir
	}
}

// WithDB sets the client used by db rules.
func WithDB(client *db.Client) Option {
	return func(e *Engine) {
		e.dbClient = client
	}
}

// WithLogger sets the diagnostics logger. Logging failures never change a
// result.
func WithLogger(log logrus.FieldLogger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

func NewEngine(resp *httpclient.Response, opts ...Option) *Engine {
	e := &Engine{
		response: resp,
	}
	if resp.IsJSON() {
		e.bodyJSON = gjson.ParseBytes(resp.Body)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AssertAll evaluates every rule in order and returns the logical AND of their
// results with one diagnostic per evaluated check. It never short-circuits, so
// a caller sees every failure in one run.
func (e *Engine) AssertAll(rules []Rule) (bool, []Diagnostic) {
	pass := true
	var diags []Diagnostic

	for _, rule := range rules {
		for _, d := range e.evaluate(rule) {
			if !d.Passed {
				pass = false
			}
			if e.log != nil {
				e.log.WithFields(logrus.Fields{
					"op":       d.Op,
					"path":     d.Path,
					"expected": d.Expected,
					"actual":   d.Actual,
					"passed":   d.Passed,
				}).Info("assertion evaluated")
			}
			diags = append(diags, d)
		}
	}

	return pass, diags
}

func (e *Engine) evaluate(rule Rule) []Diagnostic {
	switch rule.Op {
	case OpContains:
		return e.evalChecks(rule, e.containsCheck)
	case OpEq:
		return e.evalChecks(rule, e.eqCheck)
	case OpNe:
		return e.evalChecks(rule, e.neCheck)
	case OpSchema:
		return e.evalChecks(rule, e.schemaCheck)
	case OpDB:
		return []Diagnostic{e.dbCheck(rule)}
	default:
		return []Diagnostic{{
			Op:      rule.Op.String(),
			Passed:  false,
			Message: (&MalformedRuleError{Detail: fmt.Sprintf("unknown operator %s", rule.Op)}).Error(),
		}}
	}
}

type checkFunc func(path string, expected any) Diagnostic

func (e *Engine) evalChecks(rule Rule, check checkFunc) []Diagnostic {
	diags := make([]Diagnostic, 0, len(rule.Checks))
	for _, path := range rule.sortedPaths() {
		diags = append(diags, check(path, rule.Checks[path]))
	}
	return diags
}

var bracketIndex = regexp.MustCompile(`\[(\d+)\]`)

func toGJSONPath(path string) string {
	result := bracketIndex.ReplaceAllString(path, ".$1")
	result = strings.ReplaceAll(result, "[*]", ".#")
	return strings.TrimPrefix(result, ".")
}

// lookup resolves a key path against the response body. The second return
// reports whether the path exists at all; a present-but-null value exists.
func (e *Engine) lookup(path string) (any, bool) {
	if !e.bodyJSON.Exists() {
		return nil, false
	}

	// A bare trailing "[*]" means the array itself, not its length, which is
	// what gjson's "#" would yield as a final element.
	if parent, ok := strings.CutSuffix(path, "[*]"); ok {
		parent = strings.TrimSuffix(parent, ".")
		result := e.bodyJSON
		if parent != "" {
			result = e.bodyJSON.Get(toGJSONPath(parent))
		}
		if !result.Exists() || !result.IsArray() {
			return nil, false
		}
		return result.Value(), true
	}

	result := e.bodyJSON.Get(toGJSONPath(path))
	if !result.Exists() {
		return nil, false
	}
	return result.Value(), true
}

func (e *Engine) containsCheck(path string, expected any) Diagnostic {
	d := Diagnostic{Op: OpContains.String(), Path: path, Expected: expected}

	if path == StatusCodeKey {
		d.Actual = e.response.StatusCode
		d.Passed = numericEqual(expected, e.response.StatusCode)
		if !d.Passed {
			d.Message = fmt.Sprintf("status code %d does not match", e.response.StatusCode)
		}
		return d
	}

	actual, found := e.lookup(path)

	// The "none" sentinel flips the rule's meaning: assert absence/emptiness
	// rather than containment.
	if s, ok := expected.(string); ok && strings.EqualFold(s, NoneSentinel) {
		if !found {
			d.Actual = "<absent>"
			d.Passed = true
			return d
		}
		d.Actual = actual
		d.Passed = isEmptyValue(actual)
		if !d.Passed {
			d.Message = "expected absent or empty"
		}
		return d
	}

	if !found {
		d.Actual = "<path not found>"
		d.Passed = false
		d.Message = "path not found in response"
		return d
	}

	d.Actual = actual
	// Loose, string-coerced containment: payloads mix numeric and textual
	// transport forms.
	d.Passed = strings.Contains(stringify(actual), stringify(expected))
	if !d.Passed {
		d.Message = fmt.Sprintf("%q does not contain %q", stringify(actual), stringify(expected))
	}
	return d
}

func (e *Engine) eqCheck(path string, expected any) Diagnostic {
	d := Diagnostic{Op: OpEq.String(), Path: path, Expected: expected}

	actual, found := e.lookup(path)
	if !found {
		d.Actual = "<path not found>"
		d.Passed = false
		d.Message = "path not found in response"
		return d
	}

	d.Actual = actual
	d.Passed = canonicalEqual(actual, expected)
	if !d.Passed {
		d.Message = fmt.Sprintf("expected %v, got %v", expected, actual)
	}
	return d
}

func (e *Engine) neCheck(path string, expected any) Diagnostic {
	d := Diagnostic{Op: OpNe.String(), Path: path, Expected: expected}

	actual, found := e.lookup(path)
	if !found {
		d.Actual = "<path not found>"
		d.Passed = false
		d.Message = "path not found in response"
		return d
	}

	d.Actual = actual
	d.Passed = !canonicalEqual(actual, expected)
	if !d.Passed {
		d.Message = fmt.Sprintf("expected anything but %v", expected)
	}
	return d
}

func (e *Engine) schemaCheck(path string, expected any) Diagnostic {
	d := Diagnostic{Op: OpSchema.String(), Path: path, Expected: expected}

	actual, found := e.lookup(path)
	if !found {
		d.Actual = "<path not found>"
		d.Passed = false
		d.Message = "path not found in response"
		return d
	}
	d.Actual = actual

	schemaPath := fmt.Sprintf("%v", expected)
	if !filepath.IsAbs(schemaPath) && e.baseDir != "" {
		schemaPath = filepath.Join(e.baseDir, schemaPath)
	}

	schemaData, err := os.ReadFile(schemaPath)
	if err != nil {
		d.Passed = false
		d.Message = fmt.Sprintf("failed to read schema file: %v", err)
		return d
	}

	actualJSON, err := json.Marshal(actual)
	if err != nil {
		d.Passed = false
		d.Message = fmt.Sprintf("failed to marshal actual value: %v", err)
		return d
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaData),
		gojsonschema.NewBytesLoader(actualJSON),
	)
	if err != nil {
		d.Passed = false
		d.Message = fmt.Sprintf("schema validation error: %v", err)
		return d
	}

	if result.Valid() {
		d.Passed = true
		return d
	}

	var errs []string
	for _, desc := range result.Errors() {
		errs = append(errs, desc.String())
	}
	d.Passed = false
	d.Message = "schema validation failed: " + strings.Join(errs, "; ")
	return d
}

func (e *Engine) dbCheck(rule Rule) Diagnostic {
	d := Diagnostic{Op: OpDB.String(), Path: rule.Query, Expected: "at least one row"}

	if e.dbClient == nil {
		d.Passed = false
		d.Message = "no database configured for db rules"
		return d
	}

	result, err := e.dbClient.Query(rule.Query)
	if err != nil {
		d.Actual = "<query error>"
		d.Passed = false
		d.Message = err.Error()
		return d
	}

	d.Actual = fmt.Sprintf("%d rows", len(result.Rows))
	d.Passed = len(result.Rows) > 0
	if !d.Passed {
		d.Message = "query returned no rows"
	}
	return d
}

// AssertAll evaluates rules against resp with a one-shot engine.
func AssertAll(resp *httpclient.Response, rules []Rule, opts ...Option) (bool, []Diagnostic) {
	return NewEngine(resp, opts...).AssertAll(rules)
}
