package extract

import (
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/caseflow/caseflow/packages/httpclient"
	"github.com/caseflow/caseflow/packages/vars"
)

// RawBodyPath stores the entire parsed response body under the destination
// variable instead of navigating into it.
const RawBodyPath = "@body"

// Rule pulls one value out of a response and names it. Paths use dotted keys
// with bracketed indices, e.g. "data.goodsList[0].goodsId". A rule with All set
// collects every value at a repeating path ("goodsList[*].goodsId") into a
// single ordered slice.
//
// A Regex rule matches Path as a regular expression against the raw body text
// instead, for responses that are not JSON. The first capture group is the
// extracted value (the whole match when there are no groups); All collects
// every match.
type Rule struct {
	Var   string
	Path  string
	All   bool
	Regex bool
}

var bracketIndex = regexp.MustCompile(`\[(\d+)\]`)

// toGJSONPath converts the rule path syntax to gjson syntax:
// "a.b[0].c" -> "a.b.0.c", "a[*].b" -> "a.#.b".
func toGJSONPath(path string) string {
	result := bracketIndex.ReplaceAllString(path, ".$1")
	result = strings.ReplaceAll(result, "[*]", ".#")
	return strings.TrimPrefix(result, ".")
}

// Extractor applies extraction rules to one response. Missing paths are
// tolerated: chaining variables are best-effort, and an unset destination only
// surfaces later as a NotFoundError if some case actually references it.
type Extractor struct {
	response *httpclient.Response
	bodyJSON gjson.Result
	log      logrus.FieldLogger
}

type Option func(*Extractor)

// WithLogger sets the diagnostics logger. Logging is fire-and-forget and never
// affects extraction results.
func WithLogger(log logrus.FieldLogger) Option {
	return func(e *Extractor) {
		e.log = log
	}
}

func NewExtractor(resp *httpclient.Response, opts ...Option) *Extractor {
	e := &Extractor{
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

// Extract resolves each rule against the response and writes the results into
// the store. It returns the number of rules that produced a value.
func (e *Extractor) Extract(rules []Rule, store *vars.Store) int {
	applied := 0
	extracted := logrus.Fields{}

	for _, rule := range rules {
		value, ok := e.resolve(rule)
		if !ok {
			if e.log != nil {
				e.log.WithField("path", rule.Path).Debugf("extraction found nothing for %q", rule.Var)
			}
			continue
		}
		store.Set(rule.Var, value)
		extracted[rule.Var] = value
		applied++
	}

	if e.log != nil && applied > 0 {
		e.log.WithFields(extracted).Info("extracted variables")
	}
	return applied
}

func (e *Extractor) resolve(rule Rule) (any, bool) {
	if rule.Regex {
		return e.resolveRegex(rule)
	}

	if rule.Path == RawBodyPath {
		if e.bodyJSON.Exists() {
			return e.bodyJSON.Value(), true
		}
		return e.response.BodyString(), true
	}

	if !e.bodyJSON.Exists() {
		return nil, false
	}

	// A bare trailing "[*]" selects the array's elements. It cannot go
	// through toGJSONPath: gjson's "#" as a final element returns the
	// array length, not its contents.
	if parent, ok := strings.CutSuffix(rule.Path, "[*]"); ok {
		parent = strings.TrimSuffix(parent, ".")
		result := e.bodyJSON
		if parent != "" {
			result = e.bodyJSON.Get(toGJSONPath(parent))
		}
		if !result.Exists() || !result.IsArray() {
			return nil, false
		}
		items := result.Array()
		values := make([]any, 0, len(items))
		for _, item := range items {
			values = append(values, item.Value())
		}
		return values, true
	}

	result := e.bodyJSON.Get(toGJSONPath(rule.Path))
	if !result.Exists() {
		return nil, false
	}

	if rule.All {
		if result.IsArray() {
			values := make([]any, 0, len(result.Array()))
			for _, item := range result.Array() {
				values = append(values, item.Value())
			}
			return values, true
		}
		return []any{result.Value()}, true
	}

	return result.Value(), true
}

// resolveRegex matches the rule pattern against the raw body text. Like the
// structured form it is best-effort: no match, and even a pattern that does
// not compile, just skips the rule.
func (e *Extractor) resolveRegex(rule Rule) (any, bool) {
	re, err := regexp.Compile(rule.Path)
	if err != nil {
		if e.log != nil {
			e.log.WithField("pattern", rule.Path).WithError(err).Warnf("bad extraction pattern for %q", rule.Var)
		}
		return nil, false
	}

	body := e.response.BodyString()
	if rule.All {
		matches := re.FindAllStringSubmatch(body, -1)
		if len(matches) == 0 {
			return nil, false
		}
		values := make([]any, 0, len(matches))
		for _, m := range matches {
			values = append(values, submatchValue(m))
		}
		return values, true
	}

	m := re.FindStringSubmatch(body)
	if m == nil {
		return nil, false
	}
	return submatchValue(m), true
}

func submatchValue(m []string) string {
	if len(m) > 1 {
		return m[1]
	}
	return m[0]
}

// ExtractAll runs every rule against the response and stores the results.
func ExtractAll(resp *httpclient.Response, rules []Rule, store *vars.Store, opts ...Option) int {
	return NewExtractor(resp, opts...).Extract(rules, store)
}
