// Package suite loads declarative test suites from YAML files.
package suite

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/caseflow/caseflow/packages/expect"
	"github.com/caseflow/caseflow/packages/extract"
	"github.com/caseflow/caseflow/packages/request"
)

// Suite is one YAML file: shared request settings plus an ordered list of
// cases. Order matters; later cases consume variables extracted by earlier
// ones.
type Suite struct {
	Name    string            `yaml:"name"`
	BaseURL string            `yaml:"base_url"`
	Headers map[string]string `yaml:"headers"`
	Cookies map[string]string `yaml:"cookies"`
	Cases   []Case            `yaml:"cases"`

	// Path is the file the suite was loaded from, used to resolve schema
	// references relative to it.
	Path string `yaml:"-"`
}

// Case is one request/extract/validate step.
type Case struct {
	Name        string            `yaml:"name"`
	Method      string            `yaml:"method"`
	URL         string            `yaml:"url"`
	Headers     map[string]string `yaml:"headers"`
	Params      map[string]any    `yaml:"params"`
	Data        map[string]any    `yaml:"data"`
	JSON        any               `yaml:"json"`
	Extract       map[string]string `yaml:"extract"`
	ExtractList   map[string]string `yaml:"extract_list"`
	ExtractRe     map[string]string `yaml:"extract_re"`
	ExtractReList map[string]string `yaml:"extract_re_list"`
	Validate    RuleSet           `yaml:"validate"`
	Skip        bool              `yaml:"skip"`
	Timeout     Duration          `yaml:"timeout"`
}

// RequestSpec maps the case onto the request builder's input.
func (c Case) RequestSpec() request.Spec {
	return request.Spec{
		Method:  c.Method,
		URL:     c.URL,
		Headers: c.Headers,
		Params:  c.Params,
		Data:    c.Data,
		JSON:    c.JSON,
		Timeout: time.Duration(c.Timeout),
	}
}

// ExtractRules flattens the case's extract maps into engine rules: structured
// paths first, then regex patterns, each group sorted by variable name for
// stable behavior.
func (c Case) ExtractRules() []extract.Rule {
	rules := make([]extract.Rule, 0, len(c.Extract)+len(c.ExtractList)+len(c.ExtractRe)+len(c.ExtractReList))
	for _, name := range sortedKeys(c.Extract) {
		rules = append(rules, extract.Rule{Var: name, Path: c.Extract[name]})
	}
	for _, name := range sortedKeys(c.ExtractList) {
		rules = append(rules, extract.Rule{Var: name, Path: c.ExtractList[name], All: true})
	}
	for _, name := range sortedKeys(c.ExtractRe) {
		rules = append(rules, extract.Rule{Var: name, Path: c.ExtractRe[name], Regex: true})
	}
	for _, name := range sortedKeys(c.ExtractReList) {
		rules = append(rules, extract.Rule{Var: name, Path: c.ExtractReList[name], Regex: true, All: true})
	}
	return rules
}

// RuleSet decodes the YAML validate block: a sequence of single-key maps
// where the key is the operator tag.
//
//	validate:
//	  - contains: {msg: ok, error_code: none}
//	  - eq: {code: 1}
//	  - db: SELECT id FROM orders WHERE state = 'paid'
type RuleSet []expect.Rule

func (rs *RuleSet) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		return &expect.MalformedRuleError{Detail: "validate must be a list of operator entries"}
	}

	for _, item := range node.Content {
		if item.Kind != yaml.MappingNode || len(item.Content) != 2 {
			return &expect.MalformedRuleError{Detail: "each validate entry must be a single operator mapping"}
		}

		var tag string
		if err := item.Content[0].Decode(&tag); err != nil {
			return &expect.MalformedRuleError{Detail: fmt.Sprintf("bad operator key: %v", err)}
		}
		op, err := expect.ParseOp(tag)
		if err != nil {
			return err
		}

		rule := expect.Rule{Op: op}
		if op == expect.OpDB {
			if err := item.Content[1].Decode(&rule.Query); err != nil {
				return &expect.MalformedRuleError{Detail: fmt.Sprintf("db entry must be a query string: %v", err)}
			}
		} else {
			if err := item.Content[1].Decode(&rule.Checks); err != nil {
				return &expect.MalformedRuleError{Detail: fmt.Sprintf("%s entry must be a mapping: %v", tag, err)}
			}
		}
		if err := rule.Validate(); err != nil {
			return err
		}

		*rs = append(*rs, rule)
	}
	return nil
}

// Duration accepts YAML values like "5s" or "1m30s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Load reads and validates a suite file.
func Load(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read suite file: %w", err)
	}

	var s Suite
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	s.Path = path
	if s.Name == "" {
		s.Name = strippedName(path)
	}

	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &s, nil
}

// LoadDir loads every .yaml/.yml file directly under dir, sorted by name.
func LoadDir(dir string) ([]*Suite, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read suite directory: %w", err)
	}

	var suites []*Suite
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		s, err := Load(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		suites = append(suites, s)
	}
	if len(suites) == 0 {
		return nil, fmt.Errorf("no suite files found in %s", dir)
	}
	return suites, nil
}

func (s *Suite) validate() error {
	if len(s.Cases) == 0 {
		return fmt.Errorf("suite has no cases")
	}
	seen := make(map[string]bool, len(s.Cases))
	for i, c := range s.Cases {
		if c.Name == "" {
			return fmt.Errorf("case %d has no name", i+1)
		}
		if seen[c.Name] {
			return fmt.Errorf("duplicate case name %q", c.Name)
		}
		seen[c.Name] = true
		if c.URL == "" {
			return fmt.Errorf("case %q has no url", c.Name)
		}
		if len(c.Data) > 0 && c.JSON != nil {
			return fmt.Errorf("case %q sets both data and json", c.Name)
		}
	}
	return nil
}

func strippedName(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
