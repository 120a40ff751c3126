package expect

import (
	"fmt"
	"sort"
)

// Op is an assertion operator. The set is closed: AssertAll matches over it
// exhaustively, so adding an operator is a compile-time-checked extension.
type Op int

const (
	// OpContains asserts the string form of the expected value is a substring
	// of the actual value, or (with the "none" sentinel) that the value is
	// absent or empty.
	OpContains Op = iota
	// OpEq asserts deep structural equality in canonical form.
	OpEq
	// OpNe asserts canonical inequality.
	OpNe
	// OpSchema asserts the value at a path validates against a JSON Schema file.
	OpSchema
	// OpDB asserts a SQL query returns at least one row.
	OpDB
)

var opNames = map[Op]string{
	OpContains: "contains",
	OpEq:       "eq",
	OpNe:       "ne",
	OpSchema:   "schema",
	OpDB:       "db",
}

func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return fmt.Sprintf("op(%d)", int(o))
}

// ParseOp maps an operator tag from a suite file to its Op. Unknown tags are a
// configuration defect, not a test failure.
func ParseOp(tag string) (Op, error) {
	for op, name := range opNames {
		if name == tag {
			return op, nil
		}
	}
	return 0, &MalformedRuleError{Detail: fmt.Sprintf("unknown assertion operator %q", tag)}
}

// MalformedRuleError marks a rule whose operator or shape is invalid. It aborts
// only the offending case.
type MalformedRuleError struct {
	Detail string
}

func (e *MalformedRuleError) Error() string {
	return "malformed assertion rule: " + e.Detail
}

// NoneSentinel in a contains rule asserts absence instead of containment. The
// two behaviors share one operator tag in suite files, so the check is an
// explicit sentinel comparison, never inferred from the value's type.
const NoneSentinel = "none"

// StatusCodeKey in a contains rule compares against the response status code
// instead of navigating the body.
const StatusCodeKey = "status_code"

// Rule is one assertion: an operator plus its expected-value mapping from
// response key paths to expected values. Db rules carry a query instead.
type Rule struct {
	Op     Op
	Checks map[string]any
	Query  string
}

// Validate reports a MalformedRuleError if the rule's shape does not fit its
// operator.
func (r *Rule) Validate() error {
	switch r.Op {
	case OpContains, OpEq, OpNe, OpSchema:
		if len(r.Checks) == 0 {
			return &MalformedRuleError{Detail: fmt.Sprintf("%s rule has no expected values", r.Op)}
		}
	case OpDB:
		if r.Query == "" {
			return &MalformedRuleError{Detail: "db rule has no query"}
		}
	default:
		return &MalformedRuleError{Detail: fmt.Sprintf("unknown operator %s", r.Op)}
	}
	return nil
}

// sortedPaths returns the rule's check paths in a stable order so diagnostics
// come out deterministically.
func (r *Rule) sortedPaths() []string {
	paths := make([]string, 0, len(r.Checks))
	for p := range r.Checks {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
