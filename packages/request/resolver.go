package request

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/caseflow/caseflow/packages/builtin"
	"github.com/caseflow/caseflow/packages/vars"
)

var (
	placeholderPattern = regexp.MustCompile(`\{\{([^{}]+)\}\}`)
	funcCallPattern    = regexp.MustCompile(`^(\w+)\((.*)\)$`)
)

// Resolver substitutes {{name}} and {{func(args)}} placeholders using the
// session variable store and the builtin function registry.
type Resolver struct {
	store *vars.Store
	funcs *builtin.Registry
}

func NewResolver(store *vars.Store, funcs *builtin.Registry) *Resolver {
	if funcs == nil {
		funcs = builtin.NewRegistry()
	}
	return &Resolver{store: store, funcs: funcs}
}

// ResolveValue resolves placeholders anywhere inside v, recursing through
// maps and slices. A string that is exactly one placeholder resolves to the
// stored value with its type intact; placeholders embedded in longer strings
// interpolate as text.
func (r *Resolver) ResolveValue(v any) (any, error) {
	switch x := v.(type) {
	case string:
		return r.resolveString(x)
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			resolved, err := r.ResolveValue(val)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		}
		return out, nil
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			resolved, err := r.ResolveValue(val)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return v, nil
	}
}

// ResolveString resolves placeholders in s, always returning text.
func (r *Resolver) ResolveString(s string) (string, error) {
	v, err := r.resolveString(s)
	if err != nil {
		return "", err
	}
	return stringifyValue(v), nil
}

func (r *Resolver) resolveString(s string) (any, error) {
	// A whole-string placeholder keeps the stored value's type, so numeric
	// and structured variables survive substitution into JSON bodies.
	if m := placeholderPattern.FindStringSubmatch(s); m != nil && m[0] == s {
		return r.lookup(strings.TrimSpace(m[1]))
	}

	var firstErr error
	result := placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		expr := strings.TrimSpace(match[2 : len(match)-2])
		v, err := r.lookup(expr)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return match
		}
		return stringifyValue(v)
	})
	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

func (r *Resolver) lookup(expr string) (any, error) {
	if m := funcCallPattern.FindStringSubmatch(expr); m != nil && r.funcs.Has(m[1]) {
		var args []string
		if strings.TrimSpace(m[2]) != "" {
			for _, a := range strings.Split(m[2], ",") {
				args = append(args, strings.Trim(strings.TrimSpace(a), `"'`))
			}
		}
		out, err := r.funcs.Call(m[1], args)
		if err != nil {
			return nil, fmt.Errorf("resolve {{%s}}: %w", expr, err)
		}
		return out, nil
	}

	v, err := r.store.Get(expr)
	if err != nil {
		return nil, fmt.Errorf("resolve {{%s}}: %w", expr, err)
	}
	return v, nil
}

func stringifyValue(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	case float64:
		// JSON decoding delivers numbers as float64; keep integral values
		// free of a trailing ".0" and scientific notation.
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
