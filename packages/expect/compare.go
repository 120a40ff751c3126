package expect

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
)

// canonicalEqual compares two values after collapsing transport differences:
// all numeric kinds compare by float64 value, arrays compare element-wise in
// order, maps compare key-wise, and anything else falls back to string form.
func canonicalEqual(actual, expected any) bool {
	if actual == nil || expected == nil {
		return actual == expected
	}

	// Numbers compare by value, and a genuine number on either side may
	// absorb a numeric string from the other (YAML ints against JSON string
	// codes). Two strings never compare numerically: "0" and "0000" are
	// different values.
	if af, aok := genuineNumber(actual); aok {
		if ef, eok := toFloat64(expected); eok {
			return af == ef
		}
		return false
	}
	if ef, eok := genuineNumber(expected); eok {
		if af, aok := toFloat64(actual); aok {
			return af == ef
		}
		return false
	}

	av := reflect.ValueOf(actual)
	ev := reflect.ValueOf(expected)

	if av.Kind() == reflect.Slice && ev.Kind() == reflect.Slice {
		if av.Len() != ev.Len() {
			return false
		}
		for i := 0; i < av.Len(); i++ {
			if !canonicalEqual(av.Index(i).Interface(), ev.Index(i).Interface()) {
				return false
			}
		}
		return true
	}

	if av.Kind() == reflect.Map && ev.Kind() == reflect.Map {
		if av.Len() != ev.Len() {
			return false
		}
		for _, key := range ev.MapKeys() {
			aval := av.MapIndex(key)
			if !aval.IsValid() {
				return false
			}
			if !canonicalEqual(aval.Interface(), ev.MapIndex(key).Interface()) {
				return false
			}
		}
		return true
	}

	if reflect.DeepEqual(actual, expected) {
		return true
	}

	return stringify(actual) == stringify(expected)
}

func numericEqual(expected any, actual int) bool {
	ef, ok := toFloat64(expected)
	if !ok {
		return false
	}
	return ef == float64(actual)
}

// genuineNumber reports the float64 value of v only when v is a numeric type,
// never by parsing a string.
func genuineNumber(v any) (float64, bool) {
	if _, isString := v.(string); isString {
		return 0, false
	}
	return toFloat64(v)
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	case map[string]any, []any:
		b, err := json.Marshal(s)
		if err != nil {
			return fmt.Sprintf("%v", s)
		}
		return string(b)
	case float64:
		// Trim the ".0" JSON decoding adds to integral numbers.
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func isEmptyValue(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case []any:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	default:
		return false
	}
}
