package builtin

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Func is a callable available inside placeholder expressions, e.g.
// {{uuid()}} or {{md5(secret)}}.
type Func func(args []string) (string, error)

// Registry maps function names to implementations. The zero value is not
// usable; construct with NewRegistry.
type Registry struct {
	funcs map[string]Func
}

// NewRegistry returns a registry preloaded with the standard functions.
func NewRegistry() *Registry {
	r := &Registry{funcs: make(map[string]Func)}

	r.Register("uuid", func(args []string) (string, error) {
		return uuid.NewString(), nil
	})
	r.Register("timestamp", func(args []string) (string, error) {
		return strconv.FormatInt(time.Now().Unix(), 10), nil
	})
	r.Register("timestamp_ms", func(args []string) (string, error) {
		return strconv.FormatInt(time.Now().UnixMilli(), 10), nil
	})
	r.Register("date", func(args []string) (string, error) {
		layout := "2006-01-02"
		if len(args) > 0 && args[0] != "" {
			layout = args[0]
		}
		return time.Now().Format(layout), nil
	})
	r.Register("md5", requireArgs(1, func(args []string) (string, error) {
		sum := md5.Sum([]byte(args[0]))
		return hex.EncodeToString(sum[:]), nil
	}))
	r.Register("sha256", requireArgs(1, func(args []string) (string, error) {
		sum := sha256.Sum256([]byte(args[0]))
		return hex.EncodeToString(sum[:]), nil
	}))
	r.Register("base64", requireArgs(1, func(args []string) (string, error) {
		return base64.StdEncoding.EncodeToString([]byte(args[0])), nil
	}))
	r.Register("random_string", func(args []string) (string, error) {
		n := 16
		if len(args) > 0 {
			parsed, err := strconv.Atoi(args[0])
			if err != nil || parsed < 1 {
				return "", fmt.Errorf("random_string: invalid length %q", args[0])
			}
			n = parsed
		}
		return randomString(n), nil
	})
	r.Register("random_int", func(args []string) (string, error) {
		lo, hi := 0, 100
		var err error
		if len(args) >= 2 {
			if lo, err = strconv.Atoi(args[0]); err != nil {
				return "", fmt.Errorf("random_int: invalid min %q", args[0])
			}
			if hi, err = strconv.Atoi(args[1]); err != nil {
				return "", fmt.Errorf("random_int: invalid max %q", args[1])
			}
		}
		if hi < lo {
			return "", fmt.Errorf("random_int: max %d below min %d", hi, lo)
		}
		return strconv.Itoa(lo + rand.Intn(hi-lo+1)), nil
	})
	r.Register("upper", requireArgs(1, func(args []string) (string, error) {
		return strings.ToUpper(args[0]), nil
	}))
	r.Register("lower", requireArgs(1, func(args []string) (string, error) {
		return strings.ToLower(args[0]), nil
	}))

	return r
}

// Register adds or replaces a function.
func (r *Registry) Register(name string, fn Func) {
	r.funcs[name] = fn
}

// Call invokes a registered function by name.
func (r *Registry) Call(name string, args []string) (string, error) {
	fn, ok := r.funcs[name]
	if !ok {
		return "", fmt.Errorf("unknown function %q", name)
	}
	return fn(args)
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.funcs[name]
	return ok
}

func requireArgs(n int, fn Func) Func {
	return func(args []string) (string, error) {
		if len(args) < n {
			return "", fmt.Errorf("expected at least %d argument(s), got %d", n, len(args))
		}
		return fn(args)
	}
}

const alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomString(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphanumeric[rand.Intn(len(alphanumeric))]
	}
	return string(b)
}
