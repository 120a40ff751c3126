package vars

import (
	"errors"
	"fmt"

	"github.com/mohae/deepcopy"
)

// NotFoundError is returned when a variable is read before any case has set it.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("variable %q is not set", e.Name)
}

// IsNotFound reports whether err is a variable lookup failure, however
// deeply wrapped.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// Store holds the variables shared across a session. Later cases read what earlier
// cases extracted, so a session owns exactly one Store and runs its cases
// sequentially; the Store itself does no locking.
type Store struct {
	values map[string]any
}

func NewStore() *Store {
	return &Store{
		values: make(map[string]any),
	}
}

// Set stores a value under name, overwriting any previous value. The value is
// deep-copied in, so mutating the caller's object afterwards cannot change what
// was stored.
func (s *Store) Set(name string, value any) {
	s.values[name] = deepcopy.Copy(value)
}

// Get returns the value stored under name, or a *NotFoundError if no case has
// set it. Callers that tolerate absence should check Has first.
func (s *Store) Get(name string) (any, error) {
	v, ok := s.values[name]
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return v, nil
}

func (s *Store) Has(name string) bool {
	_, ok := s.values[name]
	return ok
}

// Clear removes every entry. The session calls this exactly once, before the
// first case runs, so no value leaks across runs.
func (s *Store) Clear() {
	s.values = make(map[string]any)
}

// Len returns the number of stored variables.
func (s *Store) Len() int {
	return len(s.values)
}

// Names returns the set of stored variable names.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.values))
	for name := range s.values {
		names = append(names, name)
	}
	return names
}
