package jscc

import (
	"sort"

	"github.com/jwtly10/jscc/internal/expr"
)

// Undefined is the value of names that were never set, and of #set with no
// expression.
var Undefined = expr.Undefined

// Store holds the compile-time variables of a run.
//
// A Store is not safe for concurrent use. Runs only share one when it is
// passed explicitly through Options.Store.
type Store struct {
	vars map[string]any
}

func NewStore() *Store {
	return &Store{vars: make(map[string]any)}
}

// Get returns the value of name, or Undefined.
func (s *Store) Get(name string) any {
	if v, ok := s.vars[name]; ok {
		return v
	}
	return Undefined
}

// Lookup returns the value of name and whether it is present.
func (s *Store) Lookup(name string) (any, bool) {
	v, ok := s.vars[name]
	return v, ok
}

// Set stores v under name after converting it to an expression value.
func (s *Store) Set(name string, v any) {
	s.vars[name] = expr.Normalize(v)
}

// Unset removes name. It then reads back as Undefined and Has reports false.
func (s *Store) Unset(name string) {
	delete(s.vars, name)
}

// Has reports whether name is present, even when its value is Undefined.
func (s *Store) Has(name string) bool {
	_, ok := s.vars[name]
	return ok
}

func (s *Store) Names() []string {
	names := make([]string, 0, len(s.vars))
	for name := range s.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Store) Merge(values map[string]any) {
	for name, v := range values {
		s.Set(name, v)
	}
}

func (s *Store) Clone() *Store {
	c := NewStore()
	for name, v := range s.vars {
		c.vars[name] = v
	}
	return c
}

func (s *Store) Len() int {
	return len(s.vars)
}
