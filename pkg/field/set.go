package field

import (
	"fmt"
	"strings"
	"sync"
)

type entry struct {
	field   Field
	rules   ruleSet
	initial any
	value   any
	parsed  bool
}

// Set is an ordered collection of fields with their current values and the
// most recent validation errors. It is safe for concurrent use.
type Set struct {
	mu      sync.RWMutex
	entries []*entry
	index   map[string]int
	errors  map[string]string
}

// New declares a Set. Names must be unique and non-empty, kinds default to
// text, rules must parse, and select fields need at least one option.
func New(fields ...Field) (*Set, error) {
	set := &Set{
		entries: make([]*entry, 0, len(fields)),
		index:   make(map[string]int, len(fields)),
		errors:  make(map[string]string),
	}
	for _, f := range fields {
		f.Name = strings.TrimSpace(f.Name)
		if f.Name == "" {
			return nil, errFieldNameMissing
		}
		if _, exists := set.index[f.Name]; exists {
			return nil, fmt.Errorf("field: %q declared twice", f.Name)
		}
		if f.Kind == "" {
			f.Kind = KindText
		}
		if !f.Kind.Valid() {
			return nil, fmt.Errorf("field: %q has unsupported kind %q", f.Name, f.Kind)
		}
		if f.Kind == KindSelect && len(f.Options) == 0 {
			return nil, fmt.Errorf("field: select %q declares no options", f.Name)
		}
		rules, err := compileRules(f)
		if err != nil {
			return nil, err
		}
		initial, ok := coerce(f.Kind, f.Initial)
		if !ok {
			return nil, fmt.Errorf("field: initial value %v of %q is not a %s", f.Initial, f.Name, f.Kind)
		}
		f.Options = append([]Option(nil), f.Options...)
		f.Rules = append([]Rule(nil), f.Rules...)
		set.index[f.Name] = len(set.entries)
		set.entries = append(set.entries, &entry{
			field:   f,
			rules:   rules,
			initial: initial,
			value:   cloneValue(initial),
			parsed:  true,
		})
	}
	return set, nil
}

// MustNew is New that panics on a declaration error.
func MustNew(fields ...Field) *Set {
	set, err := New(fields...)
	if err != nil {
		panic(err)
	}
	return set
}

// Len returns the number of declared fields.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Names returns field names in declaration order.
func (s *Set) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, len(s.entries))
	for i, e := range s.entries {
		names[i] = e.field.Name
	}
	return names
}

// Fields returns the declarations in order.
func (s *Set) Fields() []Field {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Field, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.field
	}
	return out
}

// Field returns the declaration for name.
func (s *Set) Field(name string) (Field, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.entries[idx].field, true
}

// Has reports whether name is declared.
func (s *Set) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[name]
	return ok
}

// Require returns an UnknownFieldError for the first name not declared in the
// set. Templates call it before binding inputs.
func (s *Set) Require(names ...string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, name := range names {
		if _, ok := s.index[name]; !ok {
			return &UnknownFieldError{Name: name}
		}
	}
	return nil
}

// SetField stores value for name after coercing it to the field kind and
// clears any stale error for that field.
func (s *Set) SetField(name string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setLocked(name, value)
}

func (s *Set) setLocked(name string, value any) error {
	idx, ok := s.index[name]
	if !ok {
		return &UnknownFieldError{Name: name}
	}
	e := s.entries[idx]
	coerced, parsed := coerce(e.field.Kind, value)
	e.value = coerced
	e.parsed = parsed
	delete(s.errors, name)
	return nil
}

// Value returns the current value of name.
func (s *Set) Value(name string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.index[name]
	if !ok {
		return nil, &UnknownFieldError{Name: name}
	}
	return cloneValue(s.entries[idx].value), nil
}

// Values returns a snapshot of every field value. The snapshot does not change
// when the set is edited afterwards.
func (s *Set) Values() Values {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.valuesLocked()
}

func (s *Set) valuesLocked() Values {
	out := make(Values, len(s.entries))
	for _, e := range s.entries {
		out[e.field.Name] = cloneValue(e.value)
	}
	return out
}

// Validate checks every field in declaration order and records the result as
// the current errors. Every failing field is reported.
func (s *Set) Validate() ValidationResult {
	_, result := s.ValidateValues()
	return result
}

// ValidateValues validates and snapshots values under one lock so the values
// returned are exactly the ones that were validated.
func (s *Set) ValidateValues() (Values, ValidationResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = make(map[string]string)
	var result ValidationResult
	for _, e := range s.entries {
		msg := check(e.field, e.rules, e.value, e.parsed)
		if msg == "" {
			continue
		}
		s.errors[e.field.Name] = msg
		result.Issues = append(result.Issues, Issue{Field: e.field.Name, Message: msg})
	}
	return s.valuesLocked(), result
}

// Errors returns the currently recorded errors in declaration order.
func (s *Set) Errors() ValidationResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errorsLocked()
}

func (s *Set) errorsLocked() ValidationResult {
	var result ValidationResult
	for _, e := range s.entries {
		if msg, ok := s.errors[e.field.Name]; ok {
			result.Issues = append(result.Issues, Issue{Field: e.field.Name, Message: msg})
		}
	}
	return result
}

// SetErrors replaces the recorded errors, typically with messages returned by
// a server. Issues for undeclared fields are dropped and returned so callers
// can surface them at form level.
func (s *Set) SetErrors(result ValidationResult) []Issue {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = make(map[string]string, len(result.Issues))
	var dropped []Issue
	for _, issue := range result.Issues {
		if _, ok := s.index[issue.Field]; !ok {
			dropped = append(dropped, issue)
			continue
		}
		if _, exists := s.errors[issue.Field]; exists {
			continue
		}
		s.errors[issue.Field] = issue.Message
	}
	return dropped
}

// ClearErrors drops every recorded error without touching values.
func (s *Set) ClearErrors() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = make(map[string]string)
}

// Reset restores every field to its declared initial value and clears errors.
func (s *Set) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		e.value = cloneValue(e.initial)
		e.parsed = true
	}
	s.errors = make(map[string]string)
}

// Snapshot returns values and errors read under a single lock.
func (s *Set) Snapshot() (Values, ValidationResult) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.valuesLocked(), s.errorsLocked()
}
