package schema

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/intake/pkg/domain"
)

// Snapshot is the read-only context a requirement or type may consult:
// the whole answer record, host flags, and the clock.
type Snapshot struct {
	Answers domain.Answers
	Context map[string]any
	Now     time.Time
}

func (s Snapshot) now() time.Time {
	if s.Now.IsZero() {
		return time.Now()
	}
	return s.Now
}

// Flag reports whether a context key holds a truthy value.
func (s Snapshot) Flag(key string) bool {
	v, ok := domain.AsString(s.Context[key])
	return ok && v == "true"
}

// Requirement decides whether a field must be filled.
type Requirement func(values domain.Fields, snap Snapshot) bool

// Always marks a field required.
func Always(domain.Fields, Snapshot) bool { return true }

// WhenEquals requires the field when another field holds v.
func WhenEquals(field string, v string) Requirement {
	return func(values domain.Fields, _ Snapshot) bool {
		s, ok := domain.AsString(values[field])
		return ok && s == v
	}
}

// WhenContains requires the field when another list or multi-select field contains v.
func WhenContains(field string, v string) Requirement {
	return func(values domain.Fields, _ Snapshot) bool {
		ms, ok := domain.AsMultiSelect(values[field])
		return ok && ms.Contains(v)
	}
}

// WhenContext requires the field when the snapshot flag key is set.
func WhenContext(key string) Requirement {
	return func(_ domain.Fields, snap Snapshot) bool {
		return snap.Flag(key)
	}
}

// WhenFunc adapts an arbitrary predicate.
func WhenFunc(fn func(values domain.Fields, snap Snapshot) bool) Requirement {
	return Requirement(fn)
}

// Field declares the constraint on one form field.
type Field struct {
	Type     Type
	Required Requirement // nil means optional
	Message  string      // translation key for the inline error
}

// Schema is a map of field names to their constraints.
type Schema map[string]Field

// Names returns the declared field names in sorted order.
func (s Schema) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MarshalJSON serializes the schema as a map of field names to type and requiredness.
func (s Schema) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}

	type field struct {
		Type     string `json:"type"`
		Required string `json:"required"`
	}
	raw := make(map[string]field, len(s))
	for name, f := range s {
		out := field{Type: "any", Required: "optional"}
		if f.Type != nil {
			out.Type = f.Type.Name()
		}
		if f.Required != nil {
			out.Required = "conditional"
			if isAlways(f.Required) {
				out.Required = "always"
			}
		}
		raw[name] = out
	}
	return json.Marshal(raw)
}

func isAlways(r Requirement) bool {
	return r(domain.Fields{}, Snapshot{})
}

// Result is the outcome of checking a form against a schema.
type Result struct {
	Errors map[string]*ValidationError `json:"errors,omitempty"`
}

// Valid reports whether no field failed.
func (r Result) Valid() bool {
	return len(r.Errors) == 0
}

// Invalid returns the failing field names in sorted order.
func (r Result) Invalid() []string {
	names := make([]string, 0, len(r.Errors))
	for name := range r.Errors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Err returns nil for a valid result, otherwise an *AggregateError of *ValidationError.
func (r Result) Err() error {
	if r.Valid() {
		return nil
	}
	errs := make([]error, 0, len(r.Errors))
	for _, name := range r.Invalid() {
		errs = append(errs, r.Errors[name])
	}
	return &AggregateError{Errors: errs}
}

// MarshalJSON adds the computed valid flag.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Valid  bool                        `json:"valid"`
		Errors map[string]*ValidationError `json:"errors,omitempty"`
	}{r.Valid(), r.Errors})
}

// Check validates values against the schema. It has no side effects.
func Check(s Schema, values domain.Fields, snap Snapshot) Result {
	res := Result{}
	fail := func(name string, f Field, reason string, value any) {
		if res.Errors == nil {
			res.Errors = make(map[string]*ValidationError)
		}
		msg := f.Message
		if msg == "" && reason == ReasonRequired {
			msg = "validation:required"
		}
		res.Errors[name] = &ValidationError{Key: name, Reason: reason, Message: msg, Value: value}
	}

	for name, f := range s {
		value := values[name]
		if IsEmpty(value) {
			if f.Required != nil && f.Required(values, snap) {
				fail(name, f, ReasonRequired, nil)
			}
			continue
		}
		if f.Type == nil {
			continue
		}

		var err error
		if st, ok := f.Type.(SnapshotType); ok {
			err = st.ValidateWith(value, snap)
		} else {
			err = f.Type.Validate(value)
		}
		if err != nil {
			fail(name, f, err.Error(), value)
		}
	}
	return res
}

// Validate is Check returning an error.
func Validate(s Schema, values domain.Fields, snap Snapshot) error {
	return Check(s, values, snap).Err()
}

// IsEmpty reports whether a value counts as "not answered".
func IsEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []string:
		return len(v) == 0
	case []any:
		return len(v) == 0
	case time.Time:
		return v.IsZero()
	case map[string]any, domain.MultiSelect, *domain.MultiSelect:
		ms, ok := domain.AsMultiSelect(value)
		return ok && len(ms.Selected) == 0 && strings.TrimSpace(ms.Other) == ""
	}
	return false
}
