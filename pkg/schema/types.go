package schema

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/aretw0/intake/pkg/domain"
)

// Type defines the contract for field validation.
type Type interface {
	// Name returns the human-readable name of the type (e.g., "string", "date").
	Name() string
	// Validate checks if a value conforms to this type.
	Validate(value any) error
}

// SnapshotType is implemented by types whose outcome depends on the snapshot (e.g. today's date).
type SnapshotType interface {
	Type
	ValidateWith(value any, snap Snapshot) error
}

// --- Built-in Type Implementations ---

// StringType validates string values.
type StringType struct{}

func (t *StringType) Name() string { return "string" }

func (t *StringType) Validate(value any) error {
	_, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	return nil
}

// TrueType accepts only an affirmative answer (checkbox that must be ticked).
type TrueType struct{}

func (t *TrueType) Name() string { return "true" }

func (t *TrueType) Validate(value any) error {
	if s, ok := domain.AsString(value); ok && s == "true" {
		return nil
	}
	return fmt.Errorf("must be accepted")
}

// PatternType validates strings against a regular expression.
type PatternType struct {
	re *regexp.Regexp
}

func (t *PatternType) Name() string { return "pattern(" + t.re.String() + ")" }

func (t *PatternType) Validate(value any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	if !t.re.MatchString(strings.TrimSpace(s)) {
		return fmt.Errorf("does not match %s", t.re.String())
	}
	return nil
}

// EnumType validates membership in a fixed option set.
// Booleans are compared by their "true"/"false" spelling.
type EnumType struct {
	options []string
}

func (t *EnumType) Name() string { return "enum(" + strings.Join(t.options, "|") + ")" }

func (t *EnumType) Validate(value any) error {
	s, ok := domain.AsString(value)
	if !ok {
		return fmt.Errorf("expected one of %v, got %T", t.options, value)
	}
	if !contains(t.options, s) {
		return fmt.Errorf("%q is not one of %v", s, t.options)
	}
	return nil
}

// StringsType validates a list of options, optionally restricted to an enum.
type StringsType struct {
	options []string
}

func (t *StringsType) Name() string {
	if len(t.options) == 0 {
		return "[string]"
	}
	return "[" + strings.Join(t.options, "|") + "]"
}

func (t *StringsType) Validate(value any) error {
	list, ok := domain.AsStrings(value)
	if !ok {
		return fmt.Errorf("expected list of strings, got %T", value)
	}
	return checkOptions(t.options, list)
}

// MultiSelectType validates the {selected, other} shape.
type MultiSelectType struct {
	options []string
}

func (t *MultiSelectType) Name() string { return "multiselect" }

func (t *MultiSelectType) Validate(value any) error {
	ms, ok := domain.AsMultiSelect(value)
	if !ok {
		return fmt.Errorf("expected multi-select, got %T", value)
	}
	return checkOptions(t.options, ms.Selected)
}

// DateLayout is the calendar-date encoding stored in answers.
const DateLayout = "2006-01-02"

// DateOption restricts accepted dates.
type DateOption int

const (
	// NotFuture rejects dates after the snapshot's current day.
	NotFuture DateOption = iota + 1
)

// DateType validates YYYY-MM-DD or RFC3339 dates.
type DateType struct {
	notFuture bool
}

func (t *DateType) Name() string { return "date" }

func (t *DateType) Validate(value any) error {
	return t.ValidateWith(value, Snapshot{})
}

func (t *DateType) ValidateWith(value any, snap Snapshot) error {
	d, err := ParseDate(value)
	if err != nil {
		return err
	}
	if t.notFuture {
		today := snap.now().Format(DateLayout)
		if d.Format(DateLayout) > today {
			return fmt.Errorf("date %s is in the future", d.Format(DateLayout))
		}
	}
	return nil
}

// ParseDate reads a stored date value.
func ParseDate(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		s := strings.TrimSpace(v)
		if d, err := time.Parse(DateLayout, s); err == nil {
			return d, nil
		}
		if d, err := time.Parse(time.RFC3339, s); err == nil {
			return d, nil
		}
		return time.Time{}, fmt.Errorf("invalid date %q", v)
	}
	return time.Time{}, fmt.Errorf("expected date, got %T", value)
}

// CustomType applies a user-defined validation function.
type CustomType struct {
	name     string
	validate func(any) error
}

func (t *CustomType) Name() string { return t.name }

func (t *CustomType) Validate(value any) error {
	return t.validate(value)
}

// --- Factory Functions ---

// String creates a string type validator.
func String() Type { return &StringType{} }

// True creates a validator accepting only true.
func True() Type { return &TrueType{} }

// Pattern creates a string validator for the given expression. It panics on a bad expression.
func Pattern(expr string) Type { return &PatternType{re: regexp.MustCompile(expr)} }

// Enum creates an enum validator.
func Enum(options ...string) Type { return &EnumType{options: options} }

// Strings creates a list validator. With no options any string is accepted.
func Strings(options ...string) Type { return &StringsType{options: options} }

// MultiSelect creates a multi-select validator. With no options any selection is accepted.
func MultiSelect(options ...string) Type { return &MultiSelectType{options: options} }

// Date creates a date validator.
func Date(opts ...DateOption) Type {
	t := &DateType{}
	for _, o := range opts {
		if o == NotFuture {
			t.notFuture = true
		}
	}
	return t
}

// Custom creates a custom type validator with a user-defined function.
func Custom(name string, validate func(any) error) Type {
	return &CustomType{name: name, validate: validate}
}

func contains(options []string, v string) bool {
	for _, o := range options {
		if o == v {
			return true
		}
	}
	return false
}

func checkOptions(options, values []string) error {
	if len(options) == 0 {
		return nil
	}
	for _, v := range values {
		if !contains(options, v) {
			return fmt.Errorf("%q is not one of %v", v, options)
		}
	}
	return nil
}
