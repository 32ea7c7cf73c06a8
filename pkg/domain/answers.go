package domain

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Section identifies a top-level key of the answer record.
type Section string

const (
	SectionWelcome     Section = "welcome"
	SectionSubmitSteps Section = "submit-steps"
)

// Sections lists every section a fresh record starts with.
var Sections = []Section{SectionWelcome, SectionSubmitSteps}

// Fields holds the answers of one section, addressed by field name.
type Fields map[string]any

// Answers is the full answer record of a device.
type Answers map[Section]Fields

// NewAnswers returns the initial empty shape: every known section present and empty.
func NewAnswers(sections ...Section) Answers {
	if len(sections) == 0 {
		sections = Sections
	}
	a := make(Answers, len(sections))
	for _, s := range sections {
		a[s] = Fields{}
	}
	return a
}

// Clone returns a deep copy of the fields: nested maps, slices and multi-selects
// are copied, so neither copy observes writes to the other.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return map[string]any(Fields(val).Clone())
	case Fields:
		return val.Clone()
	case []any:
		if val == nil {
			return val
		}
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		if val == nil {
			return val
		}
		return append([]string(nil), val...)
	case MultiSelect:
		if val.Selected != nil {
			val.Selected = append([]string(nil), val.Selected...)
		}
		return val
	case *MultiSelect:
		if val == nil {
			return val
		}
		cp := cloneValue(*val).(MultiSelect)
		return &cp
	}
	return v
}

// Merge returns a copy of f with partial shallow-merged over it. Later keys win.
// Values taken from partial are copied too.
func (f Fields) Merge(partial Fields) Fields {
	out := f.Clone()
	if out == nil {
		out = Fields{}
	}
	for k, v := range partial {
		out[k] = cloneValue(v)
	}
	return out
}

// Clone returns a copy of every section.
func (a Answers) Clone() Answers {
	if a == nil {
		return nil
	}
	out := make(Answers, len(a))
	for s, f := range a {
		out[s] = f.Clone()
	}
	return out
}

// Section returns the fields of a section, or nil when it was never initialized.
func (a Answers) Section(s Section) Fields {
	if a == nil {
		return nil
	}
	return a[s]
}

// MultiSelect is the answer shape of a multi-select question with a free-text option.
type MultiSelect struct {
	Selected []string `json:"selected" mapstructure:"selected"`
	Other    string   `json:"other,omitempty" mapstructure:"other"`
}

// Contains reports whether value is one of the selected options.
func (m MultiSelect) Contains(value string) bool {
	for _, s := range m.Selected {
		if s == value {
			return true
		}
	}
	return false
}

// AsMultiSelect normalizes a stored value into a MultiSelect.
// It accepts the struct itself, its JSON-decoded map form, or a bare list of options.
func AsMultiSelect(v any) (MultiSelect, bool) {
	switch val := v.(type) {
	case nil:
		return MultiSelect{}, false
	case MultiSelect:
		return val, true
	case *MultiSelect:
		if val == nil {
			return MultiSelect{}, false
		}
		return *val, true
	case []string, []any:
		list, ok := AsStrings(val)
		return MultiSelect{Selected: list}, ok
	}

	var out MultiSelect
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return MultiSelect{}, false
	}
	if err := dec.Decode(v); err != nil {
		return MultiSelect{}, false
	}
	return out, true
}

// AsStrings normalizes a stored list value into []string.
func AsStrings(v any) ([]string, bool) {
	switch val := v.(type) {
	case []string:
		return val, true
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

// AsString renders a scalar answer as a string. Empty and nil values report false.
func AsString(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		s := strings.TrimSpace(val)
		return s, s != ""
	case bool:
		if val {
			return "true", true
		}
		return "false", true
	case fmt.Stringer:
		s := val.String()
		return s, s != ""
	case float64, float32, int, int64, int32:
		return fmt.Sprintf("%v", val), true
	}
	return "", false
}
