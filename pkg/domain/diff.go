package domain

import (
	"reflect"
)

// RecordDiff represents the changes between two records.
// It is designed to be serialized to JSON for partial updates on the client.
type RecordDiff struct {
	// Route is set when the device moved to another step.
	Route *string `json:"route,omitempty"`

	// Sections contains only changed, added or deleted fields per section.
	// For deletions, the field is present with a nil value.
	Sections map[Section]Fields `json:"sections,omitempty"`
}

// Diff calculates the difference between oldRecord and newRecord.
// If oldRecord is nil, it returns a diff representing the entire newRecord (initial load).
func Diff(oldRecord, newRecord *Record) *RecordDiff {
	if newRecord == nil {
		return nil
	}

	diff := &RecordDiff{}
	if oldRecord == nil || oldRecord.Route != newRecord.Route {
		if newRecord.Route != "" {
			route := newRecord.Route
			diff.Route = &route
		}
	}

	var oldSections Answers
	if oldRecord != nil {
		oldSections = oldRecord.Sections
	}

	for section, fields := range newRecord.Sections {
		if delta := DiffFields(oldSections.Section(section), fields); delta != nil {
			if diff.Sections == nil {
				diff.Sections = make(map[Section]Fields)
			}
			diff.Sections[section] = delta
		}
	}
	for section, fields := range oldSections {
		if _, ok := newRecord.Sections[section]; ok {
			continue
		}
		if delta := DiffFields(fields, nil); delta != nil {
			if diff.Sections == nil {
				diff.Sections = make(map[Section]Fields)
			}
			diff.Sections[section] = delta
		}
	}

	return diff
}

// DiffFields returns the fields added or modified in next, and the fields removed
// from old (with a nil value). It returns nil when nothing changed.
func DiffFields(old, next Fields) Fields {
	delta := make(Fields)

	for k, newVal := range next {
		oldVal, exists := old[k]
		if !exists || !reflect.DeepEqual(oldVal, newVal) {
			delta[k] = newVal
		}
	}

	for k := range old {
		if _, exists := next[k]; !exists {
			delta[k] = nil
		}
	}

	// Return nil if delta is empty so omitempty can remove the key
	if len(delta) == 0 {
		return nil
	}
	return delta
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *RecordDiff) IsEmpty() bool {
	return d == nil || (d.Route == nil && len(d.Sections) == 0)
}
