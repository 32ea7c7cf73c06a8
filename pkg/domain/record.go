package domain

import "time"

// Record is the durable unit persisted for one device.
type Record struct {
	// Name is the store instance the record belongs to (e.g. "intake-wizard").
	Name string `json:"name"`

	// Sections holds the accumulated answers.
	Sections Answers `json:"sections"`

	// Route is the last route the device navigated to.
	Route string `json:"route,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NewRecord creates an empty record with every section initialized.
func NewRecord(name string, sections ...Section) *Record {
	return &Record{
		Name:     name,
		Sections: NewAnswers(sections...),
	}
}

// Clone returns a deep copy of the record's sections.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	out.Sections = r.Sections.Clone()
	return &out
}

// Attachment is an in-memory file (recorded or uploaded audio).
type Attachment struct {
	Field       string `json:"field"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type,omitempty"`
	Data        []byte `json:"-"`
}

// Size returns the attachment length in bytes.
func (a Attachment) Size() int {
	return len(a.Data)
}
