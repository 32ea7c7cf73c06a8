// Package steps declares, for every wizard step, what the step shows, what it
// accepts and where it may branch. Controllers are plain values; the runtime in
// the root package drives them.
package steps

import (
	"fmt"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/navigation"
	"github.com/aretw0/intake/pkg/registry"
	"github.com/aretw0/intake/pkg/schema"
)

// Kind classifies how a step behaves on forward.
type Kind string

const (
	KindForm      Kind = "form"      // validates and commits form values
	KindInfo      Kind = "info"      // no input
	KindRecording Kind = "recording" // commits an audio reference
	KindListen    Kind = "listen"    // reviews a recording, may send the user back
	KindSubmit    Kind = "submit"    // hands over to the submission coordinator
	KindTerminal  Kind = "terminal"
)

// Header holds the presentation parameters a step sets on mount.
type Header struct {
	Title    string `json:"title,omitempty"`
	Subtitle string `json:"subtitle,omitempty"`
	Type     string `json:"type,omitempty"`
	LogoSize string `json:"logo_size,omitempty"`
	Back     bool   `json:"back"`
}

// Recording describes the audio slot of a recording, upload or listen step.
type Recording struct {
	Kind  string `json:"kind"`
	Field string `json:"field,omitempty"` // recordingFile or uploadedFile
}

// Audio fields inside a recordYour<Kind> answer.
const (
	FieldRecordingFile = "recordingFile"
	FieldUploadedFile  = "uploadedFile"
)

// Controller is the static contract of one step.
type Controller struct {
	ID     domain.StepID
	Kind   Kind
	Header Header
	Schema schema.Schema

	// Defaults returns initial values for fields the device has not answered yet.
	Defaults func(own domain.Fields, snap schema.Snapshot) domain.Fields

	// Branches are evaluated in order after validation; the first that holds wins.
	Branches []navigation.Rule

	// Escapes are branches the user may take explicitly without committing.
	Escapes []domain.Branch

	Recording *Recording
}

// Initial returns the form state on mount: defaults overlaid with the device's saved values.
func (c Controller) Initial(section domain.Fields, snap schema.Snapshot) domain.Fields {
	own := c.Form(section)
	if c.Defaults == nil {
		return own
	}
	out := c.Defaults(own, snap)
	if out == nil {
		out = domain.Fields{}
	}
	for k, v := range own {
		if !schema.IsEmpty(v) {
			out[k] = v
		}
	}
	return out
}

// Form extracts the values this step edits from its section.
func (c Controller) Form(section domain.Fields) domain.Fields {
	if c.Recording != nil {
		var nested domain.Fields
		switch v := section[registry.LogicKey(c.Recording.Kind)].(type) {
		case map[string]any:
			nested = v
		case domain.Fields:
			nested = v
		}
		return nested.Merge(nil)
	}
	out := domain.Fields{}
	for name := range c.Schema {
		if v, ok := section[name]; ok {
			out[name] = v
		}
	}
	return out
}

// Check validates values against the step schema.
func (c Controller) Check(values domain.Fields, snap schema.Snapshot) schema.Result {
	return schema.Check(c.Schema, values, snap)
}

// Commit returns the partial update a successful forward merges into the section.
// It returns nil when the step commits nothing.
func (c Controller) Commit(values domain.Fields) domain.Fields {
	switch c.Kind {
	case KindForm:
		out := domain.Fields{}
		for name := range c.Schema {
			if v, ok := values[name]; ok {
				out[name] = v
			}
		}
		return out
	case KindRecording:
		return domain.Fields{
			registry.LogicKey(c.Recording.Kind): map[string]any{
				c.Recording.Field: values[c.Recording.Field],
			},
		}
	}
	return nil
}

// Escapable reports whether b may be requested explicitly from this step.
func (c Controller) Escapable(b domain.Branch) bool {
	for _, e := range c.Escapes {
		if e == b {
			return true
		}
	}
	return false
}

// For returns the controller of a step.
func For(id domain.StepID) (Controller, bool) {
	c, ok := controllers[id]
	return c, ok
}

// MustFor returns the controller of a step and panics when none exists.
func MustFor(id domain.StepID) Controller {
	c, ok := For(id)
	if !ok {
		panic(fmt.Sprintf("steps: no controller for %q", id))
	}
	return c
}

// IDs returns every step with a controller.
func IDs() []domain.StepID {
	out := make([]domain.StepID, 0, len(controllers))
	for id := range controllers {
		out = append(out, id)
	}
	return out
}
