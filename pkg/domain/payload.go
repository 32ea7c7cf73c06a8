package domain

// Part is one text field of a multipart submission.
type Part struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Payload is the ephemeral, write-only structure sent on final submission.
type Payload struct {
	Parts []Part       `json:"parts"`
	Files []Attachment `json:"files"`
}

// Add appends a text part.
func (p *Payload) Add(name, value string) {
	p.Parts = append(p.Parts, Part{Name: name, Value: value})
}

// Get returns the value of the named part.
func (p *Payload) Get(name string) (string, bool) {
	for _, part := range p.Parts {
		if part.Name == name {
			return part.Value, true
		}
	}
	return "", false
}

// Receipt is the backend's answer to a successful submission.
type Receipt struct {
	SubmissionID string `json:"submissionId"`
}
