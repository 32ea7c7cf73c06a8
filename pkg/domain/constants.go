package domain

// Store and record naming.
const (
	// DefaultStoreName names the durable answer record of the wizard.
	DefaultStoreName = "intake-wizard"

	// ContextClinical is the snapshot context key enabling clinical-only fields.
	ContextClinical = "isClinical"
)
