package ports

import (
	"context"

	"github.com/aretw0/intake/pkg/domain"
)

// RecordStore defines the interface for persisting answer records.
// This keeps partial answers durable across reloads and process restarts.
type RecordStore interface {
	// Save persists the record for a given key.
	Save(ctx context.Context, key string, record *domain.Record) error

	// Load retrieves the record for a given key.
	// Returns domain.ErrRecordNotFound if the key does not exist.
	Load(ctx context.Context, key string) (*domain.Record, error)

	// Delete removes the record for a given key.
	Delete(ctx context.Context, key string) error

	// List returns every stored key.
	List(ctx context.Context) ([]string, error)
}

// AttachmentStore keeps in-memory files referenced from the answer record.
type AttachmentStore interface {
	// Put stores an attachment for the owner under ref, replacing any previous one.
	Put(ctx context.Context, owner, ref string, a domain.Attachment) error

	// Get returns the attachment stored under ref, or false.
	Get(ctx context.Context, owner, ref string) (domain.Attachment, bool)

	// Clear drops every attachment of the owner.
	Clear(ctx context.Context, owner string) error
}
