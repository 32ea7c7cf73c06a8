package memory

import (
	"context"
	"sync"

	"github.com/aretw0/intake/pkg/domain"
)

// Attachments implements ports.AttachmentStore in memory.
// Files live only as long as the process, like browser file objects.
type Attachments struct {
	mu    sync.RWMutex
	files map[string]map[string]domain.Attachment // owner -> ref -> file
}

// NewAttachments creates an empty attachment store.
func NewAttachments() *Attachments {
	return &Attachments{files: make(map[string]map[string]domain.Attachment)}
}

// Put stores a copy of the attachment.
func (a *Attachments) Put(ctx context.Context, owner, ref string, att domain.Attachment) error {
	data := make([]byte, len(att.Data))
	copy(data, att.Data)
	att.Data = data

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.files[owner]; !ok {
		a.files[owner] = make(map[string]domain.Attachment)
	}
	a.files[owner][ref] = att
	return nil
}

// Get returns the attachment stored under ref.
func (a *Attachments) Get(ctx context.Context, owner, ref string) (domain.Attachment, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	att, ok := a.files[owner][ref]
	return att, ok
}

// Clear drops every attachment of the owner.
func (a *Attachments) Clear(ctx context.Context, owner string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.files, owner)
	return nil
}
