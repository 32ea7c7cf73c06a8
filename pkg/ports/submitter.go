package ports

import (
	"context"

	"github.com/aretw0/intake/pkg/domain"
)

// Submitter delivers an assembled submission to the study backend.
// The coordinator builds the payload, and the host implements this interface to send it.
type Submitter interface {
	Submit(ctx context.Context, payload *domain.Payload) (domain.Receipt, error)
}

// CountryLocator resolves a country name from a client's network address.
// An empty ip means "the caller's own address".
type CountryLocator interface {
	Locate(ctx context.Context, ip string) (string, error)
}
