package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/ports"
)

// Masked replaces the value of every field matching a PII pattern.
const Masked = "***"

type piiMiddleware struct {
	next     ports.RecordStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks values of fields matching the patterns
// before they reach the store. Masked fields come back as "***" on reload.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := compile(patternStrings)
	return func(next ports.RecordStore) ports.RecordStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Save(ctx context.Context, key string, record *domain.Record) error {
	return m.next.Save(ctx, key, mask(record, m.patterns))
}

func (m *piiMiddleware) Load(ctx context.Context, key string) (*domain.Record, error) {
	return m.next.Load(ctx, key)
}

func (m *piiMiddleware) Delete(ctx context.Context, key string) error {
	return m.next.Delete(ctx, key)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// MaskRecord returns a copy of record with PII fields masked. The input is not modified.
func MaskRecord(record *domain.Record, patternStrings []string) *domain.Record {
	return mask(record, compile(patternStrings))
}

func compile(patternStrings []string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return patterns
}

func mask(record *domain.Record, patterns []*regexp.Regexp) *domain.Record {
	cloned := record.Clone()
	for _, fields := range cloned.Sections {
		maskMap(fields, patterns)
	}
	return cloned
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		masked := false
		for _, p := range patterns {
			if p.MatchString(k) {
				m[k] = Masked
				masked = true
				break
			}
		}

		if sub, ok := v.(map[string]any); ok && !masked {
			maskMap(sub, patterns)
		}
	}
}
