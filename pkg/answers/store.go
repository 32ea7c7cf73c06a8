// Package answers holds the wizard's durable, device-scoped answer record.
//
// A Store is built once per device and passed to whoever needs it. Reads never fail:
// a missing or unreadable record reads as "never initialized" so callers fall back
// to their defaults. Writes are scoped to one section and serialized per device.
package answers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/intake/internal/logging"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/session"
)

// Key returns the record key of a device in the named store.
func Key(storeName, device string) string {
	return storeName + ":" + device
}

// Store reads and writes the answer record of one device.
type Store struct {
	manager  *session.Manager
	name     string
	key      string
	sections []domain.Section
	logger   *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for swallowed backend failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSections overrides the sections an empty record starts with.
func WithSections(sections ...domain.Section) Option {
	return func(s *Store) {
		s.sections = sections
	}
}

// New returns the store of device inside the named store instance.
func New(manager *session.Manager, storeName, device string, opts ...Option) *Store {
	if storeName == "" {
		storeName = domain.DefaultStoreName
	}
	s := &Store{
		manager:  manager,
		name:     storeName,
		key:      Key(storeName, device),
		sections: domain.Sections,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the record key this store persists under.
func (s *Store) Key() string {
	return s.key
}

// load returns the persisted record, or nil when it is missing or unreadable.
func (s *Store) load(ctx context.Context) *domain.Record {
	record, err := s.manager.Load(ctx, s.key)
	if err != nil {
		if !errors.Is(err, domain.ErrRecordNotFound) {
			s.logger.Warn("answer record unreadable, using defaults", "key", s.key, "err", err)
		}
		return nil
	}
	return record
}

// Read returns the answers of a section. The boolean is false when the section was
// never initialized or the backend could not be read.
func (s *Store) Read(ctx context.Context, section domain.Section) (domain.Fields, bool) {
	record := s.load(ctx)
	if record == nil {
		return nil, false
	}
	fields, ok := record.Sections[section]
	if !ok || fields == nil {
		return nil, false
	}
	return fields, true
}

// Snapshot returns every section. Missing sections come back empty.
func (s *Store) Snapshot(ctx context.Context) domain.Answers {
	record := s.load(ctx)
	if record == nil {
		return domain.NewAnswers(s.sections...)
	}
	out := domain.NewAnswers(s.sections...)
	for section, fields := range record.Sections {
		out[section] = fields
	}
	return out
}

// Route returns the last route recorded for the device.
func (s *Store) Route(ctx context.Context) string {
	record := s.load(ctx)
	if record == nil {
		return ""
	}
	return record.Route
}

// mutate runs fn on the current record under the device lock and persists the result
// when fn reports a change.
func (s *Store) mutate(ctx context.Context, fn func(*domain.Record) bool) error {
	return s.manager.WithLock(ctx, s.key, func(ctx context.Context) error {
		store := s.manager.Store()
		record, err := store.Load(ctx, s.key)
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			record = domain.NewRecord(s.name, s.sections...)
		case err != nil:
			return fmt.Errorf("failed to load answers: %w", err)
		}
		if record.Sections == nil {
			record.Sections = domain.NewAnswers(s.sections...)
		}
		if !fn(record) {
			return nil
		}
		if err := store.Save(ctx, s.key, record); err != nil {
			return fmt.Errorf("failed to save answers: %w", err)
		}
		return nil
	})
}

// Update shallow-merges partial into section; later keys win. Other sections are untouched.
// Applying the same partial twice does not write again.
func (s *Store) Update(ctx context.Context, section domain.Section, partial domain.Fields) error {
	return s.mutate(ctx, func(record *domain.Record) bool {
		current := record.Sections[section]
		merged := current.Merge(partial)
		if current != nil && domain.DiffFields(current, merged) == nil {
			return false
		}
		record.Sections[section] = merged
		return true
	})
}

// SetRoute records the route the device is on. It reports whether the route changed.
func (s *Store) SetRoute(ctx context.Context, route string) (bool, error) {
	changed := false
	err := s.mutate(ctx, func(record *domain.Record) bool {
		if record.Route == route {
			return false
		}
		record.Route = route
		changed = true
		return true
	})
	return changed, err
}

// Reset clears one section back to empty.
func (s *Store) Reset(ctx context.Context, section domain.Section) error {
	return s.mutate(ctx, func(record *domain.Record) bool {
		record.Sections[section] = domain.Fields{}
		return true
	})
}

// ResetAll clears every section back to the initial empty shape and forgets the route.
func (s *Store) ResetAll(ctx context.Context) error {
	return s.mutate(ctx, func(record *domain.Record) bool {
		record.Sections = domain.NewAnswers(s.sections...)
		record.Route = ""
		return true
	})
}
