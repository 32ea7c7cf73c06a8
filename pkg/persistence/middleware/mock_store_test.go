package middleware_test

import (
	"context"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/ports"
)

// MockStore is a simple map-based store for testing middleware.
// It keeps pointers as-is so tests can inspect exactly what was written.
type MockStore struct {
	data map[string]*domain.Record
}

func NewMockStore() *MockStore {
	return &MockStore{
		data: make(map[string]*domain.Record),
	}
}

func (s *MockStore) Save(ctx context.Context, key string, record *domain.Record) error {
	s.data[key] = record
	return nil
}

func (s *MockStore) Load(ctx context.Context, key string) (*domain.Record, error) {
	record, ok := s.data[key]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return record, nil
}

func (s *MockStore) Delete(ctx context.Context, key string) error {
	delete(s.data, key)
	return nil
}

func (s *MockStore) List(ctx context.Context) ([]string, error) {
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys, nil
}

var _ ports.RecordStore = (*MockStore)(nil)
