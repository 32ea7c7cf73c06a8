package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aretw0/intake/pkg/adapters/sqlite"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.RecordStore = (*sqlite.Store)(nil)

func openStore(t *testing.T, path string) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_Contract(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "records.db"))
	ports.RunRecordStoreContract(t, store)
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "records.db")
	ctx := context.Background()

	first, err := sqlite.Open(ctx, path)
	require.NoError(t, err)
	record := domain.NewRecord("intake-wizard")
	record.Sections[domain.SectionWelcome]["patientId"] = "1234567"
	require.NoError(t, first.Save(ctx, "intake-wizard:dev", record))
	require.NoError(t, first.Close())

	second := openStore(t, path)
	loaded, err := second.Load(ctx, "intake-wizard:dev")
	require.NoError(t, err)
	assert.Equal(t, "1234567", loaded.Sections[domain.SectionWelcome]["patientId"])
	assert.False(t, loaded.UpdatedAt.IsZero())
}

func TestSQLiteStore_OpenRequiresPath(t *testing.T) {
	_, err := sqlite.Open(context.Background(), "")
	assert.Error(t, err)
}
