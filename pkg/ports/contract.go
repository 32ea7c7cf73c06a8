package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunRecordStoreContract runs a suite of tests to verify that a RecordStore implementation
// adheres to the defined interface contract.
func RunRecordStoreContract(t *testing.T, store RecordStore) {
	ctx := context.Background()
	key := "contract-test-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		record := domain.NewRecord("contract")
		record.Route = "/welcome/step-2"
		record.Sections[domain.SectionWelcome]["language"] = "en"
		record.Sections[domain.SectionSubmitSteps]["currentSymptoms"] = map[string]any{
			"selected": []any{"dryCough"},
			"other":    "",
		}

		err := store.Save(ctx, key, record)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, key)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, "contract", loaded.Name)
		assert.Equal(t, "/welcome/step-2", loaded.Route)
		assert.Equal(t, "en", loaded.Sections[domain.SectionWelcome]["language"])

		symptoms, ok := domain.AsMultiSelect(loaded.Sections[domain.SectionSubmitSteps]["currentSymptoms"])
		require.True(t, ok, "multi-select answers must survive a round-trip")
		assert.Equal(t, []string{"dryCough"}, symptoms.Selected)
	})

	t.Run("Loaded Record Is Isolated", func(t *testing.T) {
		loaded, err := store.Load(ctx, key)
		require.NoError(t, err)
		loaded.Sections[domain.SectionWelcome]["language"] = "mutated"

		again, err := store.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "en", again.Sections[domain.SectionWelcome]["language"])
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+key)
		assert.ErrorIs(t, err, domain.ErrRecordNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, key, domain.NewRecord("contract"))
		require.NoError(t, err)

		err = store.Delete(ctx, key)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, key)
		assert.ErrorIs(t, err, domain.ErrRecordNotFound, "Load after Delete should return ErrRecordNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := key + "-1"
		id2 := key + "-2"
		_ = store.Save(ctx, id1, domain.NewRecord("contract"))
		_ = store.Save(ctx, id2, domain.NewRecord("contract"))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		keys, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, keys, id1)
		assert.Contains(t, keys, id2)
	})
}
