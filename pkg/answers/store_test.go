package answers_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aretw0/intake/pkg/adapters/memory"
	"github.com/aretw0/intake/pkg/answers"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore counts saves so tests can prove idempotent updates skip writes.
type countingStore struct {
	*memory.Store
	mu    sync.Mutex
	saves int
}

func (c *countingStore) Save(ctx context.Context, key string, record *domain.Record) error {
	c.mu.Lock()
	c.saves++
	c.mu.Unlock()
	return c.Store.Save(ctx, key, record)
}

// brokenStore fails every call, like a disabled or corrupt medium.
type brokenStore struct{}

var errBroken = errors.New("storage disabled")

func (brokenStore) Save(context.Context, string, *domain.Record) error { return errBroken }
func (brokenStore) Load(context.Context, string) (*domain.Record, error) {
	return nil, errBroken
}
func (brokenStore) Delete(context.Context, string) error   { return errBroken }
func (brokenStore) List(context.Context) ([]string, error) { return nil, errBroken }

func newStore(t *testing.T) (*answers.Store, *countingStore) {
	t.Helper()
	backend := &countingStore{Store: memory.NewStore()}
	return answers.New(session.NewManager(backend), "intake-wizard", "device-1"), backend
}

func TestStore_ReadNeverInitialized(t *testing.T) {
	store, _ := newStore(t)

	fields, ok := store.Read(context.Background(), domain.SectionWelcome)
	assert.False(t, ok)
	assert.Nil(t, fields)
}

func TestStore_UpdateMergesLaterKeysWin(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Update(ctx, domain.SectionWelcome, domain.Fields{"language": "en", "country": "Brazil"}))
	require.NoError(t, store.Update(ctx, domain.SectionWelcome, domain.Fields{"country": "Peru", "region": "Lima"}))

	fields, ok := store.Read(ctx, domain.SectionWelcome)
	require.True(t, ok)
	assert.Equal(t, domain.Fields{"language": "en", "country": "Peru", "region": "Lima"}, fields)

	other, ok := store.Read(ctx, domain.SectionSubmitSteps)
	require.True(t, ok, "sibling sections exist from the initial shape")
	assert.Empty(t, other)
}

func TestStore_CallerSlicesAreNotShared(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	posted := []string{"pcr"}
	symptoms := domain.MultiSelect{Selected: []string{"dryCough"}}
	require.NoError(t, store.Update(ctx, domain.SectionSubmitSteps, domain.Fields{
		"testTaken":       posted,
		"currentSymptoms": symptoms,
		"recordYourCough": domain.Fields{"recordingFile": "recordYourCough/recordingFile"},
	}))
	posted[0] = "changed-after-update"
	symptoms.Selected[0] = "changed-after-update"

	fields, ok := store.Read(ctx, domain.SectionSubmitSteps)
	require.True(t, ok)
	assert.Equal(t, []string{"pcr"}, fields["testTaken"])
	assert.Equal(t, []string{"dryCough"}, fields["currentSymptoms"].(domain.MultiSelect).Selected)

	fields["testTaken"].([]string)[0] = "changed-after-read"
	fields["recordYourCough"].(domain.Fields)["recordingFile"] = "changed-after-read"

	again, ok := store.Read(ctx, domain.SectionSubmitSteps)
	require.True(t, ok)
	assert.Equal(t, []string{"pcr"}, again["testTaken"])
	assert.Equal(t, "recordYourCough/recordingFile", again["recordYourCough"].(domain.Fields)["recordingFile"])
}

func TestStore_UpdateIsIdempotent(t *testing.T) {
	store, backend := newStore(t)
	ctx := context.Background()

	partial := domain.Fields{"vaccine": "no"}
	require.NoError(t, store.Update(ctx, domain.SectionSubmitSteps, partial))
	require.NoError(t, store.Update(ctx, domain.SectionSubmitSteps, partial))

	assert.Equal(t, 1, backend.saves)
}

func TestStore_SurvivesReconstruction(t *testing.T) {
	backend := memory.NewStore()
	manager := session.NewManager(backend)
	ctx := context.Background()

	first := answers.New(manager, "intake-wizard", "device-1")
	require.NoError(t, first.Update(ctx, domain.SectionWelcome, domain.Fields{"language": "pt"}))

	// A "reload" is a fresh Store over the same backend.
	second := answers.New(session.NewManager(backend), "intake-wizard", "device-1")
	fields, ok := second.Read(ctx, domain.SectionWelcome)
	require.True(t, ok)
	assert.Equal(t, "pt", fields["language"])

	// Another device sees nothing.
	stranger := answers.New(manager, "intake-wizard", "device-2")
	_, ok = stranger.Read(ctx, domain.SectionWelcome)
	assert.False(t, ok)
}

func TestStore_Reset(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Update(ctx, domain.SectionWelcome, domain.Fields{"language": "en"}))
	require.NoError(t, store.Update(ctx, domain.SectionSubmitSteps, domain.Fields{"vaccine": "no"}))

	require.NoError(t, store.Reset(ctx, domain.SectionWelcome))
	welcome, _ := store.Read(ctx, domain.SectionWelcome)
	assert.Empty(t, welcome)
	submit, _ := store.Read(ctx, domain.SectionSubmitSteps)
	assert.Equal(t, "no", submit["vaccine"])

	_, err := store.SetRoute(ctx, "/submit-steps/questionary/step3")
	require.NoError(t, err)
	require.NoError(t, store.ResetAll(ctx))
	for section, fields := range store.Snapshot(ctx) {
		assert.Empty(t, fields, "section %s", section)
	}
	assert.Empty(t, store.Route(ctx))
}

func TestStore_SetRoute(t *testing.T) {
	store, backend := newStore(t)
	ctx := context.Background()

	changed, err := store.SetRoute(ctx, "/welcome/step-2")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = store.SetRoute(ctx, "/welcome/step-2")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 1, backend.saves)
	assert.Equal(t, "/welcome/step-2", store.Route(ctx))
}

func TestStore_BrokenBackendNeverFailsReads(t *testing.T) {
	store := answers.New(session.NewManager(brokenStore{}), "", "device-1")
	ctx := context.Background()

	_, ok := store.Read(ctx, domain.SectionWelcome)
	assert.False(t, ok)

	snapshot := store.Snapshot(ctx)
	assert.Contains(t, snapshot, domain.SectionWelcome)
	assert.Empty(t, snapshot[domain.SectionWelcome])

	err := store.Update(ctx, domain.SectionWelcome, domain.Fields{"language": "en"})
	assert.ErrorIs(t, err, errBroken)
	assert.Equal(t, "intake-wizard:device-1", store.Key())
}

func TestStore_ConcurrentSectionsDoNotClobber(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.Update(ctx, domain.SectionWelcome, domain.Fields{"language": "en"}))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, store.Update(ctx, domain.SectionSubmitSteps, domain.Fields{"vaccine": "no"}))
		}()
	}
	wg.Wait()

	snapshot := store.Snapshot(ctx)
	assert.Equal(t, "en", snapshot[domain.SectionWelcome]["language"])
	assert.Equal(t, "no", snapshot[domain.SectionSubmitSteps]["vaccine"])
}
