package tests

import (
	"context"
	"testing"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/ports"
)

// AttachmentStoreContractTest is a reusable test suite that verifies if an adapter complies with ports.AttachmentStore.
func AttachmentStoreContractTest(t *testing.T, store ports.AttachmentStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("Put_Get", func(t *testing.T) {
		a := domain.Attachment{Field: "cough", Filename: "cough.wav", Data: []byte("RIFF")}
		if err := store.Put(ctx, "device-1", "cough/recording", a); err != nil {
			t.Fatalf("unexpected error putting attachment: %v", err)
		}
		got, ok := store.Get(ctx, "device-1", "cough/recording")
		if !ok {
			t.Fatal("expected attachment to be found")
		}
		if string(got.Data) != "RIFF" || got.Filename != "cough.wav" {
			t.Errorf("unexpected attachment: %+v", got)
		}
	})

	t.Run("Owners_Are_Isolated", func(t *testing.T) {
		if _, ok := store.Get(ctx, "device-2", "cough/recording"); ok {
			t.Error("attachment leaked to another owner")
		}
	})

	t.Run("Clear", func(t *testing.T) {
		if err := store.Clear(ctx, "device-1"); err != nil {
			t.Fatalf("unexpected error clearing: %v", err)
		}
		if _, ok := store.Get(ctx, "device-1", "cough/recording"); ok {
			t.Error("expected attachment to be cleared")
		}
	})
}
