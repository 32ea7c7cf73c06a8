package middleware_test

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"testing"

	"github.com/aretw0/intake/pkg/adapters/memory"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/persistence/middleware"
	"github.com/aretw0/intake/pkg/ports"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		t.Fatal(err)
	}
	return k
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	mw := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	ports.RunRecordStoreContract(t, mw(memory.NewStore()))
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlyingStore := NewMockStore()
	key := generateKey(t)
	mw := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
	secureStore := mw(underlyingStore)

	ctx := context.Background()
	recordKey := "intake-wizard:device-1"
	original := domain.NewRecord("intake-wizard")
	original.Route = "/welcome/step-2"
	original.Sections[domain.SectionWelcome]["patientId"] = "12345678"

	if err := secureStore.Save(ctx, recordKey, original); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	stored, err := underlyingStore.Load(ctx, recordKey)
	if err != nil {
		t.Fatalf("Underlying load failed: %v", err)
	}
	if _, ok := stored.Sections[domain.SectionWelcome]; ok {
		t.Fatal("Expected welcome section to be hidden")
	}
	if stored.Route != "" {
		t.Fatalf("Expected route to be hidden, found: %v", stored.Route)
	}
	if _, ok := stored.Sections["__encrypted__"]["payload"]; !ok {
		t.Fatal("Expected encrypted payload in envelope")
	}

	loaded, err := secureStore.Load(ctx, recordKey)
	if err != nil {
		t.Fatalf("Load via middleware failed: %v", err)
	}
	if loaded.Sections[domain.SectionWelcome]["patientId"] != "12345678" {
		t.Errorf("Expected '12345678', got %v", loaded.Sections[domain.SectionWelcome]["patientId"])
	}
	if loaded.Route != "/welcome/step-2" {
		t.Errorf("Expected route to survive, got %q", loaded.Route)
	}
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlyingStore := NewMockStore()
	oldKey := generateKey(t)
	newKey := generateKey(t)

	secureStoreOld := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: oldKey})(underlyingStore)

	ctx := context.Background()
	recordKey := "rotation"
	original := domain.NewRecord("intake-wizard")
	original.Sections[domain.SectionWelcome]["language"] = "encrypted-with-old-key"

	if err := secureStoreOld.Save(ctx, recordKey, original); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	secureStoreNew := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})(underlyingStore)

	loaded, err := secureStoreNew.Load(ctx, recordKey)
	if err != nil {
		t.Fatalf("Load with rotated key failed: %v", err)
	}
	if loaded.Sections[domain.SectionWelcome]["language"] != "encrypted-with-old-key" {
		t.Errorf("Decryption with fallback key failed")
	}

	loaded.Sections[domain.SectionWelcome]["language"] = "encrypted-with-new-key"
	if err := secureStoreNew.Save(ctx, recordKey, loaded); err != nil {
		t.Fatalf("Save with new key failed: %v", err)
	}

	if _, err = secureStoreOld.Load(ctx, recordKey); err == nil {
		t.Error("Expected failure when loading new-key encryption with old-key middleware")
	}
}

func TestEncryptionMiddleware_RejectsPlainRecords(t *testing.T) {
	underlyingStore := NewMockStore()
	ctx := context.Background()
	_ = underlyingStore.Save(ctx, "plain", domain.NewRecord("intake-wizard"))

	secureStore := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlyingStore)
	_, err := secureStore.Load(ctx, "plain")
	if !errors.Is(err, middleware.ErrMissingEnvelope) {
		t.Fatalf("expected ErrMissingEnvelope, got %v", err)
	}
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("Expected panic for invalid key size")
		}
	}()
	middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
}
