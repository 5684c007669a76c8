package middleware_test

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aretw0/chaptree/pkg/adapters/memory"
	"github.com/aretw0/chaptree/pkg/domain"
	"github.com/aretw0/chaptree/pkg/persistence/middleware"
	"github.com/aretw0/chaptree/pkg/ports"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		t.Fatal(err)
	}
	return k
}

func sealedStore(t *testing.T, next ports.DocumentStore, cfg middleware.EncryptionConfig) ports.DocumentStore {
	t.Helper()
	mw, err := middleware.NewEncryptionMiddleware(cfg)
	if err != nil {
		t.Fatalf("NewEncryptionMiddleware failed: %v", err)
	}
	return mw(next)
}

func secretDocument(id, name string) *domain.Document {
	forest, _ := domain.NewForest(domain.NewNode("root", name, []string{"m1"}))
	return domain.NewDocument(id, forest)
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlyingStore := NewMockStore()
	secureStore := sealedStore(t, underlyingStore, middleware.EncryptionConfig{ActiveKey: generateKey(t)})

	ctx := context.Background()
	original := secretDocument("secret-doc", "my-secret-sauce")
	original.Revision = 3

	if err := secureStore.Save(ctx, original); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	stored, err := underlyingStore.Load(ctx, "secret-doc")
	if err != nil {
		t.Fatalf("Underlying load failed: %v", err)
	}
	if stored.Revision != 3 {
		t.Errorf("Expected revision to stay visible, got %d", stored.Revision)
	}
	if stored.Forest.Root(0).ID() != middleware.EnvelopeNodeID {
		t.Fatalf("Expected envelope chapter, got %s", stored.Forest.Root(0).ID())
	}
	if strings.Contains(stored.Forest.Root(0).Name(), "my-secret-sauce") {
		t.Fatal("Expected chapter names to be hidden")
	}

	loaded, err := secureStore.Load(ctx, "secret-doc")
	if err != nil {
		t.Fatalf("Load via middleware failed: %v", err)
	}
	if !loaded.Forest.Equal(original.Forest) {
		t.Errorf("Expected forest to survive, got %v", loaded.Forest.Root(0).Name())
	}
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlyingStore := NewMockStore()
	oldKey := generateKey(t)
	newKey := generateKey(t)

	secureStoreOld := sealedStore(t, underlyingStore, middleware.EncryptionConfig{ActiveKey: oldKey})
	ctx := context.Background()

	if err := secureStoreOld.Save(ctx, secretDocument("rotation", "old key")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	secureStoreNew := sealedStore(t, underlyingStore, middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})

	loaded, err := secureStoreNew.Load(ctx, "rotation")
	if err != nil {
		t.Fatalf("Load with rotated key failed: %v", err)
	}
	if loaded.Forest.Root(0).Name() != "old key" {
		t.Errorf("Decryption with fallback key failed")
	}

	if err := secureStoreNew.Save(ctx, secretDocument("rotation", "new key")); err != nil {
		t.Fatalf("Save with new key failed: %v", err)
	}

	if _, err := secureStoreOld.Load(ctx, "rotation"); err == nil {
		t.Error("Expected failure when loading new-key encryption with old-key middleware")
	}
}

func TestEncryptionMiddleware_RejectsPlainDocuments(t *testing.T) {
	underlyingStore := NewMockStore()
	ctx := context.Background()
	if err := underlyingStore.Save(ctx, secretDocument("plain", "visible")); err != nil {
		t.Fatal(err)
	}

	secureStore := sealedStore(t, underlyingStore, middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	_, err := secureStore.Load(ctx, "plain")
	if !errors.Is(err, middleware.ErrNotSealed) {
		t.Errorf("Expected ErrNotSealed, got %v", err)
	}
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	if _, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")}); err == nil {
		t.Error("Expected error for invalid key size")
	}
}

func TestChain_Contract(t *testing.T) {
	mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	if err != nil {
		t.Fatal(err)
	}
	store := middleware.Chain(memory.NewStore(), middleware.NewValidationMiddleware(), mw)
	ports.RunDocumentStoreContract(t, store)
}
