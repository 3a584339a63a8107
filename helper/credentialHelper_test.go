package helper

import (
	"errors"
	"testing"

	"github.com/restoflow/orders-backend/models"
)

func TestEncryptDecryptCredentials_RoundTrip(t *testing.T) {
	key := DeriveKey("test-secret")
	plaintext := []byte(`{"access_token":"APP_USR-123","client_id":"abc"}`)

	blob, err := EncryptCredentials(key, plaintext)
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}

	decrypted, err := DecryptCredentials(key, blob)
	if err != nil {
		t.Fatalf("decrypt failed: %v", err)
	}
	if string(decrypted) != string(plaintext) {
		t.Errorf("round trip mismatch: got %q", decrypted)
	}
}

func TestDecryptCredentials_WrongKey(t *testing.T) {
	blob, err := EncryptCredentials(DeriveKey("secret-a"), []byte("payload"))
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}

	_, err = DecryptCredentials(DeriveKey("secret-b"), blob)
	if !errors.Is(err, models.ErrCredentialDecryption) {
		t.Errorf("expected ErrCredentialDecryption, got %v", err)
	}
}

func TestDecryptCredentials_GarbageBlob(t *testing.T) {
	key := DeriveKey("test-secret")
	for _, blob := range []string{"", "not base64!!", "c2hvcnQ="} {
		if _, err := DecryptCredentials(key, blob); !errors.Is(err, models.ErrCredentialDecryption) {
			t.Errorf("blob %q: expected ErrCredentialDecryption, got %v", blob, err)
		}
	}
}

func TestDeriveKey_Stable(t *testing.T) {
	a := DeriveKey("same-secret")
	b := DeriveKey("same-secret")
	if string(a) != string(b) {
		t.Error("key derivation is not deterministic")
	}
	if len(a) != 32 {
		t.Errorf("expected 32-byte key, got %d", len(a))
	}
}
