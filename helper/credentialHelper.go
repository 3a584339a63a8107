package helper

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"os"

	"github.com/restoflow/orders-backend/models"
	"golang.org/x/crypto/pbkdf2"
)

var CREDENTIALS_KEY string = os.Getenv("CREDENTIALS_KEY")

// keySalt is fixed: the derived key must be stable across restarts so stored
// credential blobs stay readable.
var keySalt = []byte("restoflow-gateway-credentials")

const keyIterations = 4096

// DeriveKey stretches the configured secret into a 32-byte AES key.
func DeriveKey(secret string) []byte {
	return pbkdf2.Key([]byte(secret), keySalt, keyIterations, 32, sha256.New)
}

// CredentialKey returns the AES key for the credential store, derived from the
// CREDENTIALS_KEY environment variable.
func CredentialKey() []byte {
	return DeriveKey(CREDENTIALS_KEY)
}

// EncryptCredentials seals a plaintext credential blob with AES-256-GCM and
// returns it base64 encoded, nonce prepended.
func EncryptCredentials(key []byte, plaintext []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("credential encrypt: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("credential encrypt: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("credential encrypt: %w", err)
	}
	sealed := gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptCredentials opens a blob produced by EncryptCredentials. Any failure
// (bad base64, short blob, wrong key, tampered data) is reported as
// models.ErrCredentialDecryption; callers treat it as configuration absence.
func DecryptCredentials(key []byte, blob string) ([]byte, error) {
	sealed, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrCredentialDecryption, err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrCredentialDecryption, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrCredentialDecryption, err)
	}
	if len(sealed) < gcm.NonceSize() {
		return nil, fmt.Errorf("%w: blob too short", models.ErrCredentialDecryption)
	}
	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrCredentialDecryption, err)
	}
	return plaintext, nil
}
