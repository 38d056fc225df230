package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/ports"
)

var (
	// ErrInvalidKey is returned for keys that are not 32 bytes (AES-256).
	ErrInvalidKey = errors.New("encryption key must be 32 bytes")
	// ErrNotEncrypted is returned when a stored script has no envelope and plaintext is not allowed.
	ErrNotEncrypted = errors.New("script is missing encrypted data envelope")
)

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey encrypts new data.
	ActiveKey []byte

	// FallbackKeys are tried when the active key cannot decrypt.
	// Rotating keys means moving the old active key here.
	FallbackKeys [][]byte

	// AllowPlaintext lets Load return scripts saved before encryption was enabled.
	// They are encrypted on their next Save.
	AllowPlaintext bool
}

// envelope is what the wrapped store sees instead of the graph.
type envelope struct {
	Encrypted string `json:"__encrypted__"`
}

type encryptionMiddleware struct {
	next   ports.ScriptStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that stores scripts sealed with AES-GCM.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	if len(config.ActiveKey) != 32 {
		return nil, ErrInvalidKey
	}
	for _, k := range config.FallbackKeys {
		if len(k) != 32 {
			return nil, fmt.Errorf("fallback key: %w", ErrInvalidKey)
		}
	}
	return func(next ports.ScriptStore) ports.ScriptStore {
		return &encryptionMiddleware{next: next, config: config}
	}, nil
}

// DecodeKey parses a base64 key as written in settings.
func DecodeKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	if len(key) != 32 {
		return nil, ErrInvalidKey
	}
	return key, nil
}

func (m *encryptionMiddleware) Save(ctx context.Context, name string, data []byte) error {
	ciphertext, err := encrypt(data, m.config.ActiveKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt script: %w", err)
	}
	sealed, err := json.Marshal(envelope{Encrypted: base64.StdEncoding.EncodeToString(ciphertext)})
	if err != nil {
		return err
	}
	return m.next.Save(ctx, name, sealed)
}

func (m *encryptionMiddleware) Load(ctx context.Context, name string) ([]byte, error) {
	data, err := m.next.Load(ctx, name)
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Encrypted == "" {
		if m.config.AllowPlaintext {
			return data, nil
		}
		return nil, fmt.Errorf("%s: %w", name, ErrNotEncrypted)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(env.Encrypted)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}
	plain, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt script %s: %w", name, err)
	}
	return plain, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, name string) error {
	return m.next.Delete(ctx, name)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}
	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, sealed := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, sealed, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
