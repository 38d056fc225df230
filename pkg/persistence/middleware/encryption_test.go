package middleware_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"io"
	"testing"

	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/adapters/memory"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/persistence/middleware"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const graph = `{"actions":[{"id":1,"type":"start","properties":{"message":"my-secret-sauce"}}]}`

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func encrypted(t *testing.T, next ports.ScriptStore, cfg middleware.EncryptionConfig) ports.ScriptStore {
	mw, err := middleware.NewEncryptionMiddleware(cfg)
	require.NoError(t, err)
	return middleware.Chain(next, mw)
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	store := encrypted(t, memory.NewStore(), middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	ports.RunScriptStoreContract(t, store)
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlying := memory.NewStore()
	store := encrypted(t, underlying, middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "farm", []byte(graph)))

	raw, err := underlying.Load(ctx, "farm")
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "my-secret-sauce")
	assert.Contains(t, string(raw), "__encrypted__")

	plain, err := store.Load(ctx, "farm")
	require.NoError(t, err)
	assert.JSONEq(t, graph, string(plain))

	names, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"farm"}, names)
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlying := memory.NewStore()
	oldKey, newKey := generateKey(t), generateKey(t)
	ctx := context.Background()

	oldStore := encrypted(t, underlying, middleware.EncryptionConfig{ActiveKey: oldKey})
	require.NoError(t, oldStore.Save(ctx, "farm", []byte(graph)))

	newStore := encrypted(t, underlying, middleware.EncryptionConfig{ActiveKey: newKey, FallbackKeys: [][]byte{oldKey}})
	plain, err := newStore.Load(ctx, "farm")
	require.NoError(t, err)
	assert.JSONEq(t, graph, string(plain))

	require.NoError(t, newStore.Save(ctx, "farm", plain))
	_, err = oldStore.Load(ctx, "farm")
	assert.Error(t, err, "old key alone cannot read data sealed with the new key")
}

func TestEncryptionMiddleware_Plaintext(t *testing.T) {
	underlying := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, underlying.Save(ctx, "legacy", []byte(graph)))
	key := generateKey(t)

	strict := encrypted(t, underlying, middleware.EncryptionConfig{ActiveKey: key})
	_, err := strict.Load(ctx, "legacy")
	assert.ErrorIs(t, err, middleware.ErrNotEncrypted)

	lenient := encrypted(t, underlying, middleware.EncryptionConfig{ActiveKey: key, AllowPlaintext: true})
	plain, err := lenient.Load(ctx, "legacy")
	require.NoError(t, err)
	assert.JSONEq(t, graph, string(plain))

	_, err = lenient.Load(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrScriptNotFound)
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
	assert.ErrorIs(t, err, middleware.ErrInvalidKey)

	_, err = middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t), FallbackKeys: [][]byte{{1, 2}}})
	assert.ErrorIs(t, err, middleware.ErrInvalidKey)
}

func TestDecodeKey(t *testing.T) {
	key := generateKey(t)
	got, err := middleware.DecodeKey(base64.StdEncoding.EncodeToString(key))
	require.NoError(t, err)
	assert.Equal(t, key, got)

	_, err = middleware.DecodeKey("not base64!")
	assert.Error(t, err)
	_, err = middleware.DecodeKey(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.ErrorIs(t, err, middleware.ErrInvalidKey)
}
