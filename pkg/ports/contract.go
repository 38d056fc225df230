package ports

import (
	"context"
	"testing"
	"time"

	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunScriptStoreContract runs a suite of tests to verify that a ScriptStore implementation
// adheres to the defined interface contract.
func RunScriptStoreContract(t *testing.T, store ScriptStore) {
	ctx := context.Background()
	name := "contract-" + time.Now().Format("20060102150405")
	graph := []byte(`{"nodes":[{"id":1,"type":"bot/start","properties":{}}],"links":[]}`)

	t.Run("Save and Load", func(t *testing.T) {
		err := store.Save(ctx, name, graph)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, name)
		require.NoError(t, err, "Load should not return error")
		assert.JSONEq(t, string(graph), string(loaded))
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		updated := []byte(`{"actions":[{"id":"1","type":"start"}]}`)
		require.NoError(t, store.Save(ctx, name, updated))

		loaded, err := store.Load(ctx, name)
		require.NoError(t, err)
		assert.JSONEq(t, string(updated), string(loaded))
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+name)
		assert.ErrorIs(t, err, domain.ErrScriptNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, name, graph))

		err := store.Delete(ctx, name)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, name)
		assert.ErrorIs(t, err, domain.ErrScriptNotFound, "Load after Delete should return ErrScriptNotFound")

		err = store.Delete(ctx, name)
		assert.ErrorIs(t, err, domain.ErrScriptNotFound)
	})

	t.Run("List", func(t *testing.T) {
		name1 := name + "-1"
		name2 := name + "-2"
		require.NoError(t, store.Save(ctx, name2, graph))
		require.NoError(t, store.Save(ctx, name1, graph))

		defer func() {
			_ = store.Delete(ctx, name1)
			_ = store.Delete(ctx, name2)
		}()

		names, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, names, name1)
		assert.Contains(t, names, name2)
		assert.IsNonDecreasing(t, names)
	})

	t.Run("Invalid Names", func(t *testing.T) {
		for _, bad := range []string{"", "../escape", "a/b"} {
			err := store.Save(ctx, bad, graph)
			assert.ErrorIs(t, err, domain.ErrInvalidScriptName, "name %q", bad)
		}
	})
}
