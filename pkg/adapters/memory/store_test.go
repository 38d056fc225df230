package memory_test

import (
	"context"
	"testing"

	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/adapters/memory"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunScriptStoreContract(t, store)
}

func TestMemoryStore_CopiesOnReadAndWrite(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	doc := []byte(`[{"id":"1","type":"start"}]`)
	require.NoError(t, store.Save(ctx, "copy", doc))
	doc[0] = '{'

	got, err := store.Load(ctx, "copy")
	require.NoError(t, err)
	assert.Equal(t, byte('['), got[0])

	got[0] = 'x'
	again, _ := store.Load(ctx, "copy")
	assert.Equal(t, byte('['), again[0])
}
