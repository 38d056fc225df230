package registry_test

import (
	"sync"
	"testing"

	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/registry"
	"github.com/stretchr/testify/assert"
)

func TestRegistry_RegisterReturnsShadowedAction(t *testing.T) {
	r := registry.NewRegistry()

	_, replaced := r.Register("continue", domain.SignalWait(0, "4"))
	assert.False(t, replaced)

	prev, replaced := r.Register("/continue ", domain.SignalWait(2, "1"))
	assert.True(t, replaced)
	assert.Equal(t, domain.SignalWait(0, "4"), prev)

	got, ok := r.Lookup("continue")
	assert.True(t, ok)
	assert.Equal(t, domain.SignalWait(2, "1"), got)
}

func TestRegistry_UnregisterAndClear(t *testing.T) {
	r := registry.NewRegistry()
	r.Register("farm", domain.StartSubgraph("7"))
	r.Register("continue", domain.SignalWait(0, "4"))
	assert.Equal(t, []string{"continue", "farm"}, r.Names())

	r.Unregister("/farm")
	_, ok := r.Lookup("farm")
	assert.False(t, ok)

	r.Clear()
	assert.Empty(t, r.Names())
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := registry.NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.Register("continue", domain.SignalWait(0, "1"))
		}()
		go func() {
			defer wg.Done()
			r.Lookup("continue")
		}()
	}
	wg.Wait()
	assert.Equal(t, []string{"continue"}, r.Names())
}
