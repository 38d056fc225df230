package registry

import (
	"sort"
	"strings"
	"sync"

	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
)

// DefaultCommand is the command name a discord_wait node answers to when none is configured.
const DefaultCommand = "continue"

// Registry maps command names to command actions.
// It is written by the execution goroutine and read by messaging goroutines.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]domain.CommandAction
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		actions: make(map[string]domain.CommandAction),
	}
}

// Normalize trims a command name and strips a leading slash.
func Normalize(name string) string {
	return strings.TrimPrefix(strings.TrimSpace(name), "/")
}

// Register binds a command to an action.
// If the command was already bound, the previous action is returned with replaced=true.
func (r *Registry) Register(name string, action domain.CommandAction) (prev domain.CommandAction, replaced bool) {
	name = Normalize(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, replaced = r.actions[name]
	r.actions[name] = action
	return prev, replaced
}

// Unregister removes a command binding.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.actions, Normalize(name))
}

// Lookup returns the action bound to a command.
func (r *Registry) Lookup(name string) (domain.CommandAction, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actions[Normalize(name)]
	return a, ok
}

// Clear removes every binding.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = make(map[string]domain.CommandAction)
}

// Names returns the bound command names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.actions))
	for name := range r.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
