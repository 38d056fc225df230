// Package middleware decorates script stores.
package middleware

import "github.com/Superfang0726/Better-BlueStacks-Script/pkg/ports"

// Middleware allows wrapping a ScriptStore to add behavior.
type Middleware func(ports.ScriptStore) ports.ScriptStore

// Chain applies middlewares so the first one listed is the outermost.
func Chain(store ports.ScriptStore, mws ...Middleware) ports.ScriptStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
