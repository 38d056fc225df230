package ports

import "context"

// ScriptStore persists raw graph descriptions by script name.
// The stored bytes are whatever the editor produced; compiling them is not the store's job.
type ScriptStore interface {
	// Load returns the raw description of a script.
	// Returns domain.ErrScriptNotFound if the script does not exist.
	Load(ctx context.Context, name string) ([]byte, error)

	// Save creates or replaces a script.
	Save(ctx context.Context, name string, data []byte) error

	// Delete removes a script. Deleting a missing script returns domain.ErrScriptNotFound.
	Delete(ctx context.Context, name string) error

	// List returns the names of all stored scripts, sorted.
	List(ctx context.Context) ([]string, error)
}
