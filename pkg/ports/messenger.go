package ports

import (
	"context"

	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
)

// Messenger delivers notifications through an external messaging actor that runs
// its own event loop. Sends are asynchronous: the returned channel yields exactly
// one value (nil on success) and is then closed. Callers bound their wait.
type Messenger interface {
	SendDirectMessage(ctx context.Context, text string) <-chan error
	SendDirectMessageWithImage(ctx context.Context, text string, image []byte, filename string) <-chan error
}

// CommandDispatcher routes an external command into whatever script is running.
// It is safe for concurrent use by the messaging goroutines.
type CommandDispatcher interface {
	Dispatch(ctx context.Context, command string) domain.DispatchResult
}

// CommandSpec declares a command the messaging actor should expose.
type CommandSpec struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"desc" yaml:"desc"`
}

// Resolved returns a future that has already completed with err.
func Resolved(err error) <-chan error {
	ch := make(chan error, 1)
	ch <- err
	close(ch)
	return ch
}
