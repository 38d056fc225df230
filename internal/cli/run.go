package cli

import (
	"context"
	"time"

	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/runner"
)

// runStopTimeout bounds how long Close waits for a stopped run to unwind.
// A wait node sleeps through cancellation, so this covers the longest usual wait.
const runStopTimeout = 15 * time.Second

// RunScript starts a stored script, turns Ctrl+C into a stop request and
// blocks until the run ends.
func RunScript(ctx context.Context, app *App, script string) (domain.RunInfo, error) {
	if _, err := app.Supervisor.Start(ctx, script); err != nil {
		return domain.RunInfo{}, err
	}

	sm := runner.NewSignalManager()
	defer sm.Stop()
	done := make(chan struct{})
	defer close(done)
	go sm.Forward(done, app.Supervisor.Stop)

	return app.Supervisor.Wait(ctx)
}
