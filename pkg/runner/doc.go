/*
Package runner supervises top-level script runs.

The Supervisor is the bridge between the engine and the outside world: it
starts a run in the background, registers the command hooks of its entry and
wait nodes, interprets commands dispatched by a messaging event loop, and
reports the run's status. At most one run is active at a time.

# Key Components

  - Supervisor: owns the active run, its cancellation and the device lease.
  - SignalManager: turns Ctrl+C into a stop request for CLI runs.

# Usage

	sup := runner.NewSupervisor(engine, runner.WithLogger(logger))

	if _, err := sup.Start(ctx, "daily"); err != nil {
		log.Fatal(err)
	}

	// From the chat bot goroutine:
	result := sup.Dispatch(ctx, "continue")

	info, _ := sup.Wait(ctx)
	fmt.Println(info.Status)
*/
package runner
