/*
Package bbscript drives an Android emulator from visual automation graphs.

A script is a graph of nodes (taps, swipes, image and pixel checks, timed
waits, loops, calls into other scripts and chat-driven pauses) drawn in a node
editor and stored as JSON. The engine compiles the editor output into flat node
records and walks them one node at a time against pluggable collaborators: a
Device that taps and captures the screen, a Recognizer that locates template
images, and a Messenger that delivers direct messages.

# Concept

Each walk owns its execution state (node outputs, loop counters and the loop
stack), while the command registry and wait bridge let another goroutine, such
as a chat bot, resume a node suspended on a discord_wait or start a walk at a
discord_slash entry point.

# Usage

	eng := bbscript.New(
		bbscript.WithStore(store),
		bbscript.WithDevice(device),
		bbscript.WithRecognizer(recognizer),
	)

	nodes, err := eng.LoadScript(ctx, "daily")
	if err != nil {
		log.Fatal(err)
	}

	session := eng.NewSession("run-1", "daily", nodes)
	if err := session.Walk(ctx, ""); err != nil && !bbscript.IsStopped(err) {
		log.Fatal(err)
	}

Long-running use (one active run, stop requests, slash-command listening) is
handled by the Supervisor in package runner.
*/
package bbscript
