// Package runtime walks compiled node graphs: it owns the per-run execution state,
// the built-in node handlers, loop and subgraph scoping, and the bridge that lets a
// node wait on commands delivered by another goroutine.
package runtime
