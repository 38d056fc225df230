/*
Package observability provides lifecycle hooks for monitoring the engine:
Prometheus metrics for node visits, node durations, run outcomes and command
dispatch, and structured audit logging of the same events.
*/
package observability
