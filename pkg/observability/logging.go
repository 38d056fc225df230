package observability

import (
	"context"
	"log/slog"

	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
)

// LoggingHooks writes an audit record for every lifecycle event.
// Node events go to Debug; runs and commands go to Info.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_enter",
				"run_id", e.RunID,
				"node", e.NodeID,
				"kind", e.Kind,
				"depth", e.Depth,
			)
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_leave",
				"run_id", e.RunID,
				"node", e.NodeID,
				"next", e.Next,
				"duration", e.Duration,
			)
		},
		OnRunStart: func(ctx context.Context, e *domain.RunEvent) {
			logger.InfoContext(ctx, "run_start", "run_id", e.RunID, "script", e.Script, "status", e.Status)
		},
		OnRunEnd: func(ctx context.Context, e *domain.RunEvent) {
			attrs := []any{"run_id", e.RunID, "script", e.Script, "status", e.Status}
			if e.Err != nil && e.Status == domain.StatusFailed {
				attrs = append(attrs, "err", e.Err)
			}
			logger.InfoContext(ctx, "run_end", attrs...)
		},
		OnCommand: func(ctx context.Context, e *domain.CommandEvent) {
			logger.InfoContext(ctx, "command", "run_id", e.RunID, "command", e.Command, "result", e.Result)
		},
	}
}
