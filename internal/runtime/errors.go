package runtime

import (
	"errors"
	"fmt"

	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
)

// StructuralError aborts the current graph walk. Err is one of the domain sentinels
// (missing start node, dangling successor, recursion ceiling, out-of-scope break).
type StructuralError struct {
	Script string
	NodeID domain.NodeID
	Err    error
}

func (e *StructuralError) Error() string {
	where := e.Script
	if where == "" {
		where = "main"
	}
	if e.NodeID.IsZero() {
		return fmt.Sprintf("script '%s': %v", where, e.Err)
	}
	return fmt.Sprintf("script '%s' node '%s': %v", where, e.NodeID, e.Err)
}

func (e *StructuralError) Unwrap() error {
	return e.Err
}

// IsStopped reports whether err is a cancellation outcome rather than a failure.
func IsStopped(err error) bool {
	return errors.Is(err, domain.ErrStopped)
}
