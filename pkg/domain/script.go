package domain

import (
	"fmt"
	"strings"
)

// ValidateScriptName rejects names that are empty or could address anything
// outside a store's own namespace.
func ValidateScriptName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: empty", ErrInvalidScriptName)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidScriptName, name)
	case strings.ContainsAny(name, `/\`+"\x00"):
		return fmt.Errorf("%w: %q", ErrInvalidScriptName, name)
	}
	return nil
}
