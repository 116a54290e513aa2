package toolserver

import (
	"errors"
	"fmt"
)

var (
	// ErrCatalogUnavailable the tool catalog could not be fetched or was malformed
	ErrCatalogUnavailable = errors.New("tool catalog unavailable")

	// ErrToolNotFound the requested tool is not exposed by the service
	ErrToolNotFound = errors.New("tool not found")
)

// InvocationError reports a failed tool call. Body preserves the raw error
// payload from the service so it can be surfaced to the user unmodified.
type InvocationError struct {
	ToolName   string
	StatusCode int
	Body       string
}

func (e *InvocationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("tool %q failed with status %d: %s", e.ToolName, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("tool %q failed: %s", e.ToolName, e.Body)
}
