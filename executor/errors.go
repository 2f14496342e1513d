package executor

import (
	"errors"
	"fmt"
)

var (
	// ErrExecutorClosed is returned by every operation on a closed executor.
	ErrExecutorClosed = errors.New("executor was closed")

	// ErrStatementNotFound is returned when a statement id is not registered.
	ErrStatementNotFound = errors.New("statement not found")
)

// ConfigurationError reports a statement whose configuration cannot be honoured.
type ConfigurationError struct {
	StatementID string
	Message     string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error in statement %s: %s", e.StatementID, e.Message)
}
