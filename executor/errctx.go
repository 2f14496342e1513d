package executor

import (
	"context"
	"strings"
)

// ErrorContext describes what was running when an error happened. It travels
// in the context.Context passed down the call chain.
type ErrorContext struct {
	Resource string
	Activity string
	Object   string
	SQL      string
}

type errorContextKey struct{}

// WithErrorContext returns a context carrying ec. Empty fields keep the value
// already present in ctx.
func WithErrorContext(ctx context.Context, ec ErrorContext) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	merged := ErrorContextFrom(ctx)
	if ec.Resource != "" {
		merged.Resource = ec.Resource
	}
	if ec.Activity != "" {
		merged.Activity = ec.Activity
	}
	if ec.Object != "" {
		merged.Object = ec.Object
	}
	if ec.SQL != "" {
		merged.SQL = ec.SQL
	}

	return context.WithValue(ctx, errorContextKey{}, merged)
}

// ErrorContextFrom returns the ErrorContext carried by ctx, or the zero value.
func ErrorContextFrom(ctx context.Context) ErrorContext {
	if ctx == nil {
		return ErrorContext{}
	}
	if ec, ok := ctx.Value(errorContextKey{}).(ErrorContext); ok {
		return ec
	}
	return ErrorContext{}
}

// String renders the non-empty fields on one line.
func (ec ErrorContext) String() string {
	var parts []string
	if ec.Resource != "" {
		parts = append(parts, "resource="+ec.Resource)
	}
	if ec.Activity != "" {
		parts = append(parts, "activity="+ec.Activity)
	}
	if ec.Object != "" {
		parts = append(parts, "object="+ec.Object)
	}
	if ec.SQL != "" {
		parts = append(parts, "sql="+strings.Join(strings.Fields(ec.SQL), " "))
	}
	return strings.Join(parts, " ")
}

// ExecutionError wraps a data source failure with the ErrorContext that was
// active when it happened.
type ExecutionError struct {
	Context ErrorContext
	Err     error
}

// NewExecutionError wraps err with the ErrorContext carried by ctx.
func NewExecutionError(ctx context.Context, err error) *ExecutionError {
	return &ExecutionError{Context: ErrorContextFrom(ctx), Err: err}
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	if desc := e.Context.String(); desc != "" {
		return "execution failed (" + desc + "): " + e.Err.Error()
	}
	return "execution failed: " + e.Err.Error()
}

// Unwrap exposes the underlying failure.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}
