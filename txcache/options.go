package txcache

import (
	"io"
	"log/slog"
)

// Option configures transactional caches and managers.
type Option func(*options)

type options struct {
	id     string
	logger *slog.Logger
}

// WithLogger sets the logger used for commit/rollback diagnostics and
// swallowed adapter failures. By default output is discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithID sets the manager identifier reported in logs. Sessions pass their own id.
func WithID(id string) Option {
	return func(o *options) {
		o.id = id
	}
}

func newOptions(opts []Option) options {
	o := options{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
