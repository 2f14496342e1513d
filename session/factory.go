package session

import (
	"database/sql"
	"io"
	"log/slog"

	"github.com/goliatone/go-txcache/cache"
	"github.com/goliatone/go-txcache/executor"
	"github.com/goliatone/go-txcache/sqlexec"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Option configures a Factory.
type Option func(*Factory)

// WithEnvironment sets the environment id folded into cache keys.
func WithEnvironment(env string) Option {
	return func(f *Factory) {
		f.environment = env
	}
}

// WithKeySerializer sets the serializer used to build cache keys.
func WithKeySerializer(serializer cache.KeySerializer) Option {
	return func(f *Factory) {
		f.serializer = serializer
	}
}

// WithTxOptions sets the options every session begins its transaction with.
func WithTxOptions(opts *sql.TxOptions) Option {
	return func(f *Factory) {
		f.txOptions = opts
	}
}

// WithLogger sets the logger handed to sessions and their cache managers.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Factory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// Factory opens sessions that share one database and one statement registry.
// It is safe for concurrent use; the sessions it returns are not.
type Factory struct {
	db          *bun.DB
	registry    *executor.Registry
	environment string
	serializer  cache.KeySerializer
	txOptions   *sql.TxOptions
	logger      *slog.Logger
}

// NewFactory creates a session factory.
func NewFactory(db *bun.DB, registry *executor.Registry, opts ...Option) *Factory {
	f := &Factory{
		db:          db,
		registry:    registry,
		environment: "default",
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Registry returns the statements sessions can run.
func (f *Factory) Registry() *executor.Registry {
	return f.registry
}

// Open starts a new session. The physical transaction begins on first use.
func (f *Factory) Open() *Session {
	id := uuid.New()

	sqlExec := sqlexec.New(f.db,
		sqlexec.WithEnvironment(f.environment),
		sqlexec.WithKeySerializer(f.serializer),
		sqlexec.WithTxOptions(f.txOptions),
		sqlexec.WithLogger(f.logger),
	)
	exec := executor.NewCaching(sqlExec,
		executor.WithLogger(f.logger),
		executor.WithManagerID(id.String()),
	)
	return New(id, exec, f.registry, f.logger)
}
