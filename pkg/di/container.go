package di

import (
	"io"
	"log/slog"
	"sort"
	"sync"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-txcache/cache"
	"github.com/goliatone/go-txcache/executor"
	"github.com/goliatone/go-txcache/mapper"
	"github.com/goliatone/go-txcache/repositorycache"
	"github.com/goliatone/go-txcache/session"
	"github.com/uptrace/bun"
)

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the logger handed to every component the container builds.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithEnvironment sets the environment id folded into statement cache keys.
func WithEnvironment(env string) Option {
	return func(c *Container) {
		c.environment = env
	}
}

// Container wires the transactional cache components together. It owns one
// underlying cache per namespace, created on first use, plus the statement
// registry and key serializer shared by every session and repository.
type Container struct {
	mu            sync.Mutex
	config        cache.Config
	keySerializer cache.KeySerializer
	caches        map[string]cache.Cache
	registry      *executor.Registry
	environment   string
	logger        *slog.Logger
}

// NewContainer creates a new DI container with the provided cache configuration.
// The configuration is the default for namespaces that do not bring their own.
func NewContainer(config cache.Config, opts ...Option) (*Container, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	c := &Container{
		config:        config,
		keySerializer: cache.NewDefaultKeySerializer(cache.WithMaxKeyLength(config.MaxKeyLength)),
		caches:        make(map[string]cache.Cache),
		registry:      executor.NewRegistry(),
		environment:   "default",
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewContainerWithDefaults creates a new DI container using default configuration.
func NewContainerWithDefaults(opts ...Option) (*Container, error) {
	return NewContainer(cache.DefaultConfig(), opts...)
}

// Config returns a copy of the default cache configuration.
func (c *Container) Config() cache.Config {
	return c.config
}

// KeySerializer returns the shared key serializer.
func (c *Container) KeySerializer() cache.KeySerializer {
	return c.keySerializer
}

// Environment returns the environment id folded into statement cache keys.
func (c *Container) Environment() string {
	return c.environment
}

// Registry returns the shared statement registry.
func (c *Container) Registry() *executor.Registry {
	return c.registry
}

// Cache returns the cache for namespace, creating it with the container
// configuration on first use.
func (c *Container) Cache(namespace string) (cache.Cache, error) {
	return c.CacheFor(namespace, c.config)
}

// CacheFor returns the cache for namespace, creating it with cfg on first
// use. Later calls return the existing cache whatever cfg they pass. It
// satisfies mapper.CacheProvider.
func (c *Container) CacheFor(namespace string, cfg cache.Config) (cache.Cache, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.caches[namespace]; ok {
		return existing, nil
	}

	created, err := cache.New(namespace, cfg)
	if err != nil {
		return nil, err
	}
	c.caches[namespace] = created
	c.logger.Debug("cache created", "cache", namespace, "backend", cfg.Backend, "blocking", cfg.Blocking)
	return created, nil
}

// Namespaces lists the namespaces that have a cache, sorted.
func (c *Container) Namespaces() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, 0, len(c.caches))
	for namespace := range c.caches {
		out = append(out, namespace)
	}
	sort.Strings(out)
	return out
}

// LoadMapper parses a mapper document and registers its statements.
func (c *Container) LoadMapper(r io.Reader) error {
	m, err := mapper.Load(r)
	if err != nil {
		return err
	}
	return m.Register(c.registry, c.CacheFor)
}

// LoadMapperFile parses the mapper document at path and registers its statements.
func (c *Container) LoadMapperFile(path string) error {
	m, err := mapper.LoadFile(path)
	if err != nil {
		return err
	}
	return m.Register(c.registry, c.CacheFor)
}

// SessionFactory returns a factory for sessions over db that share the
// container's registry, serializer and logger.
func (c *Container) SessionFactory(db *bun.DB, opts ...session.Option) *session.Factory {
	base := []session.Option{
		session.WithEnvironment(c.environment),
		session.WithKeySerializer(c.keySerializer),
		session.WithLogger(c.logger),
	}
	return session.NewFactory(db, c.registry, append(base, opts...)...)
}

// NewCachedRepository creates a new cached repository that wraps the provided
// base repository with the cache of namespace.
//
// Since Go methods cannot have type parameters, this is provided as a package-level function.
// Example: NewCachedRepository[User](container, "users", baseUserRepository)
func NewCachedRepository[T any](container *Container, namespace string, base repository.Repository[T]) (*repositorycache.CachedRepository[T], error) {
	c, err := container.Cache(namespace)
	if err != nil {
		return nil, err
	}
	return repositorycache.New(base, c, container.keySerializer, repositorycache.WithLogger(container.logger)), nil
}
