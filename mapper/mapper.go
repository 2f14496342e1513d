package mapper

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-txcache/cache"
	"github.com/goliatone/go-txcache/executor"
	"gopkg.in/yaml.v3"
)

// CacheProvider returns the underlying cache for a namespace.
type CacheProvider func(namespace string, cfg cache.Config) (cache.Cache, error)

// Mapper is one parsed mapper document: a namespace, its cache settings and
// its statements.
type Mapper struct {
	Namespace  string          `yaml:"namespace"`
	Cache      *CacheSpec      `yaml:"cache"`
	Statements []StatementSpec `yaml:"statements"`
}

// CacheSpec overlays cache.DefaultConfig. Zero values keep the default.
type CacheSpec struct {
	Enabled            *bool         `yaml:"enabled"`
	Backend            string        `yaml:"backend"`
	Capacity           int           `yaml:"capacity"`
	NumShards          int           `yaml:"numShards"`
	TTL                time.Duration `yaml:"ttl"`
	EvictionPercentage int           `yaml:"evictionPercentage"`
	EvictionInterval   time.Duration `yaml:"evictionInterval"`
	Blocking           bool          `yaml:"blocking"`
	BlockingTimeout    time.Duration `yaml:"blockingTimeout"`
}

// StatementSpec describes one statement. UseCache and FlushCache default by
// kind when omitted.
type StatementSpec struct {
	ID         string      `yaml:"id"`
	Kind       string      `yaml:"kind"`
	SQL        string      `yaml:"sql"`
	Callable   bool        `yaml:"callable"`
	UseCache   *bool       `yaml:"useCache"`
	FlushCache *bool       `yaml:"flushCache"`
	Params     []ParamSpec `yaml:"params"`
}

// ParamSpec describes one statement parameter.
type ParamSpec struct {
	Name string `yaml:"name"`
	Mode string `yaml:"mode"`
}

// Load parses a mapper document.
func Load(r io.Reader) (*Mapper, error) {
	var m Mapper
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("mapper: empty document")
		}
		return nil, fmt.Errorf("mapper: decode: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadFile parses the mapper document at path.
func LoadFile(path string) (*Mapper, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mapper: %w", err)
	}
	defer f.Close()

	m, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Validate checks the document structure. Kinds and modes are checked too so
// that a bad file fails at load time.
func (m *Mapper) Validate() error {
	if err := validation.ValidateStruct(m,
		validation.Field(&m.Namespace, validation.Required),
		validation.Field(&m.Statements, validation.Required),
	); err != nil {
		return fmt.Errorf("mapper: %w", err)
	}

	seen := make(map[string]bool, len(m.Statements))
	for i, st := range m.Statements {
		if err := validation.ValidateStruct(&st,
			validation.Field(&st.ID, validation.Required),
			validation.Field(&st.SQL, validation.Required),
		); err != nil {
			return fmt.Errorf("mapper: %s statement %d: %w", m.Namespace, i, err)
		}
		if seen[st.ID] {
			return &executor.ConfigurationError{StatementID: m.qualify(st.ID), Message: "duplicate statement id"}
		}
		seen[st.ID] = true

		if _, err := st.kind(); err != nil {
			return &executor.ConfigurationError{StatementID: m.qualify(st.ID), Message: err.Error()}
		}
		if _, err := st.params(); err != nil {
			return &executor.ConfigurationError{StatementID: m.qualify(st.ID), Message: err.Error()}
		}
	}
	return nil
}

// CacheConfig resolves the namespace cache configuration. The second result
// is false when the namespace has no cache.
func (m *Mapper) CacheConfig() (cache.Config, bool) {
	cfg := cache.DefaultConfig()
	spec := m.Cache
	if spec == nil || (spec.Enabled != nil && !*spec.Enabled) {
		return cfg, false
	}

	if spec.Backend != "" {
		cfg.Backend = cache.Backend(spec.Backend)
	}
	if spec.Capacity != 0 {
		cfg.Capacity = spec.Capacity
	}
	if spec.NumShards != 0 {
		cfg.NumShards = spec.NumShards
	}
	if spec.TTL != 0 {
		cfg.TTL = spec.TTL
	}
	if spec.EvictionPercentage != 0 {
		cfg.EvictionPercentage = spec.EvictionPercentage
	}
	if spec.EvictionInterval != 0 {
		cfg.EvictionInterval = spec.EvictionInterval
	}
	cfg.Blocking = spec.Blocking
	cfg.BlockingTimeout = spec.BlockingTimeout
	return cfg, true
}

// Register creates the namespace cache through provider, when the namespace
// has one, and adds every statement to reg under "namespace.id".
func (m *Mapper) Register(reg *executor.Registry, provider CacheProvider) error {
	var c cache.Cache
	if cfg, ok := m.CacheConfig(); ok {
		if provider == nil {
			provider = cache.New
		}
		var err error
		if c, err = provider(m.Namespace, cfg); err != nil {
			return fmt.Errorf("mapper: cache for %s: %w", m.Namespace, err)
		}
	}

	for _, spec := range m.Statements {
		st, err := m.statement(spec, c)
		if err != nil {
			return err
		}
		if err := reg.Add(st); err != nil {
			return err
		}
	}
	return nil
}

func (m *Mapper) statement(spec StatementSpec, c cache.Cache) (*executor.Statement, error) {
	kind, err := spec.kind()
	if err != nil {
		return nil, &executor.ConfigurationError{StatementID: m.qualify(spec.ID), Message: err.Error()}
	}
	params, err := spec.params()
	if err != nil {
		return nil, &executor.ConfigurationError{StatementID: m.qualify(spec.ID), Message: err.Error()}
	}

	opts := []executor.StatementOption{executor.WithParams(params...)}
	if c != nil {
		opts = append(opts, executor.WithCache(c))
	}
	if spec.Callable {
		opts = append(opts, executor.WithCallable())
	}
	if spec.UseCache != nil {
		opts = append(opts, executor.WithUseCache(*spec.UseCache))
	}
	if spec.FlushCache != nil {
		opts = append(opts, executor.WithFlushCache(*spec.FlushCache))
	}

	return executor.NewStatement(m.qualify(spec.ID), kind, spec.SQL, opts...), nil
}

func (m *Mapper) qualify(id string) string {
	return m.Namespace + "." + id
}

func (s StatementSpec) kind() (executor.Kind, error) {
	if s.Kind == "" {
		return executor.KindSelect, nil
	}
	return executor.ParseKind(s.Kind)
}

func (s StatementSpec) params() ([]executor.Param, error) {
	out := make([]executor.Param, 0, len(s.Params))
	for _, p := range s.Params {
		mode, err := executor.ParseParamMode(p.Mode)
		if err != nil {
			return nil, err
		}
		out = append(out, executor.Param{Name: p.Name, Mode: mode})
	}
	return out, nil
}
