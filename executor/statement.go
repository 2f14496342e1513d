package executor

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-txcache/cache"
)

// Kind classifies a statement by what it does to the data source.
type Kind int

const (
	KindSelect Kind = iota
	KindInsert
	KindUpdate
	KindDelete
)

func (k Kind) String() string {
	switch k {
	case KindSelect:
		return "select"
	case KindInsert:
		return "insert"
	case KindUpdate:
		return "update"
	case KindDelete:
		return "delete"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind maps "select", "insert", "update" and "delete" (any case) to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "select":
		return KindSelect, nil
	case "insert":
		return KindInsert, nil
	case "update":
		return KindUpdate, nil
	case "delete":
		return KindDelete, nil
	default:
		return 0, fmt.Errorf("unknown statement kind %q", s)
	}
}

// ParamMode is the direction of a callable statement parameter.
type ParamMode int

const (
	ParamIn ParamMode = iota
	ParamOut
	ParamInOut
)

// ParseParamMode maps "in", "out" and "inout" (any case) to a ParamMode.
func ParseParamMode(s string) (ParamMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "in":
		return ParamIn, nil
	case "out":
		return ParamOut, nil
	case "inout":
		return ParamInOut, nil
	default:
		return 0, fmt.Errorf("unknown parameter mode %q", s)
	}
}

// Param declares one statement parameter.
type Param struct {
	Name string
	Mode ParamMode
}

// Statement is a named, pre-configured SQL statement together with its
// caching policy. SQL uses #{name} placeholders.
type Statement struct {
	ID       string
	Kind     Kind
	SQL      string
	Callable bool
	Params   []Param

	// UseCache enables the second-level cache for this statement's results.
	UseCache bool
	// FlushCacheRequired clears Cache before the statement runs.
	FlushCacheRequired bool
	// Cache is the namespace cache; nil disables caching entirely.
	Cache cache.Cache
}

// StatementOption customizes a Statement built by NewStatement.
type StatementOption func(*Statement)

// NewStatement builds a statement with the default policy for its kind:
// selects use the cache and never flush it, writes flush it and never use it.
func NewStatement(id string, kind Kind, sql string, opts ...StatementOption) *Statement {
	st := &Statement{
		ID:                 id,
		Kind:               kind,
		SQL:                sql,
		UseCache:           kind == KindSelect,
		FlushCacheRequired: kind != KindSelect,
	}
	for _, opt := range opts {
		opt(st)
	}
	return st
}

// WithCache attaches the namespace cache.
func WithCache(c cache.Cache) StatementOption {
	return func(st *Statement) {
		st.Cache = c
	}
}

// WithUseCache overrides the default use-cache policy.
func WithUseCache(use bool) StatementOption {
	return func(st *Statement) {
		st.UseCache = use
	}
}

// WithFlushCache overrides the default flush policy.
func WithFlushCache(flush bool) StatementOption {
	return func(st *Statement) {
		st.FlushCacheRequired = flush
	}
}

// WithCallable marks the statement as a stored procedure call.
func WithCallable() StatementOption {
	return func(st *Statement) {
		st.Callable = true
	}
}

// WithParams declares statement parameters.
func WithParams(params ...Param) StatementOption {
	return func(st *Statement) {
		st.Params = append(st.Params, params...)
	}
}

// HasOutParams reports whether any parameter is OUT or INOUT.
func (s *Statement) HasOutParams() bool {
	for _, p := range s.Params {
		if p.Mode != ParamIn {
			return true
		}
	}
	return false
}

// RowBounds restricts a query to a window of its rows. A non-positive Limit
// means no limit.
type RowBounds struct {
	Offset int
	Limit  int
}

// NoRowBounds returns every row.
var NoRowBounds = RowBounds{}

// IsDefault reports whether b selects every row.
func (b RowBounds) IsDefault() bool {
	return b.Offset <= 0 && b.Limit <= 0
}
