package executor

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds statements by id. It is populated at startup and read by
// every session afterwards.
type Registry struct {
	mu         sync.RWMutex
	statements map[string]*Statement
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{statements: make(map[string]*Statement)}
}

// Add registers st. Registering the same id twice is an error.
func (r *Registry) Add(st *Statement) error {
	if st == nil || st.ID == "" {
		return &ConfigurationError{Message: "statement id is required"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.statements[st.ID]; exists {
		return &ConfigurationError{StatementID: st.ID, Message: "duplicate statement id"}
	}
	r.statements[st.ID] = st
	return nil
}

// Statement looks up a statement by id.
func (r *Registry) Statement(id string) (*Statement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st, ok := r.statements[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStatementNotFound, id)
	}
	return st, nil
}

// Statements returns every registered statement ordered by id.
func (r *Registry) Statements() []*Statement {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Statement, 0, len(r.statements))
	for _, st := range r.statements {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
