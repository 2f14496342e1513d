package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/goliatone/go-txcache/executor"
	"github.com/google/uuid"
)

// ErrTooManyResults is returned by SelectOne when more than one row matches.
var ErrTooManyResults = errors.New("expected one result but found several")

// Session is a unit of work: one executor, one physical transaction at a
// time, one transactional cache manager. It is not safe for concurrent use.
type Session struct {
	id       uuid.UUID
	exec     executor.Executor
	registry *executor.Registry
	logger   *slog.Logger
	dirty    bool
}

// New binds exec and registry into a session. Most callers use Factory.Open.
func New(id uuid.UUID, exec executor.Executor, registry *executor.Registry, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Session{
		id:       id,
		exec:     exec,
		registry: registry,
		logger:   logger.With("session", id.String()),
	}
}

// ID identifies the session.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Dirty reports whether the session wrote since the last commit or rollback.
func (s *Session) Dirty() bool {
	return s.dirty
}

// SelectList runs the named select and returns every row.
func (s *Session) SelectList(ctx context.Context, statementID string, params any) ([]executor.Row, error) {
	return s.SelectPage(ctx, statementID, params, executor.NoRowBounds)
}

// SelectPage runs the named select and returns the rows inside bounds.
func (s *Session) SelectPage(ctx context.Context, statementID string, params any, bounds executor.RowBounds) ([]executor.Row, error) {
	st, err := s.statement(statementID)
	if err != nil {
		return nil, err
	}
	return s.exec.Query(ctx, st, params, bounds, nil)
}

// SelectOne runs the named select and returns its only row, or nil when
// nothing matches.
func (s *Session) SelectOne(ctx context.Context, statementID string, params any) (executor.Row, error) {
	rows, err := s.SelectList(ctx, statementID, params)
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, nil
	case 1:
		return rows[0], nil
	default:
		return nil, fmt.Errorf("%w: %s returned %d rows", ErrTooManyResults, statementID, len(rows))
	}
}

// Select streams the rows of the named select to handler. Streamed results
// are never cached.
func (s *Session) Select(ctx context.Context, statementID string, params any, bounds executor.RowBounds, handler executor.ResultHandler) error {
	if handler == nil {
		return fmt.Errorf("select %s: result handler is required", statementID)
	}
	st, err := s.statement(statementID)
	if err != nil {
		return err
	}
	_, err = s.exec.Query(ctx, st, params, bounds, handler)
	return err
}

// SelectCursor opens a cursor over the named select.
func (s *Session) SelectCursor(ctx context.Context, statementID string, params any, bounds executor.RowBounds) (executor.Cursor, error) {
	st, err := s.statement(statementID)
	if err != nil {
		return nil, err
	}
	return s.exec.QueryCursor(ctx, st, params, bounds)
}

// Insert runs the named insert.
func (s *Session) Insert(ctx context.Context, statementID string, params any) (int64, error) {
	return s.Update(ctx, statementID, params)
}

// Update runs the named write statement and marks the session dirty.
func (s *Session) Update(ctx context.Context, statementID string, params any) (int64, error) {
	st, err := s.statement(statementID)
	if err != nil {
		return 0, err
	}
	s.dirty = true
	return s.exec.Update(ctx, st, params)
}

// Delete runs the named delete.
func (s *Session) Delete(ctx context.Context, statementID string, params any) (int64, error) {
	return s.Update(ctx, statementID, params)
}

// Commit commits the transaction and publishes cached reads. The physical
// commit is required when the session is dirty or force is set.
func (s *Session) Commit(ctx context.Context, force bool) error {
	required := s.dirty || force
	err := s.exec.Commit(ctx, required)
	s.dirty = false
	if err != nil {
		return fmt.Errorf("commit session %s: %w", s.id, err)
	}
	s.logger.Debug("session committed", "required", required)
	return nil
}

// Rollback discards the transaction and every buffered cache write.
func (s *Session) Rollback(ctx context.Context, force bool) error {
	required := s.dirty || force
	err := s.exec.Rollback(ctx, required)
	s.dirty = false
	if err != nil {
		return fmt.Errorf("rollback session %s: %w", s.id, err)
	}
	s.logger.Debug("session rolled back", "required", required)
	return nil
}

// Close ends the session. Uncommitted writes are rolled back; otherwise
// buffered reads are published.
func (s *Session) Close(ctx context.Context) error {
	if s.exec.IsClosed() {
		return nil
	}
	err := s.exec.Close(ctx, s.dirty)
	s.dirty = false
	if err != nil {
		return fmt.Errorf("close session %s: %w", s.id, err)
	}
	return nil
}

func (s *Session) statement(id string) (*executor.Statement, error) {
	if s.exec.IsClosed() {
		return nil, executor.ErrExecutorClosed
	}
	return s.registry.Statement(id)
}
