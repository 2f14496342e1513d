package sqlexec

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/goliatone/go-txcache/executor"
	"github.com/goliatone/go-txcache/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

var (
	selectAll  = executor.NewStatement("users.selectAll", executor.KindSelect, "SELECT id, name FROM users ORDER BY id")
	selectByID = executor.NewStatement("users.selectByID", executor.KindSelect, "SELECT id, name FROM users WHERE id = #{id}")
	insertUser = executor.NewStatement("users.insert", executor.KindInsert, "INSERT INTO users (id, name) VALUES (#{id}, #{name})")
	renameUser = executor.NewStatement("users.rename", executor.KindUpdate, "UPDATE users SET name = #{name} WHERE id = #{id}")
)

func openTestDB(t *testing.T) *bun.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := database.Open(database.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	_, err = db.ExecContext(ctx, "CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL)")
	require.NoError(t, err)
	for i, name := range []string{"ann", "bob", "cid", "dee"} {
		_, err = db.ExecContext(ctx, "INSERT INTO users (id, name) VALUES (?, ?)", i+1, name)
		require.NoError(t, err)
	}
	return db
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprint(v)
	}
}

func names(rows []executor.Row) []string {
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, asString(row["name"]))
	}
	return out
}

func TestExecutor_Query(t *testing.T) {
	ctx := context.Background()
	exec := New(openTestDB(t))
	defer exec.Close(ctx, false)

	rows, err := exec.Query(ctx, selectAll, nil, executor.NoRowBounds, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"ann", "bob", "cid", "dee"}, names(rows))

	rows, err = exec.Query(ctx, selectAll, nil, executor.RowBounds{Offset: 1, Limit: 2}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "cid"}, names(rows))

	rows, err = exec.Query(ctx, selectByID, map[string]any{"id": 99}, executor.NoRowBounds, nil)
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)

	var streamed []string
	rows, err = exec.Query(ctx, selectAll, nil, executor.RowBounds{Limit: 3}, func(row executor.Row) error {
		streamed = append(streamed, asString(row["name"]))
		return nil
	})
	require.NoError(t, err)
	assert.Nil(t, rows)
	assert.Equal(t, []string{"ann", "bob", "cid"}, streamed)
}

func TestExecutor_QueryScansColumnTypes(t *testing.T) {
	ctx := context.Background()
	exec := New(openTestDB(t))
	defer exec.Close(ctx, false)

	st := executor.NewStatement("users.typed", executor.KindSelect,
		"SELECT id, name, NULL AS note FROM users WHERE id = #{id}")
	rows, err := exec.Query(ctx, st, map[string]any{"id": 1}, executor.NoRowBounds, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, executor.Row{"id": int64(1), "name": "ann", "note": nil}, rows[0])
}

func TestExecutor_QueryCursor(t *testing.T) {
	ctx := context.Background()
	exec := New(openTestDB(t))
	defer exec.Close(ctx, false)

	cursor, err := exec.QueryCursor(ctx, selectAll, nil, executor.RowBounds{Offset: 2})
	require.NoError(t, err)

	var got []string
	for cursor.Next(ctx) {
		got = append(got, asString(cursor.Row()["name"]))
	}
	require.NoError(t, cursor.Err())
	require.NoError(t, cursor.Close())
	assert.Equal(t, []string{"cid", "dee"}, got)
}

func TestExecutor_CommitAndRollback(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	writer := New(db)
	n, err := writer.Update(ctx, insertUser, map[string]any{"id": 5, "name": "eve"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.NoError(t, writer.Rollback(ctx, true))

	n, err = writer.Update(ctx, renameUser, map[string]any{"id": 1, "name": "amy"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.NoError(t, writer.Commit(ctx, true))
	require.NoError(t, writer.Close(ctx, false))
	assert.True(t, writer.IsClosed())

	reader := New(db)
	defer reader.Close(ctx, false)

	rows, err := reader.Query(ctx, selectByID, 5, executor.NoRowBounds, nil)
	require.NoError(t, err)
	assert.Empty(t, rows, "rolled back insert must not be visible")

	rows, err = reader.Query(ctx, selectByID, 1, executor.NoRowBounds, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"amy"}, names(rows))
}

func TestExecutor_CloseDiscardsOpenTransaction(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	writer := New(db)
	_, err := writer.Update(ctx, insertUser, map[string]any{"id": 6, "name": "fay"})
	require.NoError(t, err)
	require.NoError(t, writer.Close(ctx, false))
	require.NoError(t, writer.Close(ctx, false))

	_, err = writer.Query(ctx, selectAll, nil, executor.NoRowBounds, nil)
	assert.ErrorIs(t, err, executor.ErrExecutorClosed)

	reader := New(db)
	defer reader.Close(ctx, false)
	rows, err := reader.Query(ctx, selectByID, 6, executor.NoRowBounds, nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestExecutor_ExecutionErrorCarriesContext(t *testing.T) {
	ctx := executor.WithErrorContext(context.Background(), executor.ErrorContext{Resource: "users.yaml"})
	exec := New(openTestDB(t))
	defer exec.Close(ctx, false)

	broken := executor.NewStatement("users.broken", executor.KindSelect, "SELECT nope FROM missing_table")
	_, err := exec.Query(ctx, broken, nil, executor.NoRowBounds, nil)
	require.Error(t, err)

	var execErr *executor.ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, "users.yaml", execErr.Context.Resource)
	assert.Equal(t, "users.broken", execErr.Context.Object)
	assert.Equal(t, "querying", execErr.Context.Activity)

	_, err = exec.Query(ctx, selectByID, nil, executor.NoRowBounds, nil)
	require.True(t, errors.As(err, &execErr))
	assert.Contains(t, execErr.Error(), `"id"`)
}

func TestExecutor_CreateCacheKey(t *testing.T) {
	dev := New(nil, WithEnvironment("dev"))
	prod := New(nil, WithEnvironment("prod"))
	params := map[string]any{"id": 1}

	assert.Equal(t, dev.CreateCacheKey(selectByID, params, executor.NoRowBounds),
		dev.CreateCacheKey(selectByID, params, executor.NoRowBounds))
	assert.NotEqual(t, dev.CreateCacheKey(selectByID, params, executor.NoRowBounds),
		prod.CreateCacheKey(selectByID, params, executor.NoRowBounds))
	assert.NotEqual(t, dev.CreateCacheKey(selectByID, params, executor.NoRowBounds),
		dev.CreateCacheKey(selectByID, params, executor.RowBounds{Limit: 1}))
	assert.NotEqual(t, dev.CreateCacheKey(selectByID, params, executor.NoRowBounds),
		dev.CreateCacheKey(selectByID, map[string]any{"id": 2}, executor.NoRowBounds))
}
