package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Add(NewStatement("b.select", KindSelect, "SELECT 2")))
	require.NoError(t, reg.Add(NewStatement("a.select", KindSelect, "SELECT 1")))

	err := reg.Add(NewStatement("a.select", KindSelect, "SELECT 3"))
	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "a.select", cfgErr.StatementID)

	st, err := reg.Statement("a.select")
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", st.SQL)

	_, err = reg.Statement("missing")
	assert.ErrorIs(t, err, ErrStatementNotFound)

	ids := []string{}
	for _, st := range reg.Statements() {
		ids = append(ids, st.ID)
	}
	assert.Equal(t, []string{"a.select", "b.select"}, ids)
}

func TestErrorContext(t *testing.T) {
	ctx := WithErrorContext(context.Background(), ErrorContext{Resource: "users.yaml", Activity: "querying"})
	ctx = WithErrorContext(ctx, ErrorContext{Object: "users.selectByID", SQL: "SELECT *\n  FROM users"})

	ec := ErrorContextFrom(ctx)
	assert.Equal(t, "users.yaml", ec.Resource)
	assert.Equal(t, "users.selectByID", ec.Object)

	err := NewExecutionError(ctx, errDataSource)
	assert.ErrorIs(t, err, errDataSource)
	assert.Equal(t,
		"execution failed (resource=users.yaml activity=querying object=users.selectByID sql=SELECT * FROM users): data source failure",
		err.Error())

	assert.Equal(t, ErrorContext{}, ErrorContextFrom(context.Background()))
}
