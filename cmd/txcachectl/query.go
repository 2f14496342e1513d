package main

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-txcache/cache"
	"github.com/goliatone/go-txcache/executor"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newQueryCmd())
}

func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <mapper> <statement> [name=value...]",
		Short: "Run a select twice and report whether the cache served it",
		Long: `The query command runs a select statement in one session, commits it,
then runs it again in a second session. The first run publishes its result to
the shared cache on commit, so the second run should be a hit.

Example:
  txcachectl query users.yaml users.selectByID id=1 --setup schema.sql
  txcachectl query users.yaml users.selectAll --json`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd.Context(), args)
		},
	}
	return cmd
}

type queryRun struct {
	Session  string         `json:"session"`
	Cached   bool           `json:"cached"`
	Rows     []executor.Row `json:"rows"`
	Duration time.Duration  `json:"duration_ns"`
}

func runQuery(ctx context.Context, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	params, err := parseParams(args[2:])
	if err != nil {
		return err
	}

	env, err := openEnvironment(ctx, args[0])
	if err != nil {
		return err
	}
	defer env.Close()

	stmt, runs, err := queryTwice(ctx, env, args[1], params)
	if err != nil {
		return err
	}
	key := statementKey(env, stmt, params)

	if jsonOut {
		return printJSON(map[string]any{
			"statement": stmt.ID,
			"key":       string(key),
			"runs":      runs,
		})
	}

	printInfo("Statement: %s\n", stmt.ID)
	printVerbose("Cache key: %s\n", key)
	for i, run := range runs {
		outcome := "miss"
		if run.Cached {
			outcome = "hit"
		}
		printInfo("\nRun %d (%s): %s, %d row(s) in %v\n", i+1, run.Session, outcome, len(run.Rows), run.Duration)
		for _, row := range run.Rows {
			printInfo("  %v\n", row)
		}
	}
	return nil
}

// queryTwice runs a select in two consecutive sessions, probing the shared
// cache before each.
func queryTwice(ctx context.Context, env *environment, statementID string, params map[string]any) (*executor.Statement, []queryRun, error) {
	stmt, err := env.container.Registry().Statement(statementID)
	if err != nil {
		return nil, nil, err
	}
	if stmt.Kind != executor.KindSelect {
		return nil, nil, fmt.Errorf("statement %s is a %s, query only runs selects", stmt.ID, stmt.Kind)
	}

	key := statementKey(env, stmt, params)
	factory := env.container.SessionFactory(env.db)

	var runs []queryRun
	for i := 0; i < 2; i++ {
		cached, err := peekCache(ctx, stmt, key)
		if err != nil {
			return nil, nil, err
		}

		s := factory.Open()
		start := time.Now()
		rows, err := s.SelectList(ctx, stmt.ID, params)
		elapsed := time.Since(start)
		if err != nil {
			s.Close(ctx)
			return nil, nil, err
		}
		if err := s.Commit(ctx, false); err != nil {
			s.Close(ctx)
			return nil, nil, err
		}
		if err := s.Close(ctx); err != nil {
			return nil, nil, err
		}

		runs = append(runs, queryRun{Session: s.ID().String(), Cached: cached, Rows: rows, Duration: elapsed})
	}
	return stmt, runs, nil
}

func statementKey(env *environment, stmt *executor.Statement, params map[string]any) cache.Key {
	return cache.NewStatementKey(env.container.KeySerializer(), stmt.ID, 0, 0, stmt.SQL, params, env.container.Environment())
}

// peekCache reports whether the shared cache holds key. A blocking store locks
// a key on a miss, so the check releases it right away.
func peekCache(ctx context.Context, stmt *executor.Statement, key cache.Key) (bool, error) {
	if stmt.Cache == nil || !stmt.UseCache {
		return false, nil
	}
	_, ok, err := stmt.Cache.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if !ok {
		if err := stmt.Cache.Remove(ctx, key); err != nil {
			return false, err
		}
	}
	return ok, nil
}
