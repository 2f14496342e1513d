package main

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	benchSessions    int
	benchIterations  int
	benchConcurrency int
)

func init() {
	cmd := newBenchCmd()
	cmd.Flags().IntVarP(&benchSessions, "sessions", "n", 10, "Number of sessions to open")
	cmd.Flags().IntVarP(&benchIterations, "iterations", "i", 10, "Selects per session")
	cmd.Flags().IntVarP(&benchConcurrency, "concurrency", "c", 4, "Sessions running at the same time")
	rootCmd.AddCommand(cmd)
}

func newBenchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench <mapper> <statement> [name=value...]",
		Short: "Run a select from many concurrent sessions",
		Long: `The bench command opens --sessions sessions, --concurrency at a time,
and runs the select --iterations times in each before committing. It reports
throughput and the size of the shared cache afterwards.

Example:
  txcachectl bench users.yaml users.selectByID id=1 --setup schema.sql -n 100 -c 8`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(cmd.Context(), args)
		},
	}
	return cmd
}

func runBench(ctx context.Context, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if benchSessions < 1 || benchIterations < 1 || benchConcurrency < 1 {
		return fmt.Errorf("sessions, iterations and concurrency must be at least 1")
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

	stmt, err := env.container.Registry().Statement(args[1])
	if err != nil {
		return err
	}
	factory := env.container.SessionFactory(env.db)

	var rows atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(benchConcurrency)

	start := time.Now()
	for i := 0; i < benchSessions; i++ {
		g.Go(func() error {
			s := factory.Open()
			defer s.Close(gctx)

			for j := 0; j < benchIterations; j++ {
				result, err := s.SelectList(gctx, stmt.ID, params)
				if err != nil {
					return err
				}
				rows.Add(int64(len(result)))
			}
			return s.Commit(gctx, false)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	elapsed := time.Since(start)

	selects := benchSessions * benchIterations
	cacheSize := 0
	if stmt.Cache != nil {
		cacheSize = stmt.Cache.Size()
	}

	if jsonOut {
		return printJSON(map[string]any{
			"statement":   stmt.ID,
			"sessions":    benchSessions,
			"selects":     selects,
			"rows":        rows.Load(),
			"elapsed_ns":  elapsed,
			"per_second":  float64(selects) / elapsed.Seconds(),
			"cache_size":  cacheSize,
			"concurrency": benchConcurrency,
		})
	}

	printInfo("Statement:   %s\n", stmt.ID)
	printInfo("Sessions:    %d (concurrency %d)\n", benchSessions, benchConcurrency)
	printInfo("Selects:     %d (%d rows)\n", selects, rows.Load())
	printInfo("Elapsed:     %v (%.0f selects/s)\n", elapsed, float64(selects)/elapsed.Seconds())
	printInfo("Cache size:  %d\n", cacheSize)
	return nil
}
