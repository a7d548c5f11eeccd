// Command dfkctl is a small demonstration CLI for the dataflow kernel: it
// submits a diamond-shaped dependency graph (A feeds B and C, both of
// which feed D) onto a local executor and prints each task's outcome.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joeycumines/dfk"
	"github.com/joeycumines/dfk/executor"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var workers int
	var retries int
	var eagerFail bool
	var configPath string

	cmd := &cobra.Command{
		Use:   "dfkctl",
		Short: "Run a demonstration dataflow graph against the local executor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiamond(cmd.Context(), workers, retries, eagerFail, configPath)
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 4, "maximum concurrent local tasks")
	cmd.Flags().IntVar(&retries, "retries", 2, "execution retries before a task is marked failed")
	cmd.Flags().BoolVar(&eagerFail, "eager-fail", false, "panic on the first task failure instead of continuing")
	cmd.Flags().StringVar(&configPath, "config", "", "path to a config file providing globals.* and executors.* sections")

	return cmd
}

func runDiamond(ctx context.Context, workers, retries int, eagerFail bool, configPath string) error {
	opts := []dfk.Option{
		dfk.WithFailRetries(retries),
		dfk.WithLazyFail(!eagerFail),
	}
	if configPath != "" {
		opts = append(opts, dfk.WithConfigFile(configPath), dfk.WithExecutorFactory(executor.Factory))
	} else {
		opts = append(opts, dfk.WithExecutor("local", executor.NewLocal(workers)))
	}

	k, err := dfk.NewKernel(opts...)
	if err != nil {
		return fmt.Errorf("dfkctl: new kernel: %w", err)
	}
	defer k.Cleanup(ctx)

	a := k.Submit(func(args []any, kwargs map[string]any) (any, error) {
		return 1, nil
	}, nil, nil, nil)

	b := k.Submit(func(args []any, kwargs map[string]any) (any, error) {
		return args[0].(int) + 10, nil
	}, nil, []any{a}, nil)

	c := k.Submit(func(args []any, kwargs map[string]any) (any, error) {
		return args[0].(int) + 100, nil
	}, nil, []any{a}, nil)

	d := k.Submit(func(args []any, kwargs map[string]any) (any, error) {
		return args[0].(int) + args[1].(int), nil
	}, nil, []any{b, c}, nil)

	names := []string{"A", "B", "C", "D"}
	handles := []*dfk.Handle{a, b, c, d}
	for i, h := range handles {
		value, err := h.Result()
		if err != nil {
			fmt.Printf("task %s: error: %v\n", names[i], err)
			continue
		}
		fmt.Printf("task %s: %v\n", names[i], value)
	}

	counts := k.StatusCounts()
	fmt.Printf("done=%d failed=%d dep_failed=%d\n", counts[dfk.Done], counts[dfk.Failed], counts[dfk.DepFailed])
	return nil
}
