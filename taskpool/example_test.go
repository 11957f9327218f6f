package taskpool_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/phrazzld/corekit/taskpool"
)

func Example() {
	pool := taskpool.New(func(ctx context.Context, n int) (int, error) {
		return n * 2, nil
	}, taskpool.Options{
		MaxHistorySize: 10,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	for _, n := range []int{1, 2, 3} {
		if _, err := pool.Enqueue(n); err != nil {
			fmt.Println("enqueue failed:", err)
			return
		}
	}

	// Runs execute one at a time in the background; poll until the pool
	// is idle.
	for pool.IsRunning() || pool.QueueSize() > 0 {
		time.Sleep(5 * time.Millisecond)
	}

	for _, run := range pool.History(0) {
		fmt.Println(run.Result)
	}

	stats := pool.Stats()
	fmt.Println(stats.TotalRuns, stats.CompletedRuns, stats.FailedRuns)

	if err := pool.Cleanup(context.Background()); err != nil {
		fmt.Println("cleanup failed:", err)
	}

	// Output:
	// 6
	// 4
	// 2
	// 3 3 0
}
