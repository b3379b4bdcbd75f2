package async

import (
	"context"
	"fmt"
	"time"
)

// Task represents an asynchronous operation with a name and function.
type Task struct {
	Name string
	Func func(context.Context) error
}

// Result is the outcome of one task.
type Result struct {
	Name     string
	Err      error
	Duration time.Duration
}

// RunAll executes tasks in parallel and waits for all of them. Results are
// returned in task order.
//
// Example:
//
//	results := RunAll(ctx, []Task{
//	    {Name: "device", Func: checkDevice},
//	    {Name: "checkpoint store", Func: checkStore},
//	})
func RunAll(ctx context.Context, tasks []Task) []Result {
	results := make([]Result, len(tasks))
	done := make(chan struct{}, len(tasks))

	for i, task := range tasks {
		go func() {
			start := time.Now()
			err := task.Func(ctx)
			results[i] = Result{Name: task.Name, Err: err, Duration: time.Since(start)}
			done <- struct{}{}
		}()
	}

	for range len(tasks) {
		<-done
	}
	return results
}

// RunParallel executes tasks in parallel and returns the first error in task
// order after all tasks finished.
func RunParallel(ctx context.Context, tasks []Task) error {
	for _, res := range RunAll(ctx, tasks) {
		if res.Err != nil {
			return fmt.Errorf("%s: %w", res.Name, res.Err)
		}
	}
	return nil
}

// Failed returns the results that carry an error.
func Failed(results []Result) []Result {
	var out []Result
	for _, res := range results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}
