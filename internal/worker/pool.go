// Package worker provides a bounded concurrent pool for running one
// logical task per law: HTTP I/O within a single law's pipeline is
// sequential, but many laws may be in flight at once across the pool.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/ternarybob/arbor"
)

// Task is a unit of work the pool runs for a single law. Implementations
// are expected to do their own internal sequencing (e.g. a 7-stage
// pipeline) and respect ctx cancellation.
type Task func(ctx context.Context, name string) error

// Pool runs Task against a bounded set of names with a fixed worker count.
type Pool struct {
	logger     arbor.ILogger
	numWorkers int
}

// New creates a Pool with the given worker concurrency. A numWorkers <= 0
// is treated as 1.
func New(logger arbor.ILogger, numWorkers int) *Pool {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	return &Pool{logger: logger, numWorkers: numWorkers}
}

// Result carries the outcome of running Task against a single name.
type Result struct {
	Name string
	Err  error
}

// Run fans out task across names using the pool's worker count and
// returns one Result per name, in no particular order. Run blocks until
// every name has been processed or ctx is cancelled.
func (p *Pool) Run(ctx context.Context, names []string, task Task) []Result {
	in := make(chan string, len(names))
	for _, n := range names {
		in <- n
	}
	close(in)

	out := make(chan Result, len(names))
	var wg sync.WaitGroup

	for i := 0; i < p.numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case name, ok := <-in:
					if !ok {
						return
					}
					p.logger.Debug().
						Int("worker_id", workerID).
						Str("law", name).
						Msg("Worker picked up law")

					err := p.runTask(ctx, task, name, workerID)
					if err != nil {
						p.logger.Error().
							Err(err).
							Int("worker_id", workerID).
							Str("law", name).
							Msg("Law processing failed")
					}
					out <- Result{Name: name, Err: err}
				}
			}
		}(i)
	}

	wg.Wait()
	close(out)

	results := make([]Result, 0, len(names))
	for r := range out {
		results = append(results, r)
	}
	return results
}

// runTask invokes task with panic recovery, so one law's pipeline
// blowing up can't take down the worker goroutine and deadlock the
// pool's WaitGroup.
func (p *Pool) runTask(ctx context.Context, task Task, name string, workerID int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			p.logger.Error().
				Int("worker_id", workerID).
				Str("law", name).
				Str("panic", fmt.Sprintf("%v", r)).
				Str("stack", string(buf[:n])).
				Msg("recovered from panic in worker task")
			err = fmt.Errorf("panic processing %s: %v", name, r)
		}
	}()
	return task(ctx, name)
}
