// Package worker runs fixed-size pools of goroutines that drain a
// queue.Queue and execute the algorithm a Task names, converting any
// panic into an internal-error response so a single bad request never
// takes a worker down.
//
// The supervisory shape (N goroutines in an errgroup, shut down
// together) follows a typical graceful-shutdown pattern, generalized
// from an HTTP server's single listener goroutine to a fixed worker
// count; golang.org/x/sync/errgroup does the supervising.
package worker

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/passbi/dynaroute/internal/queue"
)

// Handler executes one task and returns the response line to write
// back to the requesting connection, or an error. Handler must not
// panic for ordinary domain errors; it should return them instead.
// Handler may still panic on a genuine programming error, which Pool
// recovers and converts to a generic failure response.
type Handler func(t *queue.Task) (response string, err error)

// Pool runs n goroutines pulling tasks from q and running fn on each.
type Pool struct {
	name string
	q    *queue.Queue
	fn   Handler
	n    int
}

// NewPool returns a Pool of n workers named name (used only for log
// lines), draining q with fn.
func NewPool(name string, q *queue.Queue, n int, fn Handler) *Pool {
	return &Pool{name: name, q: q, fn: fn, n: n}
}

// Run starts the pool's workers and blocks until all of them have
// exited. A worker exits once the pool's queue is closed and drained,
// or when it finds ctx cancelled before popping its next task; a worker
// already blocked in Pop keeps waiting until the queue is closed.
// Workers always return nil, since runTask recovers handler panics, so
// Run returns nil.
func (p *Pool) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for i := 0; i < p.n; i++ {
		id := i
		g.Go(func() error {
			p.loop(ctx, id)
			return nil
		})
	}

	return g.Wait()
}

func (p *Pool) loop(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		task, ok := p.q.Pop()
		if !ok {
			return
		}

		response, err := p.runTask(task)
		task.Complete(response, err)
	}
}

// runTask invokes the handler, converting a panic into ERR INTERNAL so
// the worker goroutine survives to process the next task.
func (p *Pool) runTask(task *queue.Task) (response string, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("worker: %s pool recovered from panic handling task %s: %v", p.name, task.ID, r)
			response = ""
			err = fmt.Errorf("worker: internal error: %v", r)
		}
	}()
	return p.fn(task)
}
