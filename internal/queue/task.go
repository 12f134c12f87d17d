// Package queue implements the two FIFO task queues: a
// producer/multiple-consumer structure protected by a mutex and
// condition variable, carrying Task records between connection
// handlers and workers.
//
// The one-shot completion channel on Task is one acceptable design for
// handing a result back to a blocked caller (a future would serve
// equally well); the google/uuid request id tags each unit of work for
// traceability the way distributed request-handling code commonly
// does.
package queue

import "github.com/google/uuid"

// Task is a transient request record: a handler creates one, pushes it
// onto a Queue, and blocks on Done until a worker calls Complete. The
// handler owns every field until Complete is called; afterward only
// Response/Err may be read.
type Task struct {
	ID   uuid.UUID
	Kind Kind

	// Framing records which wire format the request line arrived in,
	// so the handler can answer in kind.
	Framing Framing

	// Route parameters (Kind == Route).
	Start, Target int
	Strategy      string

	// Update parameters (Kind == Update).
	EdgeID int
	Speed  float64
	Pos    float64
	HasPos bool

	// Predict parameters (Kind == Predict). Reuses EdgeID above.

	done     chan struct{}
	Response string
	Err      error
}

// Kind identifies which algorithm a Task runs.
type Kind int

const (
	Route Kind = iota
	Update
	Predict
)

// Framing identifies which wire format a request/response line uses.
// Defined here, rather than in internal/protocol, so that a Task can
// remember how it arrived without protocol importing queue and queue
// importing protocol back.
type Framing int

const (
	FramingText Framing = iota
	FramingJSON
)

// New returns a Task ready to be pushed onto a Queue. Kind-specific
// fields must be set by the caller before pushing.
func New(kind Kind) *Task {
	return &Task{
		ID:   uuid.New(),
		Kind: kind,
		done: make(chan struct{}),
	}
}

// Complete records the task's outcome and wakes whoever is waiting on
// Done. Complete must be called exactly once, by the worker that
// drained the task.
func (t *Task) Complete(response string, err error) {
	t.Response = response
	t.Err = err
	close(t.done)
}

// Done returns a channel that is closed once Complete has been called.
// The handler blocks on this after pushing the task.
func (t *Task) Done() <-chan struct{} {
	return t.done
}
