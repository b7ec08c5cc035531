// Package scheduler implements a single-threaded cooperative task loop:
// every state transition touching core-owned state (cast store,
// subscriber table, pending requests, registry) runs as a closure
// drained from one channel, so no two handlers are ever in flight at
// once. facade.Node.Start runs the loop on its own goroutine.
package scheduler

import "context"

// Actor drains posted closures one at a time, in order, on its own
// goroutine. Posting from inside a running closure still waits for the
// current one to finish — this gives a handler that calls Post a fresh
// scheduling turn instead of running reentrantly.
type Actor struct {
	tasks chan func()
}

func NewActor() *Actor {
	return &Actor{tasks: make(chan func(), 256)}
}

// Run drains tasks until ctx is done, then returns nil.
func (a *Actor) Run(ctx context.Context) error {
	for {
		select {
		case f := <-a.tasks:
			f()
		case <-ctx.Done():
			return nil
		}
	}
}

// Post enqueues f to run on the actor goroutine. Safe to call from any
// goroutine, including from within a running task.
func (a *Actor) Post(f func()) {
	a.tasks <- f
}
