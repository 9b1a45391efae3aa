// Package jobs models asynchronous load jobs against the warehouse. The store
// submits a load and hands back a Job; callers poll it to a terminal state the
// same way a warehouse load-job handle is polled.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

type State string

const (
	StateRunning State = "RUNNING"
	StateDone    State = "DONE"
	StateFailed  State = "FAILED"
)

var ErrWaitTimeout = errors.New("load job did not finish in time")

type Job struct {
	mu    sync.Mutex
	state State
	err   error
}

// Start runs fn on its own goroutine and returns a handle for it.
func Start(fn func() error) *Job {
	j := &Job{state: StateRunning}
	go func() {
		err := fn()
		j.mu.Lock()
		if err != nil {
			j.state = StateFailed
			j.err = err
		} else {
			j.state = StateDone
		}
		j.mu.Unlock()
	}()
	return j
}

// Failed returns an already-terminal job, for submissions that never started.
func Failed(err error) *Job {
	return &Job{state: StateFailed, err: err}
}

func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Wait polls the job at interval until it reaches a terminal state. The wait
// is bounded: a job still running after timeout fails the wait rather than
// blocking the run forever.
func Wait(ctx context.Context, j *Job, interval, timeout time.Duration) error {
	if j == nil {
		return nil
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		switch j.State() {
		case StateDone:
			return nil
		case StateFailed:
			return j.Err()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("%w (after %s)", ErrWaitTimeout, timeout)
		case <-tick.C:
		}
	}
}
