// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package workerspool runs batches of tasks on a bounded number of goroutines and collects their errors.
//
// Goroutines are started fresh for every task and joined before Run returns: there are no long-lived
// workers and no queue.
package workerspool

import (
	"sync"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Task is one unit of work. A panic with an error value inside a task (including runtime errors, such as
// an index out of range) is recovered and reported as its error.
type Task func() error

// ErrTaskPanic is wrapped by the error of a task that panicked.
var ErrTaskPanic = errors.New("workerspool: task panicked")

// Pool bounds the number of tasks running in parallel.
type Pool struct {
	// maxParallelism is the limit of tasks running at the same time.
	maxParallelism int
	mu             sync.Mutex
	cond           sync.Cond // Should be signaled whenever numRunning is decreased.
	numRunning     int
}

// New return a new Pool that runs at most maxParallelism tasks at the same time.
//
// If maxParallelism is 0 parallelism is disabled and tasks run inline, one after the other.
// If it is negative, parallelism is unlimited.
func New(maxParallelism int) *Pool {
	w := &Pool{maxParallelism: maxParallelism}
	w.cond = sync.Cond{L: &w.mu}
	return w
}

// IsEnabled returns whether parallelism is enabled (maxParallelism is != 0)
func (w *Pool) IsEnabled() bool {
	return w.maxParallelism != 0
}

// IsUnlimited returns whether parallelism is unlimited (maxParallelism < 0)
func (w *Pool) IsUnlimited() bool {
	return w.maxParallelism < 0
}

// MaxParallelism returns the limit of tasks running at the same time.
// If 0 parallelism is disabled, if -1 parallelism is unlimited.
func (w *Pool) MaxParallelism() int {
	return w.maxParallelism
}

// SetMaxParallelism sets the maxParallelism.
//
// You should only change the parallelism before any tasks start running. If changed during the execution
// the behavior is undefined.
func (w *Pool) SetMaxParallelism(maxParallelism int) {
	w.maxParallelism = maxParallelism
}

// lockedIsFull returns whether all available workers are in use.
//
// It must be called with Pool.mu acquired.
func (w *Pool) lockedIsFull() bool {
	if w.maxParallelism == 0 {
		return true
	} else if w.maxParallelism < 0 {
		return false
	}
	return w.numRunning >= w.maxParallelism
}

// WaitToStart waits until there is a worker available to run the task, and starts it in a new goroutine.
//
// If parallelism is disabled (maxParallelism is 0), it runs the task inline and returns when it is finished.
func (w *Pool) WaitToStart(task func()) {
	if w.IsUnlimited() {
		go task()
		return

	} else if w.maxParallelism == 0 {
		task()
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for w.lockedIsFull() {
		w.cond.Wait()
	}
	w.lockedRunTaskInGoroutine(task)
}

// lockedRunTaskInGoroutine and keep tabs on w.numRunning.
//
// It must be called with Pool.mu acquired.
func (w *Pool) lockedRunTaskInGoroutine(task func()) {
	w.numRunning++
	go func() {
		task()
		w.mu.Lock()
		w.numRunning--
		w.cond.Signal()
		w.mu.Unlock()
	}()
}

// RunAll runs every task and waits for all of them to finish, even if some fail.
// It returns the error of each task, indexed like tasks.
func (w *Pool) RunAll(tasks []Task) []error {
	errs := make([]error, len(tasks))
	var wg sync.WaitGroup
	wg.Add(len(tasks))
	for ii, task := range tasks {
		w.WaitToStart(func() {
			defer wg.Done()
			errs[ii] = runTask(task)
		})
	}
	wg.Wait()
	return errs
}

// Run runs every task, waits for all of them to finish and returns the first error, in task order.
// Other errors are logged.
func (w *Pool) Run(tasks []Task) error {
	var first error
	for ii, err := range w.RunAll(tasks) {
		if err == nil {
			continue
		}
		if first == nil {
			first = errors.WithMessagef(err, "task #%d of %d", ii, len(tasks))
			continue
		}
		klog.V(1).Infof("workerspool: task #%d also failed: %v", ii, err)
	}
	return first
}

// runTask converts a panic of the task into an error wrapping ErrTaskPanic.
func runTask(task Task) error {
	var taskErr error
	panicErr := exceptions.TryCatch[error](func() {
		taskErr = task()
	})
	if panicErr != nil {
		return errors.Wrapf(ErrTaskPanic, "%v", panicErr)
	}
	return taskErr
}
