// Package spawn implements the cross-goroutine task queue that feeds the
// window loop.
package spawn

import (
	"errors"
	"log/slog"
	"sync"
)

// ErrClosed is returned by Enqueue after Close.
var ErrClosed = errors.New("spawn: queue closed")

// Queue is a FIFO of tasks that any goroutine may add to and exactly one
// goroutine drains.
//
// Wake signals coalesce: many Enqueue calls may produce a single value on
// Wake. Task delivery does not depend on the signal, because the consumer
// calls Run on every loop iteration.
type Queue struct {
	mu     sync.Mutex
	tasks  []func()
	spare  []func()
	closed bool

	wake   chan struct{}
	logger *slog.Logger
}

// New creates an empty queue. A nil logger uses slog.Default.
func New(logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		wake:   make(chan struct{}, 1),
		logger: logger,
	}
}

// Enqueue appends task and signals the consumer. It is safe to call from any
// goroutine.
func (q *Queue) Enqueue(task func()) error {
	if task == nil {
		return nil
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.tasks = append(q.tasks, task)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
		// a wakeup is already pending
	}
	return nil
}

// Wake returns the readiness signal. A receive consumes the pending signal
// but not any task.
func (q *Queue) Wake() <-chan struct{} {
	return q.wake
}

// Len returns the number of queued tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Run executes every task queued at the time of the call, in order, and
// reports whether any ran. Tasks enqueued by those tasks wait for the next
// call. Run must only be called from the consumer goroutine.
func (q *Queue) Run() bool {
	q.mu.Lock()
	if len(q.tasks) == 0 {
		q.mu.Unlock()
		return false
	}
	tasks := q.tasks
	q.tasks = q.spare[:0]
	q.spare = nil
	q.mu.Unlock()

	for i, task := range tasks {
		q.safeExecute(task)
		tasks[i] = nil
	}

	q.mu.Lock()
	if q.spare == nil {
		q.spare = tasks[:0]
	}
	q.mu.Unlock()
	return true
}

// Close rejects further Enqueue calls. Tasks already queued remain and are
// executed by subsequent Run calls.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}

func (q *Queue) safeExecute(task func()) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("spawn: task panicked", "panic", r)
		}
	}()
	task()
}
