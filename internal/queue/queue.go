// Package queue provides the process-wide bounded request queue. Every
// heavy pipeline trigger funnels through it: a single worker executes
// tasks FIFO so at most one pipeline runs at a time, and a shared
// cooldown caps the trigger rate. It is a best-effort throttle, not a
// durable queue; overflow and cooldown violations drop silently.
package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/earshot-app/earshot/internal/metrics"
)

// Task is one unit of deferred pipeline work.
type Task struct {
	Label string
	Run   func()
}

// Queue is a bounded FIFO with a shared admission cooldown.
type Queue struct {
	cooldown time.Duration
	now      func() time.Time

	mu            sync.Mutex
	nextAllowedAt time.Time
	tasks         chan Task
}

// New creates a queue holding at most capacity tasks, admitting at
// most one task per cooldown interval.
func New(capacity int, cooldown time.Duration) *Queue {
	return &Queue{
		cooldown: cooldown,
		now:      time.Now,
		tasks:    make(chan Task, capacity),
	}
}

// Enqueue offers deferred work. It never blocks: the task is dropped
// when the cooldown has not elapsed or the queue is full. The cooldown
// advances on every attempt that passes it, even when the push then
// fails on a full queue.
func (q *Queue) Enqueue(label string, run func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	if now.Before(q.nextAllowedAt) {
		slog.Info("request cooldown active, dropping", "label", label)
		metrics.QueueDropped.WithLabelValues(label, "cooldown").Inc()
		return false
	}
	q.nextAllowedAt = now.Add(q.cooldown)

	select {
	case q.tasks <- Task{Label: label, Run: run}:
		slog.Info("queued request", "label", label, "size", len(q.tasks))
		metrics.QueueEnqueued.WithLabelValues(label).Inc()
		return true
	default:
		slog.Info("request queue full, dropping", "label", label)
		metrics.QueueDropped.WithLabelValues(label, "full").Inc()
		return false
	}
}

// Run executes tasks one at a time in FIFO order until ctx is
// canceled. It belongs on a single goroutine; a second concurrent Run
// would break the one-pipeline-at-a-time guarantee.
func (q *Queue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-q.tasks:
			q.process(task)
		}
	}
}

// process executes one task; faults stay inside the iteration.
func (q *Queue) process(task Task) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("queued task fault", "label", task.Label, "panic", r)
		}
	}()

	slog.Info("processing request", "label", task.Label)
	task.Run()
	metrics.QueueProcessed.WithLabelValues(task.Label).Inc()
}
