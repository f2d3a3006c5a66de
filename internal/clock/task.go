package clock

import (
	"context"
	"time"
)

// maxRetryDelay caps how soon a failed task is retried.
const maxRetryDelay = time.Hour

// Task runs a function at a fixed interval, checked by polling.
//
// A successful run schedules the next one a full interval later. A failed
// run is retried after the shorter of the interval and maxRetryDelay.
type Task struct {
	name     string
	interval time.Duration
	fn       func(ctx context.Context) error
	next     time.Time
}

// NewTask creates a Task first due one interval after start.
func NewTask(name string, interval time.Duration, start time.Time, fn func(ctx context.Context) error) *Task {
	return &Task{
		name:     name,
		interval: interval,
		fn:       fn,
		next:     start.Add(interval),
	}
}

// Name returns the task name.
func (t *Task) Name() string {
	return t.name
}

// NextDueAt returns when the task is next due.
func (t *Task) NextDueAt() time.Time {
	return t.next
}

// RunIfDue runs the task if now is at or after NextDueAt.
//
// Returns:
//   - ran: Whether the function was called
//   - err: The function's error, if it ran and failed
func (t *Task) RunIfDue(ctx context.Context, now time.Time) (bool, error) {
	if now.Before(t.next) {
		return false, nil
	}

	if err := t.fn(ctx); err != nil {
		t.next = now.Add(min(t.interval, maxRetryDelay))
		return true, err
	}

	t.next = now.Add(t.interval)
	return true, nil
}
