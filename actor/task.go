package actor

import (
	"context"
	"sync"
)

// Task is the cancellation handle returned by RunInterval. Dropping the
// handle does not cancel the interval; only Cancel does, or the pool
// shutting down. Cancel is idempotent.
type Task struct {
	id     uint64
	once   sync.Once
	cancel func(ctx context.Context) error
	err    error
}

// ID is the registration key of the recurring operation inside the pool.
func (t *Task) ID() uint64 {
	return t.id
}

// Cancel stops the recurring operation: the periodic trigger is deleted
// and the stored operation deregistered from the pool.
func (t *Task) Cancel(ctx context.Context) error {
	t.once.Do(func() {
		t.err = t.cancel(ctx)
	})
	return t.err
}
