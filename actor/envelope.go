package actor

import (
	"context"
	"sync"
	"time"
)

type envelopeKind int8

const (
	instant envelopeKind = iota
	instantDynamic
	delayed
	delayedDynamic
	intervalRegister
	intervalRun
	intervalRemove
	manualShutdown
)

// envelope is the single work unit flowing through the shared queue. The
// kind tag selects which payload fields are meaningful; see the dispatch
// switch in workerContext.invoke.
type envelope[A Actor[M, R], M, R any] struct {
	kind envelopeKind

	msg   M
	op    operation[A]
	tick  tickOperation[A]
	delay time.Duration
	index uint64

	reply     *oneshot[R]
	replyAny  *oneshot[any]
	replyTask *oneshot[*Task]
	replyStop *oneshot[struct{}]
}

// abandon drops whatever reply the envelope carries, waking the original
// caller with ErrCancelled. Calling it after a reply was already sent is a
// no-op, which keeps the one-reply-attempt invariant.
func (e *envelope[A, M, R]) abandon() {
	if e.reply != nil {
		e.reply.abandon()
	}
	if e.replyAny != nil {
		e.replyAny.abandon()
	}
	if e.replyTask != nil {
		e.replyTask.abandon()
	}
	if e.replyStop != nil {
		e.replyStop.abandon()
	}
}

// oneshot is a single-use reply channel. A fulfilled oneshot delivers
// exactly one value; an abandoned one closes without a value so the waiter
// observes ErrCancelled. Whichever happens first wins.
type oneshot[T any] struct {
	once sync.Once
	ch   chan T
}

func newOneshot[T any]() *oneshot[T] {
	return &oneshot[T]{ch: make(chan T, 1)}
}

func (o *oneshot[T]) fulfill(value T) {
	o.once.Do(func() {
		o.ch <- value
		close(o.ch)
	})
}

func (o *oneshot[T]) abandon() {
	o.once.Do(func() {
		close(o.ch)
	})
}

func (o *oneshot[T]) wait(ctx context.Context) (T, error) {
	var zero T
	select {
	case value, ok := <-o.ch:
		if !ok {
			return zero, ErrCancelled
		}
		return value, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
