package actor

import (
	"context"
	"errors"
	"time"

	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
)

// Addr is the send-side capability referencing a pool. It is cheap to
// clone; all clones share one strong count and one pool state. Releasing
// the last strong Addr shuts the pool down: every scheduled background
// task is cancelled, the queue closes and the workers drain to exit.
//
// Go has no destructors, so the strong count moves explicitly: Clone
// increments it, Release decrements it. A handle that was released is dead
// and every further operation on it reports ErrClosed.
type Addr[A Actor[M, R], M, R any] struct {
	state    *state[A, M, R]
	released atomic.Bool
}

func newAddr[A Actor[M, R], M, R any](st *state[A, M, R]) *Addr[A, M, R] {
	return &Addr[A, M, R]{state: st}
}

// Clone returns a new strong handle to the same pool, or nil if this
// handle was already released. Like Upgrade it refuses to resurrect a
// count that already hit zero, so a Clone racing the final Release can
// never mint a handle to a dead pool.
func (a *Addr[A, M, R]) Clone() *Addr[A, M, R] {
	if a.released.Load() {
		return nil
	}
	for {
		n := a.state.strong.Load()
		if n == 0 {
			return nil
		}
		if a.state.strong.CompareAndSwap(n, n+1) {
			return newAddr(a.state)
		}
	}
}

// Release drops this handle's strong reference. When the last one goes,
// the pool shuts down. Release is idempotent per handle.
func (a *Addr[A, M, R]) Release() {
	if !a.released.CompareAndSwap(false, true) {
		return
	}
	if a.state.strong.Dec() == 0 {
		a.state.shutdown()
	}
}

// Downgrade returns a weak handle that does not keep the pool alive.
func (a *Addr[A, M, R]) Downgrade() *WeakAddr[A, M, R] {
	return &WeakAddr[A, M, R]{state: a.state}
}

// CurrentActive returns the number of live workers. It may transiently
// differ from the configured count during startup and restarts.
func (a *Addr[A, M, R]) CurrentActive() int64 {
	return a.state.active.Load()
}

// Send delivers the message to one worker and waits for its reply.
func (a *Addr[A, M, R]) Send(ctx context.Context, msg M) (R, error) {
	var zero R
	if a.released.Load() {
		return zero, ErrClosed
	}
	reply := newOneshot[R]()
	env := &envelope[A, M, R]{kind: instant, msg: msg, reply: reply}
	if err := a.state.queue.SendTimeout(env, a.state.cfg.Timeout); err != nil {
		return zero, fromMailbox(err)
	}
	return reply.wait(ctx)
}

// DoSend delivers the message best-effort without blocking the caller and
// without a reply.
func (a *Addr[A, M, R]) DoSend(msg M) {
	if a.released.Load() {
		return
	}
	env := &envelope[A, M, R]{kind: instant, msg: msg}
	go func() {
		_ = a.state.queue.Send(env)
	}()
}

// SendLater enqueues the message for delivery after the delay. It returns
// once the enqueue is confirmed, not once the message is delivered. If the
// pool shuts down before the delay elapses the message is handled per the
// drain policy.
func (a *Addr[A, M, R]) SendLater(ctx context.Context, msg M, delay time.Duration) error {
	if a.released.Load() {
		return ErrClosed
	}
	env := &envelope[A, M, R]{kind: delayed, msg: msg, delay: delay}
	return fromMailbox(a.state.queue.SendTimeout(env, a.state.cfg.Timeout))
}

// DoRun schedules the operation against whichever worker picks it up,
// fire-and-forget.
func (a *Addr[A, M, R]) DoRun(fn func(ctx context.Context, actor A)) {
	if a.released.Load() {
		return
	}
	env := &envelope[A, M, R]{kind: instantDynamic, op: eraseVoid(fn)}
	go func() {
		_ = a.state.queue.Send(env)
	}()
}

// RunLater schedules the operation for execution after the delay, with
// SendLater's enqueue and drain semantics.
func (a *Addr[A, M, R]) RunLater(ctx context.Context, delay time.Duration, fn func(ctx context.Context, actor A)) error {
	if a.released.Load() {
		return ErrClosed
	}
	env := &envelope[A, M, R]{kind: delayedDynamic, op: eraseVoid(fn), delay: delay}
	return fromMailbox(a.state.queue.SendTimeout(env, a.state.cfg.Timeout))
}

// RunInterval registers a recurring operation executing once per period on
// whichever worker receives the tick. The returned Task cancels it;
// dropping the Task does not. Intervals stay active until cancelled or the
// pool fully shuts down.
func (a *Addr[A, M, R]) RunInterval(ctx context.Context, period time.Duration, fn func(ctx context.Context, actor A)) (*Task, error) {
	if a.released.Load() {
		return nil, ErrClosed
	}
	reply := newOneshot[*Task]()
	env := &envelope[A, M, R]{kind: intervalRegister, tick: fn, delay: period, replyTask: reply}
	if err := a.state.queue.SendTimeout(env, a.state.cfg.Timeout); err != nil {
		return nil, fromMailbox(err)
	}
	return reply.wait(ctx)
}

// Shutdown terminates every worker manually, skipping the restart policy,
// and waits for each to acknowledge. The handle stays valid (released by
// Release as usual); sends after Shutdown report ErrClosed.
func (a *Addr[A, M, R]) Shutdown(ctx context.Context) error {
	if a.released.Load() {
		return ErrClosed
	}
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < a.state.cfg.Num; i++ {
		g.Go(func() error {
			reply := newOneshot[struct{}]()
			env := &envelope[A, M, R]{kind: manualShutdown, replyStop: reply}
			if err := fromMailbox(a.state.queue.SendTimeout(env, a.state.cfg.Timeout)); err != nil {
				if errors.Is(err, ErrClosed) {
					return nil
				}
				return err
			}
			if _, err := reply.wait(ctx); err != nil && !errors.Is(err, ErrCancelled) {
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

// Run executes an arbitrary typed operation against an actor of the pool
// and returns its result. It costs one closure allocation more than Send
// because the result crosses the queue type-erased.
func Run[A Actor[M, R], M, R, T any](ctx context.Context, addr *Addr[A, M, R], fn func(ctx context.Context, actor A) T) (T, error) {
	var zero T
	if addr.released.Load() {
		return zero, ErrClosed
	}
	reply := newOneshot[any]()
	env := &envelope[A, M, R]{kind: instantDynamic, op: erase(fn), replyAny: reply}
	if err := addr.state.queue.SendTimeout(env, addr.state.cfg.Timeout); err != nil {
		return zero, fromMailbox(err)
	}
	res, err := reply.wait(ctx)
	if err != nil {
		return zero, err
	}
	return recoverResult[T](res)
}

// WeakAddr is a non-owning handle. It can be upgraded back to a strong
// Addr only while at least one strong handle still exists elsewhere.
// Background timer tasks hold the pool only through the queue, never
// through a strong handle, so they cannot keep a pool alive by themselves.
type WeakAddr[A Actor[M, R], M, R any] struct {
	state *state[A, M, R]
}

// Upgrade attempts to mint a new strong handle.
func (w *WeakAddr[A, M, R]) Upgrade() (*Addr[A, M, R], bool) {
	for {
		n := w.state.strong.Load()
		if n == 0 {
			return nil, false
		}
		if w.state.strong.CompareAndSwap(n, n+1) {
			return newAddr(w.state), true
		}
	}
}
