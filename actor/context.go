package actor

import (
	"bytes"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/DataDog/gostackparse"

	"github.com/fakeshadow/actorpool/log"
	"github.com/fakeshadow/actorpool/mailbox"
)

// workerContext holds one worker's instance local state: the actor it
// exclusively owns, its receive side of the shared queue and its restart
// bookkeeping. State shared across the pool lives in state.
type workerContext[A Actor[M, R], M, R any] struct {
	id       int
	actor    A
	queue    *mailbox.Mailbox[*envelope[A, M, R]]
	state    *state[A, M, R]
	logger   log.Logger
	restarts int32
}

func newWorkerContext[A Actor[M, R], M, R any](id int, actor A, st *state[A, M, R]) *workerContext[A, M, R] {
	return &workerContext[A, M, R]{
		id:     id,
		actor:  actor,
		queue:  st.queue,
		state:  st,
		logger: st.logger,
	}
}

func (w *workerContext[A, M, R]) spawnLoop() {
	go w.run()
}

// run drives the worker until its loop exits permanently. Every pass
// through the loop counts as one live worker: the active counter and the
// OnStart callback are re-applied on restart, exactly like a fresh start,
// and the same actor instance is retained.
func (w *workerContext[A, M, R]) run() {
	w.queue.AddReceiver()
	for {
		w.state.active.Inc()
		restart := w.runOnce()
		w.state.active.Dec()
		if !restart {
			break
		}
		w.restarts++
		w.logger.Infof("worker %d restarting (%d/%d)", w.id, w.restarts, w.state.cfg.MaxRestarts)
		time.Sleep(w.state.cfg.RestartDelay)
	}
	w.stop()
	// if this was the last worker the queue closes itself and whatever it
	// still held is failed back to the senders
	for _, env := range w.queue.RemoveReceiver() {
		env.abandon()
	}
	w.logger.Debugf("worker %d stopped", w.id)
}

// runOnce covers one pass of the worker: the OnStart callback and the
// receive loop run under the same recover, so a faulting OnStart engages
// the restart policy instead of escaping the goroutine.
func (w *workerContext[A, M, R]) runOnce() (restart bool) {
	defer func() {
		if v := recover(); v != nil {
			restart = w.tryRestart(v)
		}
	}()
	w.actor.OnStart(w.state.ctx)
	return w.receiveLoop()
}

// stop delivers the terminal OnStop callback. A fault in it is logged and
// swallowed so the worker still hands its queue slot back.
func (w *workerContext[A, M, R]) stop() {
	defer func() {
		if v := recover(); v != nil {
			w.logger.Errorf("worker %d OnStop faulted: %v\n%s", w.id, v, cleanTrace(debug.Stack()))
		}
	}()
	w.actor.OnStop(w.state.ctx)
}

// receiveLoop processes envelopes until the queue drains to closure, a
// manual shutdown arrives, or the actor faults. It reports whether the
// worker should restart; only an abnormal exit with restarts left and the
// pool still alive qualifies.
func (w *workerContext[A, M, R]) receiveLoop() (restart bool) {
	var current *envelope[A, M, R]
	defer func() {
		if v := recover(); v != nil {
			if current != nil {
				current.abandon()
			}
			restart = w.tryRestart(v)
		}
	}()
	for {
		env, err := w.queue.Recv()
		if err != nil {
			return false
		}
		current = env
		if done := w.invoke(env); done {
			return false
		}
		current = nil
	}
}

// invoke dispatches one envelope. It reports true when the worker was told
// to shut down manually.
func (w *workerContext[A, M, R]) invoke(env *envelope[A, M, R]) bool {
	ctx := w.state.ctx
	switch env.kind {
	case instant:
		res := w.actor.Dispatch(ctx, env.msg)
		if env.reply != nil {
			env.reply.fulfill(res)
		}
	case instantDynamic:
		res := env.op(ctx, w.actor)
		if env.replyAny != nil {
			env.replyAny.fulfill(res)
		}
	case delayed:
		w.state.scheduleOnce(&envelope[A, M, R]{kind: instant, msg: env.msg}, env.delay)
	case delayedDynamic:
		w.state.scheduleOnce(&envelope[A, M, R]{kind: instantDynamic, op: env.op}, env.delay)
	case intervalRegister:
		task, err := w.state.scheduleInterval(env.tick, env.delay)
		if err != nil {
			w.logger.Errorf("worker %d failed to register interval: %v", w.id, err)
			env.replyTask.abandon()
			return false
		}
		env.replyTask.fulfill(task)
	case intervalRun:
		if tick, ok := w.state.intervals.Get(env.index); ok {
			tick(ctx, w.actor)
		}
	case intervalRemove:
		w.state.intervals.Delete(env.index)
	case manualShutdown:
		env.replyStop.fulfill(struct{}{})
		return true
	}
	return false
}

// tryRestart decides the fate of a faulted worker and logs the fault with
// a cleaned stack trace.
func (w *workerContext[A, M, R]) tryRestart(v any) bool {
	w.logger.Errorf("worker %d faulted: %v\n%s", w.id, v, cleanTrace(debug.Stack()))
	if !w.state.cfg.RestartOnErr {
		return false
	}
	if w.state.closed.Load() {
		return false
	}
	if w.restarts >= w.state.cfg.MaxRestarts {
		w.logger.Errorf("worker %d exceeded max restarts (%d)", w.id, w.state.cfg.MaxRestarts)
		return false
	}
	return true
}

// cleanTrace strips the recover plumbing frames from a panic stack so the
// log points at the faulting handler.
func cleanTrace(stack []byte) []byte {
	goroutines, errs := gostackparse.Parse(bytes.NewReader(stack))
	if len(errs) > 0 || len(goroutines) != 1 {
		return stack
	}
	if len(goroutines[0].Stack) > 4 {
		goroutines[0].Stack = goroutines[0].Stack[4:]
	}
	buf := bytes.NewBuffer(nil)
	_, _ = fmt.Fprintf(buf, "goroutine %d [%s]\n", goroutines[0].ID, goroutines[0].State)
	for _, frame := range goroutines[0].Stack {
		_, _ = fmt.Fprintf(buf, "%s\n", frame.Func)
		_, _ = fmt.Fprintf(buf, "\t%s:%d\n", frame.File, frame.Line)
	}
	return buf.Bytes()
}
