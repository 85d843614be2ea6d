package actor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/reugn/go-quartz/job"
	quartzlogger "github.com/reugn/go-quartz/logger"
	"github.com/reugn/go-quartz/quartz"
	"github.com/zeebo/xxh3"
	"go.uber.org/atomic"

	"github.com/fakeshadow/actorpool/log"
	"github.com/fakeshadow/actorpool/mailbox"
	"github.com/fakeshadow/actorpool/safe_map"
)

// schedulerWaitTimeout bounds how long shutdown waits for in-flight
// scheduler jobs to finish.
const schedulerWaitTimeout = time.Second

// state is shared by every worker, Addr and WeakAddr of one pool. Worker
// instance local data lives in workerContext; everything cross-cutting
// (counters, config snapshot, the scheduler and the registries of
// cancelable background tasks) lives here.
type state[A Actor[M, R], M, R any] struct {
	cfg    Config
	logger log.Logger
	ctx    context.Context

	queue *mailbox.Mailbox[*envelope[A, M, R]]

	strong *atomic.Int64
	active *atomic.Int64
	closed *atomic.Bool

	mu    sync.Mutex
	sched quartz.Scheduler

	tasks     *safe_map.SafeMap[uint64, *poolTask]
	intervals *safe_map.SafeMap[uint64, tickOperation[A]]
}

// poolTask is one cancelable background task: either a pending delayed
// delivery (deliver set) or a live interval trigger. The once keeps a
// delayed delivery from running twice when the quartz job and the shutdown
// drain race.
type poolTask struct {
	key      *quartz.JobKey
	interval bool
	once     sync.Once
	deliver  func()
}

func (t *poolTask) fire() {
	if t.deliver != nil {
		t.once.Do(t.deliver)
	}
}

func newState[A Actor[M, R], M, R any](ctx context.Context, cfg Config, queue *mailbox.Mailbox[*envelope[A, M, R]]) (*state[A, M, R], error) {
	sched, err := quartz.NewStdScheduler(quartz.WithLogger(quartzlogger.NewSimpleLogger(nil, quartzlogger.LevelOff)))
	if err != nil {
		return nil, err
	}
	st := &state[A, M, R]{
		cfg:       cfg,
		logger:    cfg.Logger,
		ctx:       context.WithoutCancel(ctx),
		queue:     queue,
		strong:    atomic.NewInt64(1),
		active:    atomic.NewInt64(0),
		closed:    atomic.NewBool(false),
		sched:     sched,
		tasks:     safe_map.New[uint64, *poolTask](),
		intervals: safe_map.New[uint64, tickOperation[A]](),
	}
	sched.Start(st.ctx)
	return st, nil
}

// scheduleOnce arranges for the envelope to be re-enqueued after the
// delay. If the pool shuts down first, the pending delivery is either
// fired immediately or dropped, per the drain policy.
func (st *state[A, M, R]) scheduleOnce(env *envelope[A, M, R], delay time.Duration) {
	if st.closed.Load() {
		st.settlePending(env)
		return
	}

	key := uuid.NewString()
	id := xxh3.HashString(key)
	task := &poolTask{
		key: quartz.NewJobKey(key),
		deliver: func() {
			st.tasks.Delete(id)
			if err := st.queue.Send(env); err != nil {
				env.abandon()
			}
		},
	}
	// registered before scheduling so a concurrent shutdown drain cannot
	// miss it; the once makes the overlap harmless
	st.tasks.Insert(id, task)
	if st.closed.Load() {
		// shutdown began after the first check; whichever of this path
		// and the drain deletes the task first owns the settlement
		if st.tasks.Delete(id) {
			st.settlePending(env)
		}
		return
	}

	j := job.NewFunctionJob[bool](func(context.Context) (bool, error) {
		task.fire()
		return true, nil
	})
	st.mu.Lock()
	err := st.sched.ScheduleJob(quartz.NewJobDetail(j, task.key), quartz.NewRunOnceTrigger(delay))
	st.mu.Unlock()
	if err != nil {
		if st.tasks.Delete(id) {
			st.settlePending(env)
		}
	}
}

// settlePending applies the drain policy to a delayed delivery that can no
// longer wait out its timer.
func (st *state[A, M, R]) settlePending(env *envelope[A, M, R]) {
	if st.cfg.HandleDelayedOnShutdown {
		if err := st.queue.Send(env); err == nil {
			return
		}
	}
	env.abandon()
}

// scheduleInterval registers the recurring operation and starts its
// periodic trigger. Ticks travel through the shared queue like any other
// envelope, so a busy pool delays a tick but never drops it while alive.
func (st *state[A, M, R]) scheduleInterval(tick tickOperation[A], period time.Duration) (*Task, error) {
	key := uuid.NewString()
	id := xxh3.HashString(key)
	jobKey := quartz.NewJobKey(key)

	st.intervals.Insert(id, tick)
	st.tasks.Insert(id, &poolTask{key: jobKey, interval: true})
	if st.closed.Load() {
		st.tasks.Delete(id)
		st.intervals.Delete(id)
		return nil, ErrClosed
	}

	j := job.NewFunctionJob[bool](func(context.Context) (bool, error) {
		env := &envelope[A, M, R]{kind: intervalRun, index: id}
		if err := st.queue.Send(env); err != nil {
			return false, err
		}
		return true, nil
	})
	st.mu.Lock()
	err := st.sched.ScheduleJob(quartz.NewJobDetail(j, jobKey), quartz.NewSimpleTrigger(period))
	st.mu.Unlock()
	if err != nil {
		st.tasks.Delete(id)
		st.intervals.Delete(id)
		return nil, err
	}

	return &Task{
		id: id,
		cancel: func(context.Context) error {
			if !st.tasks.Delete(id) {
				// the pool shutdown already tore this interval down
				return nil
			}
			st.mu.Lock()
			err := st.sched.DeleteJob(jobKey)
			st.mu.Unlock()
			if sendErr := st.queue.Send(&envelope[A, M, R]{kind: intervalRemove, index: id}); sendErr != nil {
				st.intervals.Delete(id)
			}
			return err
		},
	}, nil
}

// shutdown runs once, when the last strong Addr is released: stop the
// scheduler, settle every pending delayed delivery per the drain policy,
// drop the interval registrations and close the queue so workers drain to
// closure and exit.
func (st *state[A, M, R]) shutdown() {
	if !st.closed.CompareAndSwap(false, true) {
		return
	}
	st.logger.Infof("actor pool shutting down, drain delayed: %t", st.cfg.HandleDelayedOnShutdown)

	st.mu.Lock()
	clearErr := st.sched.Clear()
	st.sched.Stop()
	st.mu.Unlock()
	if clearErr != nil {
		st.logger.Warnf("failed to clear scheduled jobs: %v", clearErr)
	}
	waitCtx, cancel := context.WithTimeout(st.ctx, schedulerWaitTimeout)
	st.sched.Wait(waitCtx)
	cancel()

	st.tasks.Drain(func(_ uint64, task *poolTask) {
		if task.interval {
			return
		}
		if st.cfg.HandleDelayedOnShutdown {
			task.fire()
		}
	})
	st.intervals.Drain(func(uint64, tickOperation[A]) {})

	st.queue.Close()
}
