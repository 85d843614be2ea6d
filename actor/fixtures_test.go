package actor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/fakeshadow/actorpool/log"
)

const (
	// deltas with side effects used to exercise the failure paths
	faultDelta = -1000
	sleepDelta = -2000

	sleepFor = 200 * time.Millisecond
)

type counterMsg struct {
	delta int
}

type counterRes struct {
	value int
}

// counterProbe aggregates observations across all actor instances of a
// pool so tests can assert on lifecycle callbacks and final counters.
type counterProbe struct {
	starts atomic.Int64
	stops  atomic.Int64
	final  atomic.Int64
}

// counter is the test actor: a private running total bumped by every
// message. faultDelta panics the handler and sleepDelta stalls it.
type counter struct {
	value int
	probe *counterProbe
}

var _ Actor[counterMsg, counterRes] = (*counter)(nil)

func (c *counter) OnStart(context.Context) {
	if c.probe != nil {
		c.probe.starts.Inc()
	}
}

func (c *counter) OnStop(context.Context) {
	if c.probe != nil {
		c.probe.stops.Inc()
		c.probe.final.Add(int64(c.value))
	}
}

func (c *counter) Dispatch(_ context.Context, msg counterMsg) counterRes {
	switch msg.delta {
	case faultDelta:
		panic("counter handler fault")
	case sleepDelta:
		time.Sleep(sleepFor)
		return counterRes{value: c.value}
	default:
		c.value += msg.delta
		return counterRes{value: c.value}
	}
}

// flaky faults in its lifecycle callbacks instead of its handler:
// OnStart panics while startFaults has charges left, OnStop panics when
// stopFault is set. Dispatch echoes the delta so delivery is observable.
type flaky struct {
	startFaults *atomic.Int64
	stopFault   bool
	probe       *counterProbe
}

var _ Actor[counterMsg, counterRes] = (*flaky)(nil)

func (f *flaky) OnStart(context.Context) {
	if f.probe != nil {
		f.probe.starts.Inc()
	}
	if f.startFaults != nil && f.startFaults.Dec() >= 0 {
		panic("flaky start fault")
	}
}

func (f *flaky) OnStop(context.Context) {
	if f.probe != nil {
		f.probe.stops.Inc()
	}
	if f.stopFault {
		panic("flaky stop fault")
	}
}

func (f *flaky) Dispatch(_ context.Context, msg counterMsg) counterRes {
	return counterRes{value: msg.delta}
}

func counterFactory(probe *counterProbe) Factory[*counter, counterMsg, counterRes] {
	return func(context.Context) (*counter, error) {
		return &counter{probe: probe}, nil
	}
}

// newCounterPool starts a pool of counter actors with test friendly
// defaults layered under the given options.
func newCounterPool(t *testing.T, probe *counterProbe, opts ...Option) *Addr[*counter, counterMsg, counterRes] {
	t.Helper()
	base := []Option{
		WithLogger(log.DiscardLogger),
		WithRestartDelay(10 * time.Millisecond),
	}
	addr, err := New(counterFactory(probe), append(base, opts...)...).Start(context.Background())
	require.NoError(t, err)
	return addr
}
