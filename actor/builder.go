package actor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/fakeshadow/actorpool/log"
	"github.com/fakeshadow/actorpool/mailbox"
)

const (
	defaultTimeout      = 10 * time.Second
	defaultMaxRestarts  = 3
	defaultRestartDelay = 500 * time.Millisecond
)

// Config holds the settings shared by every worker of a pool.
type Config struct {
	// Num is the worker count. Every worker owns one actor instance and
	// steals work from the one shared queue.
	Num int
	// RestartOnErr makes a worker whose loop exits abnormally re-enter the
	// loop with the same actor instance.
	RestartOnErr bool
	// HandleDelayedOnShutdown makes pending delayed work still execute
	// when shutdown begins instead of being discarded.
	HandleDelayedOnShutdown bool
	// Timeout bounds the enqueue of the Send family, not the reply.
	Timeout time.Duration
	// QueueSize bounds the shared queue; zero means unbounded.
	QueueSize int64
	// MaxRestarts caps restarts per worker when RestartOnErr is set.
	MaxRestarts int32
	// RestartDelay is slept between an abnormal exit and the restart.
	RestartDelay time.Duration
	// Logger receives the pool's own diagnostics.
	Logger log.Logger
}

func defaultConfig() Config {
	return Config{
		Num:          1,
		Timeout:      defaultTimeout,
		MaxRestarts:  defaultMaxRestarts,
		RestartDelay: defaultRestartDelay,
		Logger:       log.DefaultLogger,
	}
}

func (c Config) validate() error {
	var err error
	if c.Num < 1 {
		err = multierr.Append(err, fmt.Errorf("num must be at least 1, got %d", c.Num))
	}
	if c.Timeout <= 0 {
		err = multierr.Append(err, fmt.Errorf("timeout must be positive, got %v", c.Timeout))
	}
	if c.MaxRestarts < 0 {
		err = multierr.Append(err, fmt.Errorf("max restarts must not be negative, got %d", c.MaxRestarts))
	}
	if c.RestartDelay < 0 {
		err = multierr.Append(err, fmt.Errorf("restart delay must not be negative, got %v", c.RestartDelay))
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Option mutates the pool configuration.
type Option func(*Config)

// WithNum sets the number of workers in the pool.
func WithNum(num int) Option {
	return func(c *Config) {
		c.Num = num
	}
}

// WithRestartOnErr lets workers restart after an abnormal loop exit.
func WithRestartOnErr() Option {
	return func(c *Config) {
		c.RestartOnErr = true
	}
}

// WithHandleDelayedOnShutdown executes pending delayed work at shutdown
// instead of discarding it.
func WithHandleDelayedOnShutdown() Option {
	return func(c *Config) {
		c.HandleDelayedOnShutdown = true
	}
}

// WithTimeout sets the enqueue timeout of the Send family.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithQueueSize bounds the shared queue. A full queue makes senders block
// up to the configured timeout before reporting ErrBlocking.
func WithQueueSize(size int64) Option {
	return func(c *Config) {
		c.QueueSize = size
	}
}

// WithMaxRestarts caps per-worker restarts.
func WithMaxRestarts(n int32) Option {
	return func(c *Config) {
		c.MaxRestarts = n
	}
}

// WithRestartDelay sets the pause before a worker restart.
func WithRestartDelay(d time.Duration) Option {
	return func(c *Config) {
		c.RestartDelay = d
	}
}

// WithLogger sets the pool's logger.
func WithLogger(logger log.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// Builder assembles an actor pool.
type Builder[A Actor[M, R], M, R any] struct {
	factory Factory[A, M, R]
	config  Config
}

// New returns a Builder for a pool of actors produced by the factory.
func New[A Actor[M, R], M, R any](factory Factory[A, M, R], opts ...Option) *Builder[A, M, R] {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return &Builder[A, M, R]{
		factory: factory,
		config:  config,
	}
}

// Start validates the configuration, builds one actor per worker by
// awaiting the factory in turn, spawns the worker loops sharing one queue
// and one pool state, and returns the initial strong handle.
func (b *Builder[A, M, R]) Start(ctx context.Context) (*Addr[A, M, R], error) {
	if err := b.config.validate(); err != nil {
		return nil, err
	}

	actors := make([]A, 0, b.config.Num)
	for i := 0; i < b.config.Num; i++ {
		actor, err := b.factory(ctx)
		if err != nil {
			return nil, fmt.Errorf("actor factory failed for worker %d: %w", i, err)
		}
		actors = append(actors, actor)
	}

	queue := mailbox.New[*envelope[A, M, R]](b.config.QueueSize)
	st, err := newState(ctx, b.config, queue)
	if err != nil {
		return nil, err
	}

	for i, actor := range actors {
		newWorkerContext(i, actor, st).spawnLoop()
	}
	st.logger.Infof("actor pool started with %d worker(s)", b.config.Num)
	return newAddr(st), nil
}
