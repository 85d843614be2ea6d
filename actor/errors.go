package actor

import (
	"errors"

	"github.com/fakeshadow/actorpool/mailbox"
)

var (
	// ErrCancelled is returned when the worker handling a message went away
	// before producing a reply.
	ErrCancelled = errors.New("reply was dropped before a result was produced")

	// ErrClosed is returned when the pool queue has no live workers left to
	// receive a message.
	ErrClosed = errors.New("actor pool is closed")

	// ErrBlocking is returned when the configured send timeout elapsed
	// before the message could be enqueued.
	ErrBlocking = errors.New("send timed out before the message was enqueued")

	// ErrTypeCast is returned when an ad-hoc operation result could not be
	// recovered as the statically expected type. It indicates a contract
	// violation between caller and runtime, not a user-recoverable error.
	ErrTypeCast = errors.New("ad-hoc operation result does not match the expected type")

	// ErrInvalidConfig is returned by Builder.Start on configuration misuse.
	ErrInvalidConfig = errors.New("invalid pool configuration")
)

// fromMailbox maps queue errors onto the pool's error kinds.
func fromMailbox(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mailbox.ErrClosed):
		return ErrClosed
	case errors.Is(err, mailbox.ErrTimeout):
		return ErrBlocking
	default:
		return err
	}
}
