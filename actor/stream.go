package actor

import (
	"context"
	"errors"
)

// StreamResult carries one transformed element of SendStream's output.
type StreamResult[R any] struct {
	Value R
	Err   error
}

// SendStream transforms the input sequence by sending each element and
// awaiting its reply, so output order matches input order. The output
// channel closes when the input does, or when the context is cancelled.
// Failures of individual sends are reported in-band and do not stop the
// stream unless the pool is closed.
func (a *Addr[A, M, R]) SendStream(ctx context.Context, in <-chan M) <-chan StreamResult[R] {
	out := make(chan StreamResult[R])
	go func() {
		defer close(out)
		for {
			select {
			case msg, ok := <-in:
				if !ok {
					return
				}
				value, err := a.Send(ctx, msg)
				select {
				case out <- StreamResult[R]{Value: value, Err: err}:
				case <-ctx.Done():
					return
				}
				if errors.Is(err, ErrClosed) {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
