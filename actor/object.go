package actor

import "context"

// operation is an ad-hoc unit of work executed against the actor with its
// concrete result type erased. The erased value travels back through the
// reply channel and is recovered with a checked assertion at the call site
// (see Run), which is where ErrTypeCast can surface.
type operation[A any] func(ctx context.Context, actor A) any

// tickOperation is a recurring operation registered by RunInterval. Its
// result is discarded, so no erasure is involved.
type tickOperation[A any] func(ctx context.Context, actor A)

// erase wraps a typed closure into an operation. One closure allocation is
// the cost Run pays over Send.
func erase[A, T any](fn func(ctx context.Context, actor A) T) operation[A] {
	return func(ctx context.Context, actor A) any {
		return fn(ctx, actor)
	}
}

// eraseVoid wraps a result-free closure for the fire-and-forget and
// delayed run paths.
func eraseVoid[A any](fn func(ctx context.Context, actor A)) operation[A] {
	return func(ctx context.Context, actor A) any {
		fn(ctx, actor)
		return nil
	}
}

// recoverResult casts the erased result back to its concrete type.
func recoverResult[T any](value any) (T, error) {
	var zero T
	if value == nil {
		// a nil interface can only come from a closure that legitimately
		// returned a nil value of an interface-kinded T
		return zero, nil
	}
	out, ok := value.(T)
	if !ok {
		return zero, ErrTypeCast
	}
	return out, nil
}
