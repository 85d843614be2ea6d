package actor

import "context"

// Actor is a user-owned mutable state object. Exactly one worker holds it
// at any time, so Dispatch never runs concurrently with itself on the same
// instance and the implementation needs no internal locking.
//
// M is the closed union of messages the actor accepts and R the matching
// union of results, one variant per message variant. Producing the two
// union types and the Dispatch routing between them is the job of an outer
// code generation or hand-written glue layer; the runtime only moves
// envelopes and replies around without inspecting either.
type Actor[M, R any] interface {
	// OnStart is invoked when the owning worker comes alive, including
	// after a restart.
	OnStart(ctx context.Context)

	// OnStop is invoked once when the owning worker loop exits permanently.
	OnStop(ctx context.Context)

	// Dispatch handles a single message and produces its result.
	Dispatch(ctx context.Context, msg M) R
}

// Factory builds one actor instance. The builder awaits it once per worker.
type Factory[A Actor[M, R], M, R any] func(ctx context.Context) (A, error)
