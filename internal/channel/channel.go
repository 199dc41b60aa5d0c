// Package channel implements the single-slot request/reply hand-off used to
// carry password and mnemonic prompts between the signer server and its
// authorizer, without requiring either side to poll.
package channel

import "context"

// request is the single value passed through a Single channel's internal
// slot: valueCh carries the pushed value to the waiting Load call, ackCh
// carries the receiver's accept/retry decision back to the sender.
type request[T any] struct {
	valueCh chan T
	ackCh   chan bool
}

// Single is an unbuffered request/reply hand-off. A Load call blocks until
// a value is pushed by Send, and Send then blocks for the receiver's ack
// before it returns. Each Send is paired with exactly one waiting Load; a
// second concurrent Load waits until another Send takes its request, which
// can happen before the first pair's ack. Which waiting Load a given Send
// reaches is not defined.
type Single[T any] struct {
	slot chan *request[T]
}

// NewSingle constructs an empty single-slot channel.
func NewSingle[T any]() *Single[T] {
	return &Single[T]{slot: make(chan *request[T])}
}

// Load blocks until a value is pushed with Send, or ctx is cancelled. The
// returned ack function must be called exactly once: ack(true) accepts the
// value and lets Send return true; ack(false) asks the sender to retry
// (Send returns false so it can push a fresh value, e.g. after a password
// mismatch).
func (s *Single[T]) Load(ctx context.Context) (value T, ack func(accept bool), err error) {
	req := &request[T]{valueCh: make(chan T, 1), ackCh: make(chan bool, 1)}
	select {
	case s.slot <- req:
	case <-ctx.Done():
		var zero T
		return zero, nil, ctx.Err()
	}

	select {
	case v := <-req.valueCh:
		return v, func(accept bool) { req.ackCh <- accept }, nil
	case <-ctx.Done():
		var zero T
		return zero, nil, ctx.Err()
	}
}

// LoadExact loads the next value and immediately accepts it, for call sites
// with no retry loop (e.g. the one-shot mnemonic hand-off during account
// creation).
func (s *Single[T]) LoadExact(ctx context.Context) (T, error) {
	v, ack, err := s.Load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	ack(true)
	return v, nil
}

// Send pushes value to the next Load call, blocking until a Load is waiting
// and then until that Load's ack decision is made. It returns true if the
// value was accepted, false if the receiver asked for a retry.
func (s *Single[T]) Send(ctx context.Context, value T) (accepted bool, err error) {
	var req *request[T]
	select {
	case req = <-s.slot:
	case <-ctx.Done():
		return false, ctx.Err()
	}

	req.valueCh <- value

	select {
	case accept := <-req.ackCh:
		return accept, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
