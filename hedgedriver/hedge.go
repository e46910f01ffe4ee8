// Package hedgedriver implements the "quorum-once" primitive: a
// latency-hedged serial request schedule for operations that need
// exactly one successful, self-authenticating response from any
// honest validator (spec.md §4.4).
package hedgedriver

import (
	"context"
	"time"

	"github.com/luxfi/authority/committee"
	"github.com/luxfi/authority/errs"
	"github.com/luxfi/authority/safeclient"
)

const (
	initialRetryDelay = time.Second
	maxRetryDelay     = 5 * time.Minute
)

// MapFunc is applied to one validator at a time, in the hedged
// schedule described in spec.md §4.4.
type MapFunc[V any] func(ctx context.Context, name committee.AuthorityName, client *safeclient.SafeClient) (V, error)

type event[V any] struct {
	isTimer bool
	name    committee.AuthorityName
	result  V
	err     error
}

// QuorumOnceWithTimeout is quorum_once_with_timeout: it shuffles
// validators by stake (honoring prefer/restrict), dispatches serially
// with a hedge interval so a slow peer cannot block progress, retries
// forever (with exponential backoff between full passes) if every
// validator fails, and aborts if outerTimeout elapses.
//
// If outerTimeout is zero, the loop runs until ctx is cancelled.
func QuorumOnceWithTimeout[V any](
	ctx context.Context,
	cm *committee.Committee,
	clients map[committee.AuthorityName]*safeclient.SafeClient,
	prefer, restrict map[committee.AuthorityName]struct{},
	mapFn MapFunc[V],
	perCallTimeout time.Duration,
	interval time.Duration,
	outerTimeout time.Duration,
) (V, error) {
	var zero V

	var cancel context.CancelFunc
	if outerTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, outerTimeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	// Unconditional: on a successful return there may still be
	// in-flight hedged requests blocked sending on events (runOnePass's
	// unbuffered channel); cancelling here is what unblocks and reaps
	// them, matching quorumdriver's MapThenReduceWithTimeout.
	defer cancel()

	authorityErrors := make(map[committee.AuthorityName]error)
	delay := initialRetryDelay

	for {
		order := cm.ShuffleByStake(prefer, restrict)
		if len(order) == 0 {
			return zero, &errs.TooManyIncorrectAuthorities{Errors: authorityErrors}
		}

		v, ok, err := runOnePass(ctx, clients, order, mapFn, perCallTimeout, interval, authorityErrors)
		if ok {
			return v, nil
		}
		if err != nil {
			// ctx was cancelled (outer timeout or caller cancellation).
			if len(authorityErrors) == 0 {
				return zero, &errs.TimeoutError{}
			}
			return zero, &errs.TooManyIncorrectAuthorities{Errors: authorityErrors}
		}

		select {
		case <-ctx.Done():
			if len(authorityErrors) == 0 {
				return zero, &errs.TimeoutError{}
			}
			return zero, &errs.TooManyIncorrectAuthorities{Errors: authorityErrors}
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}
}

// runOnePass tries every validator in order exactly once, using the
// hedge schedule, and returns (value, true, nil) on success,
// (zero, false, nil) if every validator in order was exhausted
// without success, or (zero, false, err) if ctx was cancelled.
func runOnePass[V any](
	ctx context.Context,
	clients map[committee.AuthorityName]*safeclient.SafeClient,
	order []committee.AuthorityName,
	mapFn MapFunc[V],
	perCallTimeout, interval time.Duration,
	authorityErrors map[committee.AuthorityName]error,
) (V, bool, error) {
	var zero V
	events := make(chan event[V])
	next := 0

	startReq := func(name committee.AuthorityName) {
		go func() {
			callCtx := ctx
			var cancel context.CancelFunc
			if perCallTimeout > 0 {
				callCtx, cancel = context.WithTimeout(ctx, perCallTimeout)
				defer cancel()
			}
			v, err := mapFn(callCtx, name, clients[name])
			if err == nil {
				err = callCtx.Err()
			}
			select {
			case events <- event[V]{name: name, result: v, err: err}:
			case <-ctx.Done():
			}
		}()
	}

	armTimer := func() <-chan time.Time {
		if interval <= 0 {
			ch := make(chan time.Time, 1)
			ch <- time.Time{}
			return ch
		}
		return time.After(interval)
	}

	startReq(order[next])
	next++
	timerCh := armTimer()
	inFlight := 1

	for inFlight > 0 {
		select {
		case <-ctx.Done():
			return zero, false, ctx.Err()
		case <-timerCh:
			if next < len(order) {
				startReq(order[next])
				next++
				inFlight++
				timerCh = armTimer()
			} else {
				// Nothing left to eagerly start; stop re-arming.
				timerCh = make(chan time.Time)
			}
		case ev := <-events:
			inFlight--
			if ev.err == nil {
				return ev.result, true, nil
			}
			authorityErrors[ev.name] = ev.err
			if next < len(order) {
				startReq(order[next])
				next++
				inFlight++
			}
		}
	}
	return zero, false, nil
}
