// Package quorumdriver implements the fan-out/reduce primitive used by
// every top-level protocol in the aggregator: run an operation against
// every validator in parallel, and fold the results through a
// caller-supplied reducer that decides, after each response, whether
// to keep waiting (with a possibly adjusted timeout), stop
// successfully, or abort.
package quorumdriver

import (
	"context"
	"time"

	"github.com/luxfi/authority/committee"
	"github.com/luxfi/authority/safeclient"
)

// Output is what a Reduce call returns: either keep folding
// (Continue/ContinueWithTimeout) or stop (End). Reduce itself returns
// an error to abort the whole call with that error.
type Output[S any] struct {
	state      S
	end        bool
	hasTimeout bool
	timeout    time.Duration
}

// Continue keeps folding subsequent responses with the current
// timeout unchanged.
func Continue[S any](state S) Output[S] { return Output[S]{state: state} }

// ContinueWithTimeout keeps folding subsequent responses, replacing
// the effective wait budget with d.
func ContinueWithTimeout[S any](state S, d time.Duration) Output[S] {
	return Output[S]{state: state, hasTimeout: true, timeout: d}
}

// End short-circuits the fold and returns state immediately.
func End[S any](state S) Output[S] { return Output[S]{state: state, end: true} }

// MapFunc is applied to every validator concurrently.
type MapFunc[V any] func(ctx context.Context, name committee.AuthorityName, client *safeclient.SafeClient) (V, error)

// ReduceFunc folds one arriving response into the accumulated state.
// It is called serially - the driver never invokes it reentrantly -
// so it need not itself be safe for concurrent use.
type ReduceFunc[S, V any] func(state S, name committee.AuthorityName, weight committee.Stake, result V, err error) (Output[S], error)

type namedResult[V any] struct {
	name   committee.AuthorityName
	result V
	err    error
}

// MapThenReduceWithTimeout is quorum_map_then_reduce_with_timeout: it
// launches mapFn against every validator in cm (preference-first if
// prefer is non-nil, otherwise in committee-wide stake-shuffled
// order), delivers each response to reduceFn as it arrives (not in
// request order), and returns once reduceFn signals End, every
// response has been delivered, the (possibly adjusted) timeout elapses
// without a new response, or reduceFn returns an error. A mapFn error
// does not abort the call; it is passed to reduceFn like any other
// result.
//
// Cancelling ctx aborts every in-flight mapFn call and returns
// ctx.Err().
func MapThenReduceWithTimeout[S, V any](
	ctx context.Context,
	cm *committee.Committee,
	clients map[committee.AuthorityName]*safeclient.SafeClient,
	prefer map[committee.AuthorityName]struct{},
	initial S,
	mapFn MapFunc[V],
	reduceFn ReduceFunc[S, V],
	initialTimeout time.Duration,
) (S, error) {
	order := cm.ShuffleByStake(prefer, nil)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan namedResult[V], len(order))
	for _, name := range order {
		name := name
		client := clients[name]
		go func() {
			v, err := mapFn(runCtx, name, client)
			select {
			case results <- namedResult[V]{name: name, result: v, err: err}:
			case <-runCtx.Done():
			}
		}()
	}

	state := initial
	currentTimeout := initialTimeout
	pending := len(order)

	for pending > 0 {
		if err := ctx.Err(); err != nil {
			var zero S
			return zero, err
		}
		timer := time.NewTimer(currentTimeout)
		select {
		case <-ctx.Done():
			timer.Stop()
			var zero S
			return zero, ctx.Err()
		case <-timer.C:
			return state, nil
		case res := <-results:
			timer.Stop()
			pending--
			weight := cm.Weight(res.name)
			out, err := reduceFn(state, res.name, weight, res.result, res.err)
			if err != nil {
				var zero S
				return zero, err
			}
			state = out.state
			if out.end {
				return state, nil
			}
			if out.hasTimeout {
				currentTimeout = out.timeout
			}
		}
	}
	return state, nil
}
