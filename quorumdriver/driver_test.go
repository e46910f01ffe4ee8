package quorumdriver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/luxfi/authority/committee"
	"github.com/luxfi/authority/safeclient"
	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"
)

func fourEqualStakeClients(t *testing.T) (*committee.Committee, map[committee.AuthorityName]*safeclient.SafeClient, map[string]committee.AuthorityName) {
	t.Helper()
	names := map[string]committee.AuthorityName{}
	voters := map[committee.AuthorityName]committee.Stake{}
	for _, n := range []string{"a", "b", "c", "d"} {
		name := ids.GenerateTestNodeID()
		names[n] = name
		voters[name] = 1
	}
	cm := committee.New(1, voters)
	clients := map[committee.AuthorityName]*safeclient.SafeClient{}
	for _, name := range names {
		clients[name] = safeclient.New(name, nil, cm, nil, nil)
	}
	return cm, clients, names
}

func TestMapThenReduceEndsOnQuorum(t *testing.T) {
	cm, clients, _ := fourEqualStakeClients(t)
	mapFn := func(ctx context.Context, name committee.AuthorityName, client *safeclient.SafeClient) (int, error) {
		return 1, nil
	}
	reduceFn := func(state int, name committee.AuthorityName, weight committee.Stake, result int, err error) (Output[int], error) {
		state += result
		if committee.Stake(state) >= cm.QuorumThreshold() {
			return End(state), nil
		}
		return Continue(state), nil
	}

	got, err := MapThenReduceWithTimeout(context.Background(), cm, clients, nil, 0, mapFn, reduceFn, time.Second)
	require.NoError(t, err)
	require.EqualValues(t, cm.QuorumThreshold(), got)
}

func TestMapThenReduceAbortsOnReducerError(t *testing.T) {
	cm, clients, _ := fourEqualStakeClients(t)
	boom := errors.New("boom")
	mapFn := func(ctx context.Context, name committee.AuthorityName, client *safeclient.SafeClient) (int, error) {
		return 0, nil
	}
	reduceFn := func(state int, name committee.AuthorityName, weight committee.Stake, result int, err error) (Output[int], error) {
		return Output[int]{}, boom
	}

	_, err := MapThenReduceWithTimeout(context.Background(), cm, clients, nil, 0, mapFn, reduceFn, time.Second)
	require.ErrorIs(t, err, boom)
}

func TestMapThenReduceTimesOutWithPartialState(t *testing.T) {
	cm, clients, names := fourEqualStakeClients(t)
	mapFn := func(ctx context.Context, name committee.AuthorityName, client *safeclient.SafeClient) (int, error) {
		if name == names["a"] {
			return 1, nil
		}
		<-ctx.Done() // every other validator never answers before timeout
		return 0, ctx.Err()
	}
	reduceFn := func(state int, name committee.AuthorityName, weight committee.Stake, result int, err error) (Output[int], error) {
		if err != nil {
			return Continue(state), nil
		}
		return Continue(state + result), nil
	}

	got, err := MapThenReduceWithTimeout(context.Background(), cm, clients, nil, 0, mapFn, reduceFn, 20*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, 1, got)
}

func TestMapThenReduceHonorsContextCancellation(t *testing.T) {
	cm, clients, _ := fourEqualStakeClients(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	mapFn := func(ctx context.Context, name committee.AuthorityName, client *safeclient.SafeClient) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	reduceFn := func(state int, name committee.AuthorityName, weight committee.Stake, result int, err error) (Output[int], error) {
		return Continue(state), nil
	}

	_, err := MapThenReduceWithTimeout(ctx, cm, clients, nil, 0, mapFn, reduceFn, time.Second)
	require.ErrorIs(t, err, context.Canceled)
}
