package aggregator

import (
	"context"
	"sort"
	"sync"

	"github.com/luxfi/authority/committee"
	"github.com/luxfi/authority/errs"
	"github.com/luxfi/authority/quorumdriver"
	"github.com/luxfi/authority/rpc"
	"github.com/luxfi/authority/safeclient"
	"github.com/luxfi/authority/types"
)

type ownedObjectsState struct {
	byRef     map[types.ObjectRef][]committee.AuthorityName
	goodStake committee.Stake
	badStake  committee.Stake
}

// GetAllOwnedObjects fans out HandleAccountInfoRequest and returns,
// for each object ref any validator reported, the set of validators
// that reported it - once good_weight reaches Q, with a
// PostQuorumTimeout grace period for stragglers (spec.md §4.5).
func (a *AuthorityAggregator) GetAllOwnedObjects(ctx context.Context, address types.ObjectID) (map[types.ObjectRef][]committee.AuthorityName, error) {
	threshold := a.Committee.QuorumThreshold()
	validity := a.Committee.ValidityThreshold()

	mapFn := func(ctx context.Context, name committee.AuthorityName, client *safeclient.SafeClient) (rpc.AccountInfoResponse, error) {
		return client.HandleAccountInfoRequest(ctx, rpc.AccountInfoRequest{Address: address})
	}

	reduceFn := func(state ownedObjectsState, name committee.AuthorityName, weight committee.Stake, resp rpc.AccountInfoResponse, err error) (quorumdriver.Output[ownedObjectsState], error) {
		if err != nil {
			state.badStake += weight
			if state.badStake > validity {
				return quorumdriver.Output[ownedObjectsState]{}, &errs.TooManyIncorrectAuthorities{Errors: map[committee.AuthorityName]error{name: err}}
			}
			return quorumdriver.Continue(state), nil
		}

		state.goodStake += weight
		for _, ref := range resp.Objects {
			state.byRef[ref] = append(state.byRef[ref], name)
		}
		if state.goodStake >= threshold {
			return quorumdriver.ContinueWithTimeout(state, a.Timeouts.PostQuorumTimeout), nil
		}
		return quorumdriver.Continue(state), nil
	}

	final, err := quorumdriver.MapThenReduceWithTimeout(
		ctx, a.Committee, a.Clients, nil,
		ownedObjectsState{byRef: map[types.ObjectRef][]committee.AuthorityName{}},
		mapFn, reduceFn,
		a.Timeouts.PreQuorumTimeout,
	)
	if err != nil {
		return nil, err
	}
	return final.byRef, nil
}

// ObjectSyncResult pairs the highest-version state of an object with
// the certificate responsible for it (nil for a genesis object, which
// has no parent certificate and needs no sync).
type ObjectSyncResult struct {
	Ref       types.ObjectRef
	Tombstone bool
	Cert      *types.CertifiedTransaction
}

// objectReport is one validator's answer about an object, tagged with
// who reported it.
type objectReport struct {
	Name committee.AuthorityName
	Resp rpc.ObjectInfoResponse
}

// GetObjectByID fans out HandleObjectInfoRequest across the committee
// and returns every (authority, ref, parent-tx) report, ordered by
// ascending version so the highest version is last - "highest version
// last" is not a convention callers must remember, it is how the
// slice is returned.
func (a *AuthorityAggregator) GetObjectByID(ctx context.Context, id types.ObjectID) ([]objectReport, error) {
	type state struct {
		reports  []objectReport
		errors   []error
		badStake committee.Stake
	}
	validity := a.Committee.ValidityThreshold()

	mapFn := func(ctx context.Context, name committee.AuthorityName, client *safeclient.SafeClient) (rpc.ObjectInfoResponse, error) {
		return client.HandleObjectInfoRequest(ctx, rpc.ObjectInfoRequest{ObjectID: id})
	}
	reduceFn := func(st state, name committee.AuthorityName, weight committee.Stake, resp rpc.ObjectInfoResponse, err error) (quorumdriver.Output[state], error) {
		if err != nil {
			st.errors = append(st.errors, err)
			st.badStake += weight
			if st.badStake > validity {
				return quorumdriver.Output[state]{}, &errs.TooManyIncorrectAuthorities{Errors: map[committee.AuthorityName]error{name: err}}
			}
			return quorumdriver.Continue(st), nil
		}
		st.reports = append(st.reports, objectReport{Name: name, Resp: resp})
		return quorumdriver.Continue(st), nil
	}

	final, err := quorumdriver.MapThenReduceWithTimeout(
		ctx, a.Committee, a.Clients, nil,
		state{}, mapFn, reduceFn,
		a.Timeouts.PreQuorumTimeout,
	)
	if err != nil {
		return nil, err
	}
	sort.Slice(final.reports, func(i, j int) bool {
		return final.reports[i].Resp.Ref.Version < final.reports[j].Resp.Ref.Version
	})
	return final.reports, nil
}

// SyncAllGivenObjects resolves each id to its highest reported
// version, schedules validators missing that version to be synced the
// responsible certificate, and returns the resulting (object, cert)
// pairs. A genesis object (no parent certificate) is returned without
// attempting any sync.
func (a *AuthorityAggregator) SyncAllGivenObjects(ctx context.Context, ids []types.ObjectID) ([]ObjectSyncResult, error) {
	results := make([]ObjectSyncResult, 0, len(ids))
	for _, id := range ids {
		reports, err := a.GetObjectByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if len(reports) == 0 {
			continue
		}
		top := reports[len(reports)-1] // highest version, by GetObjectByID's ordering contract

		var cert *types.CertifiedTransaction
		if top.Resp.ParentTxDigest != nil {
			cert, err = a.fetchCertificateByDigest(ctx, *top.Resp.ParentTxDigest)
			if err != nil {
				return nil, err
			}
			if cert != nil {
				upToDate := make(map[committee.AuthorityName]struct{}, len(reports))
				for _, r := range reports {
					if r.Resp.Ref == top.Resp.Ref {
						upToDate[r.Name] = struct{}{}
					}
				}
				for _, name := range a.Committee.Members() {
					if _, ok := upToDate[name]; !ok {
						_ = a.SyncCertificateToAuthority(ctx, *cert, name, DefaultRetries)
					}
				}
			}
		}

		results = append(results, ObjectSyncResult{
			Ref:       top.Resp.Ref,
			Tombstone: top.Resp.Deleted,
			Cert:      cert,
		})
	}
	return results, nil
}

// fetchCertificateByDigest asks the hedged driver for a certificate by
// digest from any validator, rather than requiring every authority to
// answer.
func (a *AuthorityAggregator) fetchCertificateByDigest(ctx context.Context, digest types.Digest) (*types.CertifiedTransaction, error) {
	resp, err := a.HandleTransactionInfoRequestHedged(ctx, digest)
	if err != nil {
		return nil, err
	}
	return resp.CertifiedTransaction, nil
}

// SyncAllOwnedObjects resolves address's owned objects to their live
// state and tombstones, driving GetAllOwnedObjects then
// SyncAllGivenObjects (spec.md §4.5).
func (a *AuthorityAggregator) SyncAllOwnedObjects(ctx context.Context, address types.ObjectID) (live []ObjectSyncResult, tombstones []ObjectSyncResult, err error) {
	byRef, err := a.GetAllOwnedObjects(ctx, address)
	if err != nil {
		return nil, nil, err
	}
	ids := make(map[types.ObjectID]struct{}, len(byRef))
	for ref := range byRef {
		ids[ref.ID] = struct{}{}
	}
	idList := make([]types.ObjectID, 0, len(ids))
	for id := range ids {
		idList = append(idList, id)
	}

	results, err := a.SyncAllGivenObjects(ctx, idList)
	if err != nil {
		return nil, nil, err
	}
	for _, r := range results {
		if r.Tombstone {
			tombstones = append(tombstones, r)
		} else {
			live = append(live, r)
		}
	}
	return live, tombstones, nil
}

// ObjectFetchResult is one ref's outcome from FetchObjectsFromAuthorities:
// either the ref as confirmed by a matching authority, or Err if none
// could produce it.
type ObjectFetchResult struct {
	Ref types.ObjectRef
	Err error
}

// FetchObjectsFromAuthorities launches one fetch per ref against every
// authority and streams results back over a channel bounded at
// ObjectDownloadChannelBound, for backpressure against a slow consumer
// (spec.md §5). All tasks are launched up front; the channel is closed
// once every one of them has sent its result, so the receiver observes
// end-of-stream by ranging to completion rather than polling a count.
//
// This assumes all authorities are honest about the object content
// behind a ref; it exists to pull down objects already known to be
// correct, not to adjudicate between conflicting ones.
func (a *AuthorityAggregator) FetchObjectsFromAuthorities(ctx context.Context, refs []types.ObjectRef) <-chan ObjectFetchResult {
	out := make(chan ObjectFetchResult, ObjectDownloadChannelBound)
	var wg sync.WaitGroup
	for _, ref := range refs {
		wg.Add(1)
		go func(ref types.ObjectRef) {
			defer wg.Done()
			a.fetchOneObject(ctx, ref, out)
		}(ref)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// fetchOneObject asks every authority for ref's object and sends back
// the first response whose ref matches the one requested.
func (a *AuthorityAggregator) fetchOneObject(ctx context.Context, ref types.ObjectRef, out chan<- ObjectFetchResult) {
	atVersion := ref.Version
	req := rpc.ObjectInfoRequest{ObjectID: ref.ID, AtVersion: &atVersion}

	for name := range a.Clients {
		attemptCtx, cancel := context.WithTimeout(ctx, a.Timeouts.AuthorityRequestTimeout)
		resp, err := a.Clients[name].HandleObjectInfoRequest(attemptCtx, req)
		cancel()
		if err != nil {
			continue
		}
		if resp.Ref == ref {
			out <- ObjectFetchResult{Ref: resp.Ref}
			return
		}
	}
	out <- ObjectFetchResult{Err: &errs.ObjectFetchFailed{ObjectID: ref.ID}}
}
