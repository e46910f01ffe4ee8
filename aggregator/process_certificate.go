package aggregator

import (
	"context"

	"github.com/luxfi/authority/committee"
	"github.com/luxfi/authority/errs"
	"github.com/luxfi/authority/quorumdriver"
	"github.com/luxfi/authority/rpc"
	"github.com/luxfi/authority/safeclient"
	"github.com/luxfi/authority/types"
)

type effectsStakeInfo struct {
	stake      committee.Stake
	effects    types.TransactionEffects
	signatures []types.AuthoritySigned
}

type processCertificateState struct {
	effectsByDigest map[types.Digest]*effectsStakeInfo
	badStake        committee.Stake
	errors          []error
}

// ProcessCertificate fans cert out to every validator and returns a
// CertifiedTransactionEffects once a single effects digest reaches
// quorum stake. A validator reporting an out-of-date object lock is
// first brought forward via SyncCertificateToAuthority and retried
// once before its response counts against it (spec.md §4.5 recovery
// ladder).
func (a *AuthorityAggregator) ProcessCertificate(ctx context.Context, cert types.CertifiedTransaction) (types.CertifiedTransactionEffects, error) {
	threshold := a.Committee.QuorumThreshold()
	validity := a.Committee.ValidityThreshold()

	mapFn := func(ctx context.Context, name committee.AuthorityName, client *safeclient.SafeClient) (rpc.TransactionInfoResponse, error) {
		resp, err := client.HandleCertificate(ctx, cert)
		if err == nil {
			return resp, nil
		}
		if !errs.IsObjectLocked(err) {
			return resp, err
		}
		if syncErr := a.SyncCertificateToAuthority(ctx, cert, name, DefaultRetries); syncErr != nil {
			return resp, syncErr
		}
		return client.HandleCertificate(ctx, cert)
	}

	reduceFn := func(state processCertificateState, name committee.AuthorityName, weight committee.Stake, resp rpc.TransactionInfoResponse, err error) (quorumdriver.Output[processCertificateState], error) {
		if err == nil && resp.SignedEffects != nil {
			digest := resp.SignedEffects.Effects.Digest()
			entry, ok := state.effectsByDigest[digest]
			if !ok {
				entry = &effectsStakeInfo{effects: resp.SignedEffects.Effects}
				state.effectsByDigest[digest] = entry
			}
			entry.stake += weight
			entry.signatures = append(entry.signatures, resp.SignedEffects.Auth)

			if entry.stake >= threshold {
				return quorumdriver.ContinueWithTimeout(state, a.Timeouts.PostQuorumTimeout), nil
			}
			return quorumdriver.Continue(state), nil
		}

		if err == nil {
			err = &errs.ByzantineAuthoritySuspicion{Authority: name, Reason: "handle_certificate response carried no signed effects"}
		}
		state.errors = append(state.errors, err)
		state.badStake += weight
		if state.badStake > validity {
			return quorumdriver.Output[processCertificateState]{}, &errs.QuorumFailedToExecuteCertificate{Errors: errs.UniqueErrors(state.errors)}
		}
		return quorumdriver.Continue(state), nil
	}

	final, err := quorumdriver.MapThenReduceWithTimeout(
		ctx, a.Committee, a.Clients, nil,
		processCertificateState{effectsByDigest: map[types.Digest]*effectsStakeInfo{}},
		mapFn, reduceFn,
		a.Timeouts.PreQuorumTimeout,
	)
	if err != nil {
		return types.CertifiedTransactionEffects{}, err
	}

	for _, info := range final.effectsByDigest {
		if info.stake >= threshold {
			return types.NewCertifiedTransactionEffects(a.Committee, a.verifier, info.effects, info.signatures)
		}
	}
	return types.CertifiedTransactionEffects{}, &errs.QuorumFailedToExecuteCertificate{Errors: errs.UniqueErrors(final.errors)}
}
