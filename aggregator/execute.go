package aggregator

import (
	"context"

	"github.com/luxfi/authority/committee"
	"github.com/luxfi/authority/errs"
	"github.com/luxfi/authority/quorumdriver"
	"github.com/luxfi/authority/safeclient"
	"github.com/luxfi/authority/types"
)

// ExecuteTransaction drives a transaction to certified effects:
// ProcessTransaction followed by ProcessCertificate. The certificate
// counter is incremented exactly once, between the two calls.
func (a *AuthorityAggregator) ExecuteTransaction(ctx context.Context, tx types.Transaction) (types.CertifiedTransaction, types.CertifiedTransactionEffects, error) {
	cert, err := a.ProcessTransaction(ctx, tx)
	if err != nil {
		return types.CertifiedTransaction{}, types.CertifiedTransactionEffects{}, err
	}
	a.Metrics.TotalTxCertificatesCreated.Inc()

	effects, err := a.ProcessCertificate(ctx, cert)
	if err != nil {
		return types.CertifiedTransaction{}, types.CertifiedTransactionEffects{}, err
	}
	return cert, effects, nil
}

type executeCertState struct {
	cumulativeWeight committee.Stake
	goodWeight       committee.Stake
	digests          map[types.Digest]committee.Stake
	trueEffects      *types.SignedTransactionEffects
	errors           map[committee.AuthorityName]error
}

// ExecuteCertToTrueEffects is for external observers who are not
// signers of cert: it fans out with cert's signers preferred (they
// can apply it immediately) and ends as soon as any single effects
// digest reaches the validity threshold V - with <=f Byzantine
// validators, V stake agreeing on one outcome means at least one
// honest validator signed it, so it must be the true outcome. It also
// ends, unsuccessfully, the moment the remaining unqueried stake plus
// the stake of every successful response so far (across all digests)
// falls below V.
func (a *AuthorityAggregator) ExecuteCertToTrueEffects(ctx context.Context, cert types.CertifiedTransaction) (types.SignedTransactionEffects, error) {
	validity := a.Committee.ValidityThreshold()
	totalWeight := a.Committee.TotalStake()

	signers, err := a.Committee.AuthoritiesFromSignatures(cert.SignerNames())
	if err != nil {
		return types.SignedTransactionEffects{}, err
	}

	mapFn := func(ctx context.Context, name committee.AuthorityName, client *safeclient.SafeClient) (types.SignedTransactionEffects, error) {
		resp, err := client.HandleCertificate(ctx, cert)
		if err != nil {
			return types.SignedTransactionEffects{}, err
		}
		if resp.SignedEffects == nil {
			return types.SignedTransactionEffects{}, &errs.ByzantineAuthoritySuspicion{Authority: name, Reason: "handle_certificate response carried no signed effects"}
		}
		return *resp.SignedEffects, nil
	}

	reduceFn := func(state executeCertState, name committee.AuthorityName, weight committee.Stake, effects types.SignedTransactionEffects, err error) (quorumdriver.Output[executeCertState], error) {
		state.cumulativeWeight += weight

		if err == nil {
			state.goodWeight += weight
			digest := effects.Effects.Digest()
			state.digests[digest] += weight
			if state.digests[digest] >= validity {
				e := effects
				state.trueEffects = &e
				return quorumdriver.End(state), nil
			}
		} else {
			state.errors[name] = err
		}

		remaining := totalWeight - state.cumulativeWeight
		if remaining+state.goodWeight < validity {
			return quorumdriver.End(state), nil
		}
		return quorumdriver.Continue(state), nil
	}

	final, err := quorumdriver.MapThenReduceWithTimeout(
		ctx, a.Committee, a.Clients, signers,
		executeCertState{digests: map[types.Digest]committee.Stake{}, errors: map[committee.AuthorityName]error{}},
		mapFn, reduceFn,
		a.Timeouts.PreQuorumTimeout,
	)
	if err != nil {
		return types.SignedTransactionEffects{}, err
	}
	if final.trueEffects == nil {
		return types.SignedTransactionEffects{}, &errs.TooManyIncorrectAuthorities{Errors: final.errors}
	}
	return *final.trueEffects, nil
}
