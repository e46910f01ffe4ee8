package aggregator

import (
	"context"

	"github.com/luxfi/authority/committee"
	"github.com/luxfi/authority/errs"
	"github.com/luxfi/authority/quorumdriver"
	"github.com/luxfi/authority/rpc"
	"github.com/luxfi/authority/safeclient"
	"github.com/luxfi/authority/types"
	"github.com/luxfi/zap"
)

type processTransactionState struct {
	signatures  []types.AuthoritySigned
	certificate *types.CertifiedTransaction
	errors      []error
	goodStake   committee.Stake
	badStake    committee.Stake
}

// ProcessTransaction fans out tx to every validator and returns a
// CertifiedTransaction once a quorum of signatures (or a single
// validator's already-formed certificate) has been collected
// (spec.md §4.5).
func (a *AuthorityAggregator) ProcessTransaction(ctx context.Context, tx types.Transaction) (types.CertifiedTransaction, error) {
	threshold := a.Committee.QuorumThreshold()
	validity := a.Committee.ValidityThreshold()

	mapFn := func(ctx context.Context, name committee.AuthorityName, client *safeclient.SafeClient) (rpc.TransactionInfoResponse, error) {
		return client.HandleTransaction(ctx, tx)
	}

	reduceFn := func(state processTransactionState, name committee.AuthorityName, weight committee.Stake, resp rpc.TransactionInfoResponse, err error) (quorumdriver.Output[processTransactionState], error) {
		switch {
		case err == nil && resp.CertifiedTransaction != nil:
			state.certificate = resp.CertifiedTransaction

		case err == nil && resp.SignedTransaction != nil:
			state.signatures = append(state.signatures, resp.SignedTransaction.Auth)
			state.goodStake += weight
			if state.goodStake >= threshold {
				a.Metrics.NumSignaturesPerTx.Observe(float64(len(state.signatures)))
				a.Metrics.NumGoodStakePerTx.Observe(float64(state.goodStake))
				a.Metrics.NumBadStakePerTx.Observe(float64(state.badStake))
				cert, certErr := types.NewCertifiedTransaction(a.Committee, a.verifier, tx, state.signatures)
				if certErr != nil {
					return quorumdriver.Output[processTransactionState]{}, certErr
				}
				state.certificate = &cert
			}

		case err == nil:
			// Response without a certificate or a signed transaction:
			// the validator claims success but gave us nothing usable.
			state.errors = append(state.errors, &errs.ByzantineAuthoritySuspicion{Authority: name, Reason: "handle_transaction response carried neither a certificate nor a signature"})
			state.badStake += weight

		default:
			state.errors = append(state.errors, err)
			state.badStake += weight
		}

		if state.badStake > validity {
			a.Metrics.NumSignaturesPerTx.Observe(float64(len(state.signatures)))
			a.Metrics.NumGoodStakePerTx.Observe(float64(state.goodStake))
			a.Metrics.NumBadStakePerTx.Observe(float64(state.badStake))

			unique := errs.UniqueErrors(state.errors)
			if len(unique) == 1 && state.goodStake == 0 {
				return quorumdriver.Output[processTransactionState]{}, unique[0]
			}
			return quorumdriver.Output[processTransactionState]{}, &errs.QuorumNotReached{Errors: unique}
		}

		if state.certificate != nil {
			return quorumdriver.End(state), nil
		}
		return quorumdriver.Continue(state), nil
	}

	final, err := quorumdriver.MapThenReduceWithTimeout(
		ctx, a.Committee, a.Clients, nil,
		processTransactionState{},
		mapFn, reduceFn,
		a.Timeouts.PreQuorumTimeout,
	)
	if err != nil {
		return types.CertifiedTransaction{}, err
	}
	if final.certificate == nil {
		a.logger.Debug("process_transaction produced no certificate", zap.Int("errors", len(final.errors)))
		return types.CertifiedTransaction{}, &errs.QuorumNotReached{Errors: errs.UniqueErrors(final.errors)}
	}
	return *final.certificate, nil
}
