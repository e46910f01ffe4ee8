package aggregator

import (
	"context"

	"github.com/luxfi/authority/committee"
	"github.com/luxfi/authority/errs"
	"github.com/luxfi/authority/hedgedriver"
	"github.com/luxfi/authority/rpc"
	"github.com/luxfi/authority/safeclient"
	"github.com/luxfi/authority/types"
)

// HandleTransactionInfoRequestHedged routes HandleTransactionInfoRequest
// through HedgedSerialDriver instead of fanning out to every validator:
// any one honest, self-authenticating response suffices.
func (a *AuthorityAggregator) HandleTransactionInfoRequestHedged(ctx context.Context, digest types.Digest) (rpc.TransactionInfoResponse, error) {
	mapFn := func(ctx context.Context, name committee.AuthorityName, client *safeclient.SafeClient) (rpc.TransactionInfoResponse, error) {
		return client.HandleTransactionInfoRequest(ctx, rpc.TransactionInfoRequest{TransactionDigest: digest})
	}
	return hedgedriver.QuorumOnceWithTimeout(
		ctx, a.Committee, a.Clients, nil, nil, mapFn,
		a.Timeouts.SerialAuthorityRequestTimeout,
		a.Timeouts.SerialAuthorityRequestInterval,
		0,
	)
}

// HandleCertInfoRequestHedged requires the returned response to carry
// both a certified transaction and signed effects; any other shape is
// treated as a failed attempt so the hedge schedule moves on to the
// next validator.
func (a *AuthorityAggregator) HandleCertInfoRequestHedged(ctx context.Context, digest types.Digest) (rpc.TransactionInfoResponse, error) {
	mapFn := func(ctx context.Context, name committee.AuthorityName, client *safeclient.SafeClient) (rpc.TransactionInfoResponse, error) {
		resp, err := client.HandleTransactionInfoRequest(ctx, rpc.TransactionInfoRequest{TransactionDigest: digest})
		if err != nil {
			return resp, err
		}
		if resp.CertifiedTransaction == nil || resp.SignedEffects == nil {
			return resp, &errs.ByzantineAuthoritySuspicion{Authority: name, Reason: "handle_cert_info_request response missing certificate or effects"}
		}
		return resp, nil
	}
	return hedgedriver.QuorumOnceWithTimeout(
		ctx, a.Committee, a.Clients, nil, nil, mapFn,
		a.Timeouts.SerialAuthorityRequestTimeout,
		a.Timeouts.SerialAuthorityRequestInterval,
		0,
	)
}

// HandleTransactionAndEffectsInfoRequestHedged routes through
// HedgedSerialDriver. When restrict names an explicit authority set,
// a validator in that set returning an incomplete response is treated
// as Byzantine (it claimed to have the data) rather than merely
// absent.
func (a *AuthorityAggregator) HandleTransactionAndEffectsInfoRequestHedged(ctx context.Context, digest types.Digest, restrict map[committee.AuthorityName]struct{}) (rpc.TransactionInfoResponse, error) {
	mapFn := func(ctx context.Context, name committee.AuthorityName, client *safeclient.SafeClient) (rpc.TransactionInfoResponse, error) {
		resp, err := client.HandleTransactionAndEffectsInfoRequest(ctx, rpc.TransactionInfoRequest{TransactionDigest: digest})
		if err != nil {
			return resp, err
		}
		if restrict != nil {
			if _, known := restrict[name]; known {
				if resp.CertifiedTransaction == nil && resp.SignedTransaction == nil {
					return resp, &errs.ByzantineAuthoritySuspicion{Authority: name, Reason: "handle_transaction_and_effects_info_request: claimed authority has no transaction data"}
				}
				if resp.CertifiedEffects == nil && resp.SignedEffects == nil {
					return resp, &errs.ByzantineAuthoritySuspicion{Authority: name, Reason: "handle_transaction_and_effects_info_request: claimed authority has no effects data"}
				}
			}
		}
		return resp, nil
	}
	return hedgedriver.QuorumOnceWithTimeout(
		ctx, a.Committee, a.Clients, nil, restrict, mapFn,
		a.Timeouts.SerialAuthorityRequestTimeout,
		a.Timeouts.SerialAuthorityRequestInterval,
		0,
	)
}

// HandleCheckpointRequestHedged routes HandleCheckpoint through
// HedgedSerialDriver.
func (a *AuthorityAggregator) HandleCheckpointRequestHedged(ctx context.Context, req rpc.CheckpointRequest) (rpc.CheckpointResponse, error) {
	mapFn := func(ctx context.Context, name committee.AuthorityName, client *safeclient.SafeClient) (rpc.CheckpointResponse, error) {
		return client.HandleCheckpoint(ctx, req)
	}
	return hedgedriver.QuorumOnceWithTimeout(
		ctx, a.Committee, a.Clients, nil, nil, mapFn,
		a.Timeouts.SerialAuthorityRequestTimeout,
		a.Timeouts.SerialAuthorityRequestInterval,
		0,
	)
}

// GetCertifiedCheckpoint requires the returned response to carry a
// Certified checkpoint; a response with nothing certified is treated
// as a failed attempt by an individual validator, not an answer for
// the whole request.
func (a *AuthorityAggregator) GetCertifiedCheckpoint(ctx context.Context, sequence *types.CheckpointSequenceNumber) (types.CertifiedCheckpoint, error) {
	mapFn := func(ctx context.Context, name committee.AuthorityName, client *safeclient.SafeClient) (types.CertifiedCheckpoint, error) {
		resp, err := client.HandleCheckpoint(ctx, rpc.CheckpointRequest{Sequence: sequence})
		if err != nil {
			return types.CertifiedCheckpoint{}, err
		}
		if resp.Certified == nil {
			return types.CertifiedCheckpoint{}, &errs.ByzantineAuthoritySuspicion{Authority: name, Reason: "get_certified_checkpoint response was not a certified variant"}
		}
		return *resp.Certified, nil
	}
	return hedgedriver.QuorumOnceWithTimeout(
		ctx, a.Committee, a.Clients, nil, nil, mapFn,
		a.Timeouts.SerialAuthorityRequestTimeout,
		a.Timeouts.SerialAuthorityRequestInterval,
		0,
	)
}
