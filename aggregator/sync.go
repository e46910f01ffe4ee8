package aggregator

import (
	"context"
	"time"

	"github.com/luxfi/authority/committee"
	"github.com/luxfi/authority/errs"
	"github.com/luxfi/authority/rpc"
	"github.com/luxfi/authority/types"
)

// SyncCertificateToAuthority brings destination forward so it can
// accept cert, using AuthorityRequestTimeout per attempt (spec.md
// §4.6).
func (a *AuthorityAggregator) SyncCertificateToAuthority(ctx context.Context, cert types.CertifiedTransaction, destination committee.AuthorityName, retries int) error {
	return a.SyncCertificateToAuthorityWithTimeout(ctx, cert, destination, a.Timeouts.AuthorityRequestTimeout, retries)
}

// SyncCertificateToAuthorityWithTimeout is SyncCertificateToAuthority
// with an explicit per-attempt timeout.
//
// Candidate sources are cert's signers (they necessarily hold its full
// causal history); retries distinct sources are drawn from that set by
// rejection sampling over the committee's stake-weighted Sample, and
// tried one at a time until one succeeds or all are exhausted.
func (a *AuthorityAggregator) SyncCertificateToAuthorityWithTimeout(ctx context.Context, cert types.CertifiedTransaction, destination committee.AuthorityName, timeoutPeriod time.Duration, retries int) error {
	candidates, err := a.Committee.AuthoritiesFromSignatures(cert.SignerNames())
	if err != nil {
		return err
	}

	sources := a.sampleDistinctSources(candidates, retries)

	for _, source := range sources {
		attemptCtx, cancel := context.WithTimeout(ctx, timeoutPeriod)
		syncErr := a.SyncAuthoritySourceToDestination(attemptCtx, cert, source, destination)
		cancel()
		if syncErr == nil {
			return nil
		}
		if attemptCtx.Err() != nil {
			a.logger.Debug("sync_authority_source_to_destination timed out")
		}

		wrapped := &errs.PairwiseSyncFailed{
			Source:      source,
			Destination: destination,
			TxDigest:    cert.Digest(),
			Inner:       syncErr,
		}
		a.Clients[source].ReportClientError(wrapped)
		a.Clients[destination].ReportClientError(wrapped)
	}

	return &errs.AuthorityUpdateFailure{Destination: destination, TxDigest: cert.Digest()}
}

// sampleDistinctSources rejection-samples up to n distinct names from
// candidates using the committee's stake-weighted Sample.
func (a *AuthorityAggregator) sampleDistinctSources(candidates map[committee.AuthorityName]struct{}, n int) []committee.AuthorityName {
	remaining := make(map[committee.AuthorityName]struct{}, len(candidates))
	for name := range candidates {
		remaining[name] = struct{}{}
	}
	out := make([]committee.AuthorityName, 0, n)
	for len(out) < n && len(remaining) > 0 {
		name := a.Committee.Sample()
		if _, ok := remaining[name]; ok {
			delete(remaining, name)
			out = append(out, name)
		}
	}
	return out
}

// certHandler abstracts "apply this certificate somewhere", so
// SyncAuthoritySourceToDestination can be driven against either a real
// destination client or an injected test double without dynamic
// dispatch at steady state (spec.md §9).
type certHandler interface {
	handle(ctx context.Context, cert types.CertifiedTransaction) (rpc.TransactionInfoResponse, error)
}

type destinationHandler struct {
	aggregator *AuthorityAggregator
	name       committee.AuthorityName
}

func (d destinationHandler) handle(ctx context.Context, cert types.CertifiedTransaction) (rpc.TransactionInfoResponse, error) {
	return d.aggregator.Clients[d.name].HandleCertificate(ctx, cert)
}

// SyncAuthoritySourceToDestination drives a depth-first walk of cert's
// causal dependencies, applying each at destination using history
// fetched from source, until destination accepts cert itself.
//
// Both source and destination may be Byzantine; correctness rests on
// the per-certificate "attempted" cap (at most one retry per
// certificate - see AuthorityInformationUnavailable below) and on the
// caller bounding this call's wall-clock time.
func (a *AuthorityAggregator) SyncAuthoritySourceToDestination(ctx context.Context, cert types.CertifiedTransaction, source, destination committee.AuthorityName) error {
	return a.syncAuthoritySourceToDestination(ctx, cert, source, destinationHandler{aggregator: a, name: destination})
}

func (a *AuthorityAggregator) syncAuthoritySourceToDestination(ctx context.Context, cert types.CertifiedTransaction, source committee.AuthorityName, dest certHandler) error {
	sourceClient := a.Clients[source]

	stack := []types.CertifiedTransaction{cert}
	processed := make(map[types.Digest]struct{})
	attempted := make(map[types.Digest]struct{})

	for len(stack) > 0 {
		target := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		// Keyed by the popped certificate's own digest - see
		// DESIGN.md's note on the original implementation's bug.
		digest := target.Digest()

		if _, ok := processed[digest]; ok {
			continue
		}

		_, err := dest.handle(ctx, target)
		if err == nil {
			processed[digest] = struct{}{}
			continue
		}
		if !errs.IsObjectLocked(err) {
			return err
		}

		if _, ok := attempted[digest]; ok {
			return &errs.AuthorityInformationUnavailable{TxDigest: digest}
		}
		attempted[digest] = struct{}{}

		var effects types.TransactionEffects
		if len(stack) == 0 {
			// This is the very first certificate: it's possible for us
			// to hold a certificate the source hasn't processed yet
			// (a consequence of consistent broadcast). Re-executing is
			// idempotent, so ask the source to run it again.
			resp, execErr := sourceClient.HandleCertificate(ctx, target)
			if execErr != nil {
				return execErr
			}
			if resp.SignedEffects == nil {
				return &errs.AuthorityInformationUnavailable{TxDigest: digest}
			}
			effects = resp.SignedEffects.Effects
		} else {
			resp, infoErr := sourceClient.HandleTransactionInfoRequest(ctx, rpc.TransactionInfoRequest{TransactionDigest: digest})
			if infoErr != nil {
				return infoErr
			}
			if resp.SignedEffects == nil {
				return &errs.AuthorityInformationUnavailable{TxDigest: digest}
			}
			effects = resp.SignedEffects.Effects
		}

		stack = append(stack, target)
		for _, depDigest := range effects.Dependencies {
			depResp, depErr := sourceClient.HandleTransactionInfoRequest(ctx, rpc.TransactionInfoRequest{TransactionDigest: depDigest})
			if depErr != nil {
				return depErr
			}
			if depResp.CertifiedTransaction == nil {
				return &errs.AuthorityInformationUnavailable{TxDigest: depDigest}
			}
			stack = append(stack, *depResp.CertifiedTransaction)
		}
	}
	return nil
}
