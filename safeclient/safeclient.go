// Package safeclient wraps a raw validator RPC client so that every
// response carrying a signature is checked against the committee
// before it reaches the caller. SafeClient never hides an error from
// its caller; it only adds verification and records client-visible
// failures for later de-prioritization (spec.md §4.2).
package safeclient

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/luxfi/authority/committee"
	"github.com/luxfi/authority/errs"
	"github.com/luxfi/authority/rpc"
	"github.com/luxfi/authority/types"
	"github.com/luxfi/log"
	"github.com/luxfi/zap"
)

// SafeClient is a thin, cheaply-clonable facade in front of a single
// validator's raw RPC client.
type SafeClient struct {
	name      committee.AuthorityName
	client    rpc.Client
	committee *committee.Committee
	verifier  types.Verifier
	logger    log.Logger

	errCount atomic.Int64

	mu       sync.Mutex
	lastErrs []error // bounded ring of the most recent observed errors
}

const maxRecordedErrors = 32

// New wraps client for authority name, verifying its responses against
// cm using verifier to resolve signing keys.
func New(name committee.AuthorityName, client rpc.Client, cm *committee.Committee, verifier types.Verifier, logger log.Logger) *SafeClient {
	if logger == nil {
		logger = log.NoLog{}
	}
	return &SafeClient{name: name, client: client, committee: cm, verifier: verifier, logger: logger}
}

// Name returns the authority this client speaks to.
func (s *SafeClient) Name() committee.AuthorityName { return s.name }

// Inner returns the raw RPC client this SafeClient wraps.
func (s *SafeClient) Inner() rpc.Client { return s.client }

// ErrorCount returns the number of client-visible errors observed so
// far for this authority. Monotonically increasing; stale reads are
// acceptable (spec.md §5).
func (s *SafeClient) ErrorCount() int64 { return s.errCount.Load() }

// RecentErrors returns a snapshot of the most recently observed
// errors, most recent last.
func (s *SafeClient) RecentErrors() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]error, len(s.lastErrs))
	copy(out, s.lastErrs)
	return out
}

// ReportClientError records an externally-observed failure involving
// this authority (e.g. a PairwiseSyncFailed reported by the
// aggregator) without going through a live RPC call.
func (s *SafeClient) ReportClientError(err error) {
	s.recordError(err)
}

func (s *SafeClient) recordError(err error) {
	if err == nil {
		return
	}
	s.errCount.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErrs = append(s.lastErrs, err)
	if len(s.lastErrs) > maxRecordedErrors {
		s.lastErrs = s.lastErrs[len(s.lastErrs)-maxRecordedErrors:]
	}
}

func (s *SafeClient) byzantine(reason string) error {
	err := &errs.ByzantineAuthoritySuspicion{Authority: s.name, Reason: reason}
	s.recordError(err)
	s.logger.Warn("byzantine authority suspicion",
		zap.Stringer("authority", s.name),
		zap.String("reason", reason),
	)
	return err
}

// verifyResponse checks any signed payload present in resp against
// the committee and this authority's claimed identity.
func (s *SafeClient) verifyResponse(resp rpc.TransactionInfoResponse) (rpc.TransactionInfoResponse, error) {
	if st := resp.SignedTransaction; st != nil {
		if st.Auth.Name != s.name {
			return resp, s.byzantine("signed transaction names a different authority than the one that responded")
		}
		pub, ok := s.verifier.PublicKeyOf(st.Auth.Name)
		if !ok {
			return resp, s.byzantine("signed transaction from unknown verification key")
		}
		if err := types.Verify(pub, st.Transaction.Digest(), st.Auth.Signature); err != nil {
			return resp, s.byzantine("signed transaction signature does not verify")
		}
	}
	if ct := resp.CertifiedTransaction; ct != nil {
		if ct.Epoch != s.committee.Epoch() {
			return resp, s.byzantine("certificate from wrong epoch")
		}
		if err := s.verifyCertSignatures(ct.Transaction.Digest(), ct.Signatures); err != nil {
			return resp, err
		}
	}
	if se := resp.SignedEffects; se != nil {
		if se.Auth.Name != s.name {
			return resp, s.byzantine("signed effects names a different authority than the one that responded")
		}
		pub, ok := s.verifier.PublicKeyOf(se.Auth.Name)
		if !ok {
			return resp, s.byzantine("signed effects from unknown verification key")
		}
		if err := types.Verify(pub, se.Effects.Digest(), se.Auth.Signature); err != nil {
			return resp, s.byzantine("signed effects signature does not verify")
		}
	}
	if ce := resp.CertifiedEffects; ce != nil {
		if ce.Epoch != s.committee.Epoch() {
			return resp, s.byzantine("certified effects from wrong epoch")
		}
		if err := s.verifyCertSignatures(ce.Effects.Digest(), ce.Signatures); err != nil {
			return resp, err
		}
	}
	return resp, nil
}

func (s *SafeClient) verifyCertSignatures(digest types.Digest, sigs []types.AuthoritySigned) error {
	names := make(map[committee.AuthorityName]struct{}, len(sigs))
	for _, sig := range sigs {
		pub, ok := s.verifier.PublicKeyOf(sig.Name)
		if !ok {
			return s.byzantine("certificate signed by unknown authority")
		}
		if err := types.Verify(pub, digest, sig.Signature); err != nil {
			return s.byzantine("certificate signature does not verify")
		}
		names[sig.Name] = struct{}{}
	}
	if stake := s.committee.StakeOf(names); stake < s.committee.QuorumThreshold() {
		return s.byzantine("certificate does not carry quorum stake")
	}
	return nil
}

// HandleTransaction submits tx and returns a verified response.
func (s *SafeClient) HandleTransaction(ctx context.Context, tx types.Transaction) (rpc.TransactionInfoResponse, error) {
	resp, err := s.client.HandleTransaction(ctx, tx)
	if err != nil {
		s.recordError(err)
		return resp, err
	}
	return s.verifyResponse(resp)
}

// HandleCertificate submits cert and returns a verified response.
func (s *SafeClient) HandleCertificate(ctx context.Context, cert types.CertifiedTransaction) (rpc.TransactionInfoResponse, error) {
	resp, err := s.client.HandleCertificate(ctx, cert)
	if err != nil {
		s.recordError(err)
		return resp, err
	}
	return s.verifyResponse(resp)
}

// HandleTransactionInfoRequest fetches what the authority knows about
// a transaction by digest.
func (s *SafeClient) HandleTransactionInfoRequest(ctx context.Context, req rpc.TransactionInfoRequest) (rpc.TransactionInfoResponse, error) {
	resp, err := s.client.HandleTransactionInfoRequest(ctx, req)
	if err != nil {
		s.recordError(err)
		return resp, err
	}
	return s.verifyResponse(resp)
}

// HandleObjectInfoRequest fetches what the authority knows about an
// object.
func (s *SafeClient) HandleObjectInfoRequest(ctx context.Context, req rpc.ObjectInfoRequest) (rpc.ObjectInfoResponse, error) {
	resp, err := s.client.HandleObjectInfoRequest(ctx, req)
	if err != nil {
		s.recordError(err)
		return resp, err
	}
	return resp, nil
}

// HandleAccountInfoRequest fetches the objects an address owns
// according to this authority.
func (s *SafeClient) HandleAccountInfoRequest(ctx context.Context, req rpc.AccountInfoRequest) (rpc.AccountInfoResponse, error) {
	resp, err := s.client.HandleAccountInfoRequest(ctx, req)
	if err != nil {
		s.recordError(err)
		return resp, err
	}
	return resp, nil
}

// HandleCheckpoint fetches a (possibly certified) checkpoint.
func (s *SafeClient) HandleCheckpoint(ctx context.Context, req rpc.CheckpointRequest) (rpc.CheckpointResponse, error) {
	resp, err := s.client.HandleCheckpoint(ctx, req)
	if err != nil {
		s.recordError(err)
		return resp, err
	}
	if resp.Certified != nil && resp.Certified.Epoch != s.committee.Epoch() {
		return resp, s.byzantine("certified checkpoint from wrong epoch")
	}
	if resp.Certified != nil {
		if err := s.verifyCertSignatures(resp.Certified.Summary.Digest(), resp.Certified.Signatures); err != nil {
			return resp, err
		}
	}
	return resp, nil
}

// HandleTransactionAndEffectsInfoRequest fetches both the transaction
// and effects info a validator holds for a digest.
func (s *SafeClient) HandleTransactionAndEffectsInfoRequest(ctx context.Context, req rpc.TransactionInfoRequest) (rpc.TransactionInfoResponse, error) {
	resp, err := s.client.HandleTransactionAndEffectsInfoRequest(ctx, req)
	if err != nil {
		s.recordError(err)
		return resp, err
	}
	return s.verifyResponse(resp)
}
