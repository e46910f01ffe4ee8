package types

import (
	"fmt"

	"github.com/luxfi/authority/committee"
)

// ErrQuorumNotMet is returned by NewCertifiedTransaction/
// NewCertifiedTransactionEffects when the supplied signatures do not
// carry at least Q stake.
type ErrQuorumNotMet struct {
	Have, Want committee.Stake
}

func (e *ErrQuorumNotMet) Error() string {
	return fmt.Sprintf("types: quorum not met: have %d stake, need %d", e.Have, e.Want)
}

// NewCertifiedTransaction atomically constructs a certificate: it
// verifies every signature against the committee, verifies that the
// signer stakes sum to at least Q, and only then returns a value. A
// certificate can never exist in a partially-verified state.
func NewCertifiedTransaction(cm *committee.Committee, verifier Verifier, tx Transaction, sigs []AuthoritySigned) (CertifiedTransaction, error) {
	digest := tx.Digest()
	names := make(map[committee.AuthorityName]struct{}, len(sigs))
	for _, s := range sigs {
		pub, ok := verifier.PublicKeyOf(s.Name)
		if !ok {
			return CertifiedTransaction{}, &ErrUnknownVerificationKey{Name: s.Name}
		}
		if err := Verify(pub, digest, s.Signature); err != nil {
			return CertifiedTransaction{}, err
		}
		names[s.Name] = struct{}{}
	}
	stake := cm.StakeOf(names)
	if stake < cm.QuorumThreshold() {
		return CertifiedTransaction{}, &ErrQuorumNotMet{Have: stake, Want: cm.QuorumThreshold()}
	}
	return CertifiedTransaction{
		Epoch:       cm.Epoch(),
		Transaction: tx,
		Signatures:  SortSignaturesByName(sigs),
	}, nil
}

// ErrUnknownVerificationKey is returned when a signer name has no
// known public key.
type ErrUnknownVerificationKey struct {
	Name committee.AuthorityName
}

func (e *ErrUnknownVerificationKey) Error() string {
	return fmt.Sprintf("types: no verification key for %s", e.Name)
}

// NewCertifiedTransactionEffects is the effects analogue of
// NewCertifiedTransaction.
func NewCertifiedTransactionEffects(cm *committee.Committee, verifier Verifier, effects TransactionEffects, sigs []AuthoritySigned) (CertifiedTransactionEffects, error) {
	digest := effects.Digest()
	names := make(map[committee.AuthorityName]struct{}, len(sigs))
	for _, s := range sigs {
		pub, ok := verifier.PublicKeyOf(s.Name)
		if !ok {
			return CertifiedTransactionEffects{}, &ErrUnknownVerificationKey{Name: s.Name}
		}
		if err := Verify(pub, digest, s.Signature); err != nil {
			return CertifiedTransactionEffects{}, err
		}
		names[s.Name] = struct{}{}
	}
	stake := cm.StakeOf(names)
	if stake < cm.QuorumThreshold() {
		return CertifiedTransactionEffects{}, &ErrQuorumNotMet{Have: stake, Want: cm.QuorumThreshold()}
	}
	return CertifiedTransactionEffects{
		Epoch:      cm.Epoch(),
		Effects:    effects,
		Signatures: SortSignaturesByName(sigs),
	}, nil
}
