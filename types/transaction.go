package types

import (
	"sort"

	"github.com/luxfi/ids"
)

// TransactionData is the opaque, user-authored payload of a
// transaction (the move/intent data). The aggregator never interprets
// its contents; it only hashes and forwards it.
type TransactionData struct {
	Sender  ids.NodeID
	Kind    string
	Payload []byte
}

func (d TransactionData) digest() Digest {
	return newHasher().bytes([]byte(d.Sender[:])).bytes([]byte(d.Kind)).bytes(d.Payload).digest()
}

// Transaction is an ordered pair (data, user-signature). Its digest is
// a content hash, stable under cloning.
type Transaction struct {
	Data          TransactionData
	UserSignature Signature
}

// Digest returns the content hash of the transaction.
func (t Transaction) Digest() Digest {
	return newHasher().bytes(t.Data.digest().Bytes()).bytes(t.UserSignature).digest()
}

// Clone returns an independent copy of the transaction.
func (t Transaction) Clone() Transaction {
	out := t
	out.UserSignature = append(Signature(nil), t.UserSignature...)
	out.Data.Payload = append([]byte(nil), t.Data.Payload...)
	return out
}

// AuthoritySigned pairs a validator name with its signature over some
// digest; used for both transaction votes and effects votes.
type AuthoritySigned struct {
	Name      ids.NodeID
	Signature Signature
}

// SignedTransaction is a Transaction plus a single validator's
// signature over its digest.
type SignedTransaction struct {
	Transaction Transaction
	Auth        AuthoritySigned
}

// CertifiedTransaction is a Transaction plus a set of (name, signature)
// pairs whose names' stakes sum to >= Q. Formation is atomic: callers
// use NewCertifiedTransaction, which verifies the aggregate before
// returning a value, rather than building one field-by-field.
type CertifiedTransaction struct {
	Epoch       uint64
	Transaction Transaction
	Signatures  []AuthoritySigned
}

// Digest returns the digest of the underlying transaction (a
// certificate does not change what was agreed on, only how strongly).
func (c CertifiedTransaction) Digest() Digest { return c.Transaction.Digest() }

// SignerNames returns the set of authority names that signed this
// certificate, in the order of c.Signatures (sorted by name for a
// certificate built by NewCertifiedTransaction).
func (c CertifiedTransaction) SignerNames() []ids.NodeID {
	out := make([]ids.NodeID, len(c.Signatures))
	for i, s := range c.Signatures {
		out[i] = s.Name
	}
	return out
}

// Bytes returns a stable byte encoding of a Digest, for composing
// larger hashes.
func (d Digest) Bytes() []byte {
	b := make([]byte, len(d))
	copy(b, d[:])
	return b
}

// Verifier resolves an authority name to the public key used to check
// its signatures. The committee package supplies the name; this
// interface decouples types from committee to avoid an import cycle.
type Verifier interface {
	PublicKeyOf(name ids.NodeID) (PublicKey, bool)
}

// SortSignaturesByName returns a copy of sigs sorted by authority name,
// used to make certificate construction deterministic regardless of
// the arrival order votes were collected in.
func SortSignaturesByName(sigs []AuthoritySigned) []AuthoritySigned {
	out := append([]AuthoritySigned(nil), sigs...)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name.String() < out[j].Name.String()
	})
	return out
}
