package types

// ObjectEffectKind classifies how an object was touched by execution.
type ObjectEffectKind int

const (
	ObjectCreated ObjectEffectKind = iota
	ObjectMutated
	ObjectDeleted
)

// ObjectEffect records how a single object was affected by executing a
// certificate.
type ObjectEffect struct {
	Ref  ObjectRef
	Kind ObjectEffectKind
}

// TransactionEffects is the outcome of executing a certificate: the
// objects it created/mutated/deleted, and the digests of the parent
// transactions it causally depends on.
type TransactionEffects struct {
	TransactionDigest Digest
	Changes           []ObjectEffect
	Dependencies      []Digest
}

// Digest returns the content hash of the effects.
func (e TransactionEffects) Digest() Digest {
	h := newHasher().bytes(e.TransactionDigest.Bytes())
	for _, c := range e.Changes {
		h = h.bytes(c.Ref.ID.Bytes()).uint64(uint64(c.Ref.Version)).bytes(c.Ref.Digest.Bytes()).uint64(uint64(c.Kind))
	}
	for _, d := range e.Dependencies {
		h = h.bytes(d.Bytes())
	}
	return h.digest()
}

// IsDeletion reports whether this set of effects deleted the given
// object, and if so returns the deleted ref.
func (e TransactionEffects) IsDeletion(id ObjectID) (ObjectRef, bool) {
	for _, c := range e.Changes {
		if c.Ref.ID == id && c.Kind == ObjectDeleted {
			return c.Ref, true
		}
	}
	return ObjectRef{}, false
}

// SignedTransactionEffects is TransactionEffects plus a single
// validator's signature over its digest.
type SignedTransactionEffects struct {
	Effects TransactionEffects
	Auth    AuthoritySigned
}

// CertifiedTransactionEffects is TransactionEffects plus a set of
// (name, signature) pairs whose names' stakes sum to >= Q.
type CertifiedTransactionEffects struct {
	Epoch      uint64
	Effects    TransactionEffects
	Signatures []AuthoritySigned
}

// Digest returns the digest of the underlying effects.
func (c CertifiedTransactionEffects) Digest() Digest { return c.Effects.Digest() }
