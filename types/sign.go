package types

import (
	"crypto/ed25519"
	"errors"
)

// Signature is a single validator's signature over a digest.
type Signature []byte

// PublicKey identifies a validator's signing key. AuthorityName (in the
// committee package) is derived from one, but the aggregator never
// needs to perform that derivation itself.
type PublicKey ed25519.PublicKey

// PrivateKey signs digests on behalf of a validator. Only test fixtures
// and the (excluded, validator-side) signer hold one of these.
type PrivateKey ed25519.PrivateKey

// GenerateKey returns a fresh signing keypair, for tests and fixtures.
func GenerateKey() (PublicKey, PrivateKey, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, nil, err
	}
	return PublicKey(pub), PrivateKey(priv), nil
}

// Sign produces a signature over digest.
func Sign(key PrivateKey, digest Digest) Signature {
	return Signature(ed25519.Sign(ed25519.PrivateKey(key), digest[:]))
}

// ErrInvalidSignature is returned by Verify when a signature does not
// validate against the provided public key and digest.
var ErrInvalidSignature = errors.New("types: invalid signature")

// Verify checks a signature over digest against a public key.
func Verify(key PublicKey, digest Digest, sig Signature) error {
	if !ed25519.Verify(ed25519.PublicKey(key), digest[:], []byte(sig)) {
		return ErrInvalidSignature
	}
	return nil
}
