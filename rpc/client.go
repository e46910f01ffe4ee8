// Package rpc defines the validator RPC surface the aggregator speaks
// to. It is consumed, not implemented, here: production wiring plugs
// in a real network client; tests plug in an in-memory fake.
package rpc

import (
	"context"

	"github.com/luxfi/authority/types"
)

// TransactionInfoRequest asks a validator for what it knows about a
// transaction by digest.
type TransactionInfoRequest struct {
	TransactionDigest types.Digest
}

// TransactionInfoResponse is a validator's answer about a transaction:
// at most one of CertifiedTransaction/SignedTransaction is set
// depending on how much the validator has seen, and similarly at most
// one of CertifiedEffects/SignedEffects once execution has happened.
type TransactionInfoResponse struct {
	CertifiedTransaction *types.CertifiedTransaction
	SignedTransaction    *types.SignedTransaction
	CertifiedEffects     *types.CertifiedTransactionEffects
	SignedEffects        *types.SignedTransactionEffects
}

// ObjectInfoRequest asks a validator about a specific object, either
// at its latest version or a pinned one.
type ObjectInfoRequest struct {
	ObjectID types.ObjectID
	AtVersion *types.Version
}

// ObjectInfoResponse carries the object's ref and, if the object was
// produced or last touched by a certificate, that certificate's
// digest so the caller can fetch and apply it elsewhere.
type ObjectInfoResponse struct {
	Ref           types.ObjectRef
	Deleted       bool
	ParentTxDigest *types.Digest
}

// AccountInfoRequest asks a validator for the objects it believes an
// address owns.
type AccountInfoRequest struct {
	Address types.ObjectID
}

// AccountInfoResponse lists the object refs a validator believes an
// address owns.
type AccountInfoResponse struct {
	Objects []types.ObjectRef
}

// CheckpointRequest asks for a checkpoint by sequence number, or the
// latest known checkpoint if Sequence is nil.
type CheckpointRequest struct {
	Sequence *types.CheckpointSequenceNumber
}

// CheckpointResponse carries a certified checkpoint, or nothing if the
// validator has none matching the request.
type CheckpointResponse struct {
	Certified *types.CertifiedCheckpoint
}

// Client is the validator RPC surface consumed by SafeClient. Every
// method either returns a well-typed response or a failure (spec.md
// §6); the aggregator treats ObjectLockedError specially in
// ProcessCertificate's recovery ladder and everything else opaquely.
type Client interface {
	HandleTransaction(ctx context.Context, tx types.Transaction) (TransactionInfoResponse, error)
	HandleCertificate(ctx context.Context, cert types.CertifiedTransaction) (TransactionInfoResponse, error)
	HandleTransactionInfoRequest(ctx context.Context, req TransactionInfoRequest) (TransactionInfoResponse, error)
	HandleObjectInfoRequest(ctx context.Context, req ObjectInfoRequest) (ObjectInfoResponse, error)
	HandleAccountInfoRequest(ctx context.Context, req AccountInfoRequest) (AccountInfoResponse, error)
	HandleCheckpoint(ctx context.Context, req CheckpointRequest) (CheckpointResponse, error)
	HandleTransactionAndEffectsInfoRequest(ctx context.Context, req TransactionInfoRequest) (TransactionInfoResponse, error)
}
