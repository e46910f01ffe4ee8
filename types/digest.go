// Package types implements the transaction/certificate/effects data
// model: content-addressed values that are cloned, signed, and
// certified as they flow through the aggregator.
package types

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/luxfi/ids"
)

// Digest is a content hash, stable under cloning. Transactions, signed
// transactions, certificates, and effects all expose one.
type Digest = ids.ID

// hasher accumulates length-prefixed fields before hashing, the same
// simple framing as the teacher's utils/wrappers.Packer uses to build
// up a byte buffer before it is consumed.
type hasher struct {
	buf []byte
}

func newHasher() *hasher { return &hasher{} }

func (h *hasher) bytes(b []byte) *hasher {
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(b)))
	h.buf = append(h.buf, lenBuf[:]...)
	h.buf = append(h.buf, b...)
	return h
}

func (h *hasher) uint64(v uint64) *hasher {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	h.buf = append(h.buf, b[:]...)
	return h
}

func (h *hasher) digest() Digest {
	sum := sha256.Sum256(h.buf)
	var id Digest
	copy(id[:], sum[:])
	return id
}
