package types

// CheckpointSequenceNumber is the monotonically increasing sequence
// number of a checkpoint.
type CheckpointSequenceNumber uint64

// CheckpointSummary is the content a checkpoint certifies: a sequence
// number and the digest of its contents.
type CheckpointSummary struct {
	Sequence        CheckpointSequenceNumber
	ContentsDigest  Digest
	PreviousDigest  Digest
}

// Digest returns the content hash of the summary.
func (s CheckpointSummary) Digest() Digest {
	return newHasher().uint64(uint64(s.Sequence)).bytes(s.ContentsDigest.Bytes()).bytes(s.PreviousDigest.Bytes()).digest()
}

// CertifiedCheckpoint is a CheckpointSummary plus a set of (name,
// signature) pairs whose stakes sum to >= Q. A response to a
// checkpoint request is only acceptable if it is this variant -
// anything else (e.g. "none known yet") is a Byzantine claim once the
// caller has reason to believe the checkpoint exists.
type CertifiedCheckpoint struct {
	Epoch      uint64
	Summary    CheckpointSummary
	Signatures []AuthoritySigned
}
