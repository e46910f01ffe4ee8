package aggregator

import "time"

// TimeoutConfig holds the aggregator's timing knobs (spec.md §3).
type TimeoutConfig struct {
	// AuthorityRequestTimeout bounds each SyncCertificateToAuthority
	// attempt and each per-authority call in
	// FetchObjectsFromAuthorities. The quorumdriver fan-outs do not
	// apply it: their calls have no per-call bound and are cancelled
	// only when the fan-out itself returns.
	AuthorityRequestTimeout time.Duration
	// PreQuorumTimeout bounds the outer wait before quorum is reached.
	PreQuorumTimeout time.Duration
	// PostQuorumTimeout is the grace period granted after quorum to
	// pick up straggling responses.
	PostQuorumTimeout time.Duration
	// SerialAuthorityRequestTimeout bounds a single call in the hedged
	// path. Should be smaller than AuthorityRequestTimeout, since the
	// caller waits to hear from each authority before moving on.
	SerialAuthorityRequestTimeout time.Duration
	// SerialAuthorityRequestInterval is how long to wait before
	// eagerly starting a second hedged request. Zero makes the hedged
	// path fully parallel; >= SerialAuthorityRequestTimeout makes it
	// fully serial.
	SerialAuthorityRequestInterval time.Duration
}

// DefaultTimeoutConfig returns the conventional timeout values.
func DefaultTimeoutConfig() TimeoutConfig {
	return TimeoutConfig{
		AuthorityRequestTimeout:        60 * time.Second,
		PreQuorumTimeout:               60 * time.Second,
		PostQuorumTimeout:              30 * time.Second,
		SerialAuthorityRequestTimeout:  5 * time.Second,
		SerialAuthorityRequestInterval: time.Second,
	}
}

// DefaultRetries is how many sources SyncCertificateToAuthority samples
// before giving up (spec.md §4.6, matching the original's
// DEFAULT_RETRIES).
const DefaultRetries = 4

// ObjectDownloadChannelBound is the backpressure bound on the channel
// returned by FetchObjectsFromAuthorities (spec.md §5).
const ObjectDownloadChannelBound = 1024
