// Package aggregator implements the top-level, client-side BFT
// protocols built atop quorumdriver and hedgedriver: submitting a
// transaction, forming and broadcasting a certificate, gathering
// effects, syncing lagging validators, and fetching owned objects and
// checkpoints (spec.md §4.5).
package aggregator

import (
	"github.com/luxfi/authority/committee"
	"github.com/luxfi/authority/rpc"
	"github.com/luxfi/authority/safeclient"
	"github.com/luxfi/authority/types"
	"github.com/luxfi/log"
)

// KeyStore resolves an authority name to its public signing key. It is
// the aggregator's types.Verifier.
type KeyStore map[committee.AuthorityName]types.PublicKey

// PublicKeyOf implements types.Verifier.
func (k KeyStore) PublicKeyOf(name committee.AuthorityName) (types.PublicKey, bool) {
	pub, ok := k[name]
	return pub, ok
}

var _ types.Verifier = KeyStore(nil)

// AuthorityAggregator drives multi-round consensus-style interactions
// against a fixed committee. It holds no persistent state of its own;
// everything it needs for one epoch is in Committee and Clients.
type AuthorityAggregator struct {
	Committee *committee.Committee
	Clients   map[committee.AuthorityName]*safeclient.SafeClient
	Metrics   *Metrics
	Timeouts  TimeoutConfig

	verifier types.Verifier
	logger   log.Logger
}

// New constructs an aggregator with the default TimeoutConfig.
func New(cm *committee.Committee, rawClients map[committee.AuthorityName]rpc.Client, keys KeyStore, metrics *Metrics, logger log.Logger) *AuthorityAggregator {
	return NewWithTimeouts(cm, rawClients, keys, metrics, logger, DefaultTimeoutConfig())
}

// NewWithTimeouts constructs an aggregator with an explicit
// TimeoutConfig.
func NewWithTimeouts(cm *committee.Committee, rawClients map[committee.AuthorityName]rpc.Client, keys KeyStore, metrics *Metrics, logger log.Logger, timeouts TimeoutConfig) *AuthorityAggregator {
	if logger == nil {
		logger = log.NoLog{}
	}
	clients := make(map[committee.AuthorityName]*safeclient.SafeClient, len(rawClients))
	for name, raw := range rawClients {
		clients[name] = safeclient.New(name, raw, cm, keys, logger)
	}
	return &AuthorityAggregator{
		Committee: cm,
		Clients:   clients,
		Metrics:   metrics,
		Timeouts:  timeouts,
		verifier:  keys,
		logger:    logger,
	}
}

// CloneClient returns the SafeClient wrapping the named authority.
func (a *AuthorityAggregator) CloneClient(name committee.AuthorityName) *safeclient.SafeClient {
	return a.Clients[name]
}

// CloneInnerClients returns a copy of the raw RPC clients underlying
// every SafeClient, keyed by authority name.
func (a *AuthorityAggregator) CloneInnerClients() map[committee.AuthorityName]rpc.Client {
	out := make(map[committee.AuthorityName]rpc.Client, len(a.Clients))
	for name, c := range a.Clients {
		out[name] = c.Inner()
	}
	return out
}
