// Package committee models a fixed, weighted validator set for one epoch:
// stake lookup, the quorum/validity thresholds derived from it, and
// stake-weighted sampling used to pick or order validators.
package committee

import (
	"fmt"
	"sort"

	"github.com/luxfi/ids"
)

// AuthorityName identifies a validator. It is derived from the
// validator's public key; the committee never sees the key itself.
type AuthorityName = ids.NodeID

// Stake is a non-negative integer weight.
type Stake = uint64

// Epoch identifies the committee's lifetime. All signatures are scoped
// to a single epoch.
type Epoch = uint64

// Committee is an immutable mapping from AuthorityName to Stake, valid
// for a single Epoch. Two quorums always intersect in at least one
// honest authority: Q + V > S.
type Committee struct {
	epoch       Epoch
	voters      map[AuthorityName]Stake
	totalStake  Stake
	quorum      Stake
	validity    Stake
	order       []AuthorityName // stable order for deterministic iteration
}

// New builds a Committee from a stake map. Authorities with zero stake
// are kept (they may still be addressed), but never count toward Q/V.
func New(epoch Epoch, voters map[AuthorityName]Stake) *Committee {
	voters2 := make(map[AuthorityName]Stake, len(voters))
	order := make([]AuthorityName, 0, len(voters))
	var total Stake
	for name, stake := range voters {
		voters2[name] = stake
		order = append(order, name)
		total += stake
	}
	sort.Slice(order, func(i, j int) bool {
		return order[i].String() < order[j].String()
	})
	return &Committee{
		epoch:      epoch,
		voters:     voters2,
		totalStake: total,
		quorum:     2*total/3 + 1,
		validity:   total/3 + 1,
		order:      order,
	}
}

// Epoch returns the committee's epoch.
func (c *Committee) Epoch() Epoch { return c.epoch }

// TotalStake returns S, the sum of all stake in the committee.
func (c *Committee) TotalStake() Stake { return c.totalStake }

// Weight returns the stake of name, or zero if name is not a member.
func (c *Committee) Weight(name AuthorityName) Stake {
	return c.voters[name]
}

// QuorumThreshold returns Q = floor(2S/3) + 1.
func (c *Committee) QuorumThreshold() Stake { return c.quorum }

// ValidityThreshold returns V = floor(S/3) + 1 = f+1.
func (c *Committee) ValidityThreshold() Stake { return c.validity }

// Members returns every authority name in a stable (sorted) order.
func (c *Committee) Members() []AuthorityName {
	out := make([]AuthorityName, len(c.order))
	copy(out, c.order)
	return out
}

// Contains reports whether name is a member of the committee.
func (c *Committee) Contains(name AuthorityName) bool {
	_, ok := c.voters[name]
	return ok
}

// ErrUnknownSigner is returned by AuthoritiesFromSignatures when a
// signer is not a member of the committee.
type ErrUnknownSigner struct {
	Name AuthorityName
}

func (e *ErrUnknownSigner) Error() string {
	return fmt.Sprintf("committee: unknown signer %s", e.Name)
}

// AuthoritiesFromSignatures inverts a signature bag to the set of
// signer names, failing if any signer is not a committee member.
func (c *Committee) AuthoritiesFromSignatures(names []AuthorityName) (map[AuthorityName]struct{}, error) {
	out := make(map[AuthorityName]struct{}, len(names))
	for _, name := range names {
		if !c.Contains(name) {
			return nil, &ErrUnknownSigner{Name: name}
		}
		out[name] = struct{}{}
	}
	return out, nil
}

// StakeOf sums the weight of a set of authority names. Unknown names
// contribute zero.
func (c *Committee) StakeOf(names map[AuthorityName]struct{}) Stake {
	var sum Stake
	for name := range names {
		sum += c.Weight(name)
	}
	return sum
}
