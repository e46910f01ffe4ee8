package committee

import (
	"math/rand"

	"golang.org/x/exp/maps"
)

// Source is a source of randomness, seedable for deterministic tests.
// Mirrors the teacher's utils/sampler.Source contract.
type Source interface {
	Seed(int64)
	Uint64() uint64
}

type randSource struct {
	*rand.Rand
}

// NewSource returns a new Source seeded with seed.
func NewSource(seed int64) Source {
	return &randSource{Rand: rand.New(rand.NewSource(seed))}
}

// defaultSource is used when a caller doesn't inject a seed; it is
// reseeded from the global generator so repeated calls aren't
// predictable from one run to the next; callers that need determinism
// pass an explicit Source to SampleWithSource or
// ShuffleByStakeWithSource instead.
func defaultSource() Source {
	return NewSource(rand.Int63())
}

// Sample performs a single stake-weighted random pick. An empty
// committee (zero total stake) returns the zero AuthorityName.
func (c *Committee) Sample() AuthorityName {
	return c.sampleWith(defaultSource())
}

// SampleWithSource is Sample with an explicit randomness source, for
// callers that need determinism such as tests.
func (c *Committee) SampleWithSource(src Source) AuthorityName {
	return c.sampleWith(src)
}

func (c *Committee) sampleWith(src Source) AuthorityName {
	if c.totalStake == 0 {
		var zero AuthorityName
		return zero
	}
	target := src.Uint64() % uint64(c.totalStake)
	var cum Stake
	for _, name := range c.order {
		cum += c.voters[name]
		if target < cum {
			return name
		}
	}
	// Unreachable unless of floating point/overflow weirdness; fall
	// back to the last authority in stable order.
	return c.order[len(c.order)-1]
}

// ShuffleByStake returns an ordering over (a subset of) the committee
// where each position is drawn without replacement, proportional to
// stake. If prefer is non-nil, preferred names are placed before the
// rest, each group internally stake-weighted. If restrict is non-nil,
// only those names are considered at all. No name appears twice.
func (c *Committee) ShuffleByStake(prefer, restrict map[AuthorityName]struct{}) []AuthorityName {
	return c.shuffleByStakeWith(defaultSource(), prefer, restrict)
}

// ShuffleByStakeWithSource is ShuffleByStake with an explicit
// randomness source, for deterministic tests.
func (c *Committee) ShuffleByStakeWithSource(src Source, prefer, restrict map[AuthorityName]struct{}) []AuthorityName {
	return c.shuffleByStakeWith(src, prefer, restrict)
}

func (c *Committee) shuffleByStakeWith(src Source, prefer, restrict map[AuthorityName]struct{}) []AuthorityName {
	pool := c.order
	if restrict != nil {
		pool = make([]AuthorityName, 0, len(restrict))
		for _, name := range c.order {
			if _, ok := restrict[name]; ok {
				pool = append(pool, name)
			}
		}
	}

	var preferred, rest []AuthorityName
	if prefer != nil {
		for _, name := range pool {
			if _, ok := prefer[name]; ok {
				preferred = append(preferred, name)
			} else {
				rest = append(rest, name)
			}
		}
	} else {
		rest = pool
	}

	out := make([]AuthorityName, 0, len(pool))
	out = append(out, weightedOrder(c.voters, preferred, src)...)
	out = append(out, weightedOrder(c.voters, rest, src)...)
	return out
}

// weightedOrder draws all of names without replacement, proportional
// to their stake in weights: each draw walks the cumulative weights of
// the names not yet drawn and removes the one it lands on (compare the
// teacher's utils/sampler.weightedWithoutReplacement).
func weightedOrder(weights map[AuthorityName]Stake, names []AuthorityName, src Source) []AuthorityName {
	if len(names) == 0 {
		return nil
	}
	remaining := maps.Clone(weights)
	// Zero out anything not in names so it's never drawn.
	nameSet := make(map[AuthorityName]struct{}, len(names))
	for _, n := range names {
		nameSet[n] = struct{}{}
	}
	for n := range remaining {
		if _, ok := nameSet[n]; !ok {
			delete(remaining, n)
		}
	}

	order := make([]AuthorityName, 0, len(names))
	remainingNames := append([]AuthorityName(nil), names...)

	for len(remainingNames) > 0 {
		var total Stake
		for _, n := range remainingNames {
			total += remaining[n]
		}
		if total == 0 {
			// All remaining have zero weight: break ties by stable
			// input order rather than infinite-looping a weighted draw.
			order = append(order, remainingNames...)
			break
		}
		target := src.Uint64() % uint64(total)
		var cum Stake
		pick := -1
		for i, n := range remainingNames {
			cum += remaining[n]
			if target < cum {
				pick = i
				break
			}
		}
		if pick < 0 {
			pick = len(remainingNames) - 1
		}
		order = append(order, remainingNames[pick])
		remainingNames = append(remainingNames[:pick], remainingNames[pick+1:]...)
	}
	return order
}
