package committee

import (
	"testing"

	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"
)

func fourEqualStake() (*Committee, map[string]AuthorityName) {
	a := ids.GenerateTestNodeID()
	b := ids.GenerateTestNodeID()
	c := ids.GenerateTestNodeID()
	d := ids.GenerateTestNodeID()
	cm := New(1, map[AuthorityName]Stake{a: 1, b: 1, c: 1, d: 1})
	return cm, map[string]AuthorityName{"a": a, "b": b, "c": c, "d": d}
}

func TestThresholds(t *testing.T) {
	require := require.New(t)
	cm, _ := fourEqualStake()
	require.EqualValues(4, cm.TotalStake())
	require.EqualValues(3, cm.QuorumThreshold())
	require.EqualValues(2, cm.ValidityThreshold())
	require.Greater(cm.QuorumThreshold()+cm.ValidityThreshold(), cm.TotalStake())
}

func TestWeightUnknownIsZero(t *testing.T) {
	cm, _ := fourEqualStake()
	require.Zero(t, cm.Weight(ids.GenerateTestNodeID()))
}

func TestAuthoritiesFromSignaturesRejectsUnknown(t *testing.T) {
	cm, names := fourEqualStake()
	_, err := cm.AuthoritiesFromSignatures([]AuthorityName{names["a"], ids.GenerateTestNodeID()})
	require.Error(t, err)
	var target *ErrUnknownSigner
	require.ErrorAs(t, err, &target)
}

func TestShuffleByStakeNoDuplicates(t *testing.T) {
	cm, _ := fourEqualStake()
	src := NewSource(42)
	order := cm.ShuffleByStakeWithSource(src, nil, nil)
	require.Len(t, order, 4)
	seen := map[AuthorityName]bool{}
	for _, n := range order {
		require.False(t, seen[n], "duplicate authority in shuffle")
		seen[n] = true
	}
}

func TestShuffleByStakePrefersGivenSet(t *testing.T) {
	cm, names := fourEqualStake()
	prefer := map[AuthorityName]struct{}{names["d"]: {}}
	order := cm.ShuffleByStakeWithSource(NewSource(1), prefer, nil)
	require.Equal(t, names["d"], order[0])
}

func TestShuffleByStakeRestrictsToSubset(t *testing.T) {
	cm, names := fourEqualStake()
	restrict := map[AuthorityName]struct{}{names["a"]: {}, names["b"]: {}}
	order := cm.ShuffleByStakeWithSource(NewSource(7), nil, restrict)
	require.Len(t, order, 2)
	for _, n := range order {
		require.True(t, n == names["a"] || n == names["b"])
	}
}

func TestSampleIsStakeWeighted(t *testing.T) {
	a := ids.GenerateTestNodeID()
	b := ids.GenerateTestNodeID()
	cm := New(1, map[AuthorityName]Stake{a: 9, b: 1})
	src := NewSource(99)
	counts := map[AuthorityName]int{}
	const trials = 2000
	for i := 0; i < trials; i++ {
		counts[cm.SampleWithSource(src)]++
	}
	// a has 9x the stake of b; allow generous slack for PRNG variance.
	require.Greater(t, counts[a], counts[b]*3)
}

func TestSampleOnEmptyCommitteeIsZeroValue(t *testing.T) {
	cm := New(1, nil)
	var zero AuthorityName
	require.Equal(t, zero, cm.Sample())
}
