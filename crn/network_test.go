package crn

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func twoSpeciesDecay() *Network {
	// A -> B, rate 1.0
	species := []Species{{Name: "A", Index: 0}, {Name: "B", Index: 1}}
	rxn := NewReaction(
		[]Term{{Species: 0, Coeff: 1}},
		[]Term{{Species: 1, Coeff: 1}},
		1.0,
	)
	return NewNetwork(species, []*Reaction{rxn})
}

func TestReaction_NetDelta_CancelsSharedSpecies(t *testing.T) {
	// GIVEN a reaction A + B -> B + C (B is a catalyst, appears both sides)
	rxn := NewReaction(
		[]Term{{Species: 0, Coeff: 1}, {Species: 1, Coeff: 1}},
		[]Term{{Species: 1, Coeff: 1}, {Species: 2, Coeff: 1}},
		1.0,
	)

	// WHEN reading net stoichiometry
	// THEN B's delta is 0 and is therefore absent from Net()
	require.Equal(t, int64(-1), rxn.NetDelta(0))
	require.Equal(t, int64(0), rxn.NetDelta(1))
	require.Equal(t, int64(1), rxn.NetDelta(2))
	require.Len(t, rxn.Net(), 2)
}

func TestNetwork_Apply_DecreasesReactantIncreasesProduct(t *testing.T) {
	// GIVEN a decay network A -> B with A=5 B=0
	n := twoSpeciesDecay()
	state := State{5, 0}

	// WHEN the reaction fires once
	err := n.Apply(0, state)

	// THEN A decreases and B increases by 1
	require.NoError(t, err)
	require.Equal(t, State{4, 1}, state)
}

func TestNetwork_ApplyN_RejectsNegativeCount(t *testing.T) {
	// GIVEN a decay network with A=2
	n := twoSpeciesDecay()
	state := State{2, 0}

	// WHEN applying 3 firings (would drive A to -1)
	err := n.ApplyN(0, state, 3)

	// THEN a NegativeCountError is returned and state is untouched
	require.Error(t, err)
	var negErr *NegativeCountError
	require.True(t, errors.As(err, &negErr))
	require.Equal(t, SpeciesIndex(0), negErr.Species)
	require.Equal(t, State{2, 0}, state)
}

func TestNetwork_Propensity_ZeroBelowThreshold(t *testing.T) {
	// GIVEN a bimolecular reaction A + A -> B requiring two A molecules
	rxn := NewReaction(
		[]Term{{Species: 0, Coeff: 2}},
		[]Term{{Species: 1, Coeff: 1}},
		0.5,
	)
	n := NewNetwork([]Species{{Name: "A"}, {Name: "B"}}, []*Reaction{rxn})

	// WHEN there's only one A molecule
	// THEN propensity is 0 (C(1,2) == 0)
	require.Equal(t, 0.0, n.Propensity(0, State{1, 0}))

	// AND with two A molecules, propensity is rate * C(2,2) = 0.5 * 1
	require.Equal(t, 0.5, n.Propensity(0, State{2, 0}))
}

func TestNetwork_Affects_PropagatesThroughSharedSpecies(t *testing.T) {
	// GIVEN A -> B (r0) and B -> C (r1): firing r0 changes B, which r1 reads
	species := []Species{{Name: "A"}, {Name: "B"}, {Name: "C"}}
	r0 := NewReaction([]Term{{Species: 0, Coeff: 1}}, []Term{{Species: 1, Coeff: 1}}, 1.0)
	r1 := NewReaction([]Term{{Species: 1, Coeff: 1}}, []Term{{Species: 2, Coeff: 1}}, 1.0)
	n := NewNetwork(species, []*Reaction{r0, r1})

	// WHEN reading the dependency graph
	// THEN r0 affects itself (via A) and r1 (via B); r1 affects only itself
	// (via B), since C is nobody's reactant
	require.Equal(t, []int{0, 1}, n.Affects(0))
	require.Equal(t, []int{1}, n.Affects(1))
}

func TestFallingFactorial(t *testing.T) {
	cases := []struct {
		n    int64
		c    uint64
		want float64
	}{
		{5, 0, 1},
		{5, 1, 5},
		{0, 1, 0},
		{4, 2, 6},
		{1, 2, 0},
		{5, 3, 60},
		{6, 4, 360},
		{-3, 2, 0},
	}
	for _, tc := range cases {
		got := FallingFactorial(tc.n, tc.c)
		if got != tc.want {
			t.Errorf("FallingFactorial(%d, %d) = %v, want %v", tc.n, tc.c, got, tc.want)
		}
	}
}
