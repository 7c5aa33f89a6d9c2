package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tausplit/tausplit/crn"
	"github.com/tausplit/tausplit/crn/rng"
)

func synthesisNetwork() *crn.Network {
	// -> A, rate 2.0
	rxn := crn.NewReaction(nil, []crn.Term{{Species: 0, Coeff: 1}}, 2.0)
	return crn.NewNetwork([]crn.Species{{Name: "A"}}, []*crn.Reaction{rxn})
}

func degradationNetwork() *crn.Network {
	// A ->, rate 1.0
	rxn := crn.NewReaction([]crn.Term{{Species: 0, Coeff: 1}}, nil, 1.0)
	return crn.NewNetwork([]crn.Species{{Name: "A"}}, []*crn.Reaction{rxn})
}

func TestGillespie_Synthesis_MeanApproximatesPoisson(t *testing.T) {
	// GIVEN pure synthesis -> A, rate 2.0, starting from A=0 (spec.md §8 scenario 1)
	network := synthesisNetwork()

	// WHEN run to T=5 across many seeds
	var sum int64
	const trials = 2000
	for seed := rng.Seed(0); int(seed) < trials; seed++ {
		g := NewGillespie(network, crn.State{0}, seed)
		require.NoError(t, g.Advance(5))
		a := g.State()[0]
		require.GreaterOrEqual(t, a, int64(0))
		sum += a
	}

	// THEN the sample mean is close to the Poisson(10) mean
	mean := float64(sum) / float64(trials)
	require.InDelta(t, 10.0, mean, 1.0)
}

func TestGillespie_Degradation_NeverUnderflows(t *testing.T) {
	// GIVEN degradation A ->, rate 1.0, A=100 (spec.md §8 scenario 2)
	network := degradationNetwork()

	for seed := rng.Seed(0); seed < 200; seed++ {
		g := NewGillespie(network, crn.State{100}, seed)
		require.NoError(t, g.Advance(5))
		require.GreaterOrEqual(t, g.State()[0], int64(0))
		require.LessOrEqual(t, g.State()[0], int64(100))
	}
}

func TestGillespie_ReversiblePair_PreservesTotal(t *testing.T) {
	// GIVEN A <-> B, both rate 1.0, A=50 B=50 (spec.md §8 scenario 3)
	rAB := crn.NewReaction([]crn.Term{{Species: 0, Coeff: 1}}, []crn.Term{{Species: 1, Coeff: 1}}, 1.0)
	rBA := crn.NewReaction([]crn.Term{{Species: 1, Coeff: 1}}, []crn.Term{{Species: 0, Coeff: 1}}, 1.0)
	network := crn.NewNetwork([]crn.Species{{Name: "A"}, {Name: "B"}}, []*crn.Reaction{rAB, rBA})

	g := NewGillespie(network, crn.State{50, 50}, 7)
	for i := 1; i <= 10; i++ {
		require.NoError(t, g.Advance(float64(i)*10))
		state := g.State()
		require.Equal(t, int64(100), state[0]+state[1])
	}
}

func TestGillespie_QuiescentNetwork_JumpsToHorizon(t *testing.T) {
	// GIVEN degradation with A=0: propensity is 0 from the start
	network := degradationNetwork()
	g := NewGillespie(network, crn.State{0}, 1)

	require.NoError(t, g.Advance(100))
	require.Equal(t, 100.0, g.Time())
	require.Equal(t, uint64(0), g.ReactionCount())
}

func TestGillespie_Deterministic_SameSeedSameTrajectory(t *testing.T) {
	network := synthesisNetwork()

	g1 := NewGillespie(network, crn.State{0}, 99)
	g2 := NewGillespie(network, crn.State{0}, 99)
	require.NoError(t, g1.Advance(5))
	require.NoError(t, g2.Advance(5))

	require.Equal(t, g1.State(), g2.State())
	require.Equal(t, g1.ReactionCount(), g2.ReactionCount())
}
