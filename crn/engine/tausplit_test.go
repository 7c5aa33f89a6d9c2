package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tausplit/tausplit/crn"
	"github.com/tausplit/tausplit/crn/rng"
)

func TestTauSplit_Degradation_StaysNonNegative(t *testing.T) {
	// A ->, rate 1.0, A=100 (spec.md §8 scenario 2)
	network := degradationNetwork()
	tol := DefaultTolerances()

	for seed := rng.Seed(0); seed < 100; seed++ {
		e := NewTauSplit(network, crn.State{100}, seed, tol)
		require.NoError(t, e.Advance(5))
		a := e.State()[0]
		require.GreaterOrEqual(t, a, int64(0))
		require.LessOrEqual(t, a, int64(100))
	}
}

func TestTauSplit_ReversiblePair_PreservesTotal(t *testing.T) {
	// A <-> B, both rate 1.0, A=50 B=50 (spec.md §8 scenario 3)
	rAB := crn.NewReaction([]crn.Term{{Species: 0, Coeff: 1}}, []crn.Term{{Species: 1, Coeff: 1}}, 1.0)
	rBA := crn.NewReaction([]crn.Term{{Species: 1, Coeff: 1}}, []crn.Term{{Species: 0, Coeff: 1}}, 1.0)
	network := crn.NewNetwork([]crn.Species{{Name: "A"}, {Name: "B"}}, []*crn.Reaction{rAB, rBA})
	tol := DefaultTolerances()

	e := NewTauSplit(network, crn.State{50, 50}, 11, tol)
	for i := 1; i <= 10; i++ {
		require.NoError(t, e.Advance(float64(i)*10))
		state := e.State()
		require.Equal(t, int64(100), state[0]+state[1])
	}
}

func TestTauSplit_Bimolecular_ProductIsMonotonic(t *testing.T) {
	// A + B -> C, rate 0.01, A=100 B=100 C=0 (spec.md §8 scenario 4)
	rxn := crn.NewReaction(
		[]crn.Term{{Species: 0, Coeff: 1}, {Species: 1, Coeff: 1}},
		[]crn.Term{{Species: 2, Coeff: 1}},
		0.01,
	)
	network := crn.NewNetwork([]crn.Species{{Name: "A"}, {Name: "B"}, {Name: "C"}}, []*crn.Reaction{rxn})
	tol := DefaultTolerances()

	e := NewTauSplit(network, crn.State{100, 100, 0}, 5, tol)
	prevC := int64(0)
	for i := 1; i <= 10; i++ {
		require.NoError(t, e.Advance(float64(i)))
		c := e.State()[2]
		require.GreaterOrEqual(t, c, prevC)
		prevC = c
	}
}

func TestTauSplit_EmptyReactionSet_StateUnchanged(t *testing.T) {
	// Boundary behaviour: empty reaction set with nonzero species (spec.md §8).
	network := crn.NewNetwork([]crn.Species{{Name: "A"}}, nil)
	tol := DefaultTolerances()

	e := NewTauSplit(network, crn.State{42}, 1, tol)
	require.NoError(t, e.Advance(10))
	require.Equal(t, crn.State{42}, e.State())
	require.Equal(t, uint64(0), e.ReactionCount())
}

func TestTauSplit_ZeroHorizon_NoReactionsFire(t *testing.T) {
	// Boundary behaviour: T=0 is initial state only, zero reactions.
	network := synthesisNetwork()
	tol := DefaultTolerances()

	e := NewTauSplit(network, crn.State{0}, 1, tol)
	require.NoError(t, e.Advance(0))
	require.Equal(t, crn.State{0}, e.State())
	require.Equal(t, uint64(0), e.ReactionCount())
}

func TestTauSplit_StiffTwoScale_AgreesWithGillespieOnMeanC(t *testing.T) {
	// A -> B, 100.0; B -> C, 0.01; A=1000 (spec.md §8 scenario 5): tau-split
	// and gillespie should agree on sampled E[C] within a loose tolerance.
	rAB := crn.NewReaction([]crn.Term{{Species: 0, Coeff: 1}}, []crn.Term{{Species: 1, Coeff: 1}}, 100.0)
	rBC := crn.NewReaction([]crn.Term{{Species: 1, Coeff: 1}}, []crn.Term{{Species: 2, Coeff: 1}}, 0.01)
	network := crn.NewNetwork([]crn.Species{{Name: "A"}, {Name: "B"}, {Name: "C"}}, []*crn.Reaction{rAB, rBC})
	tol := DefaultTolerances()

	const trials = 40
	var tauSum, gillSum int64
	for seed := rng.Seed(0); int(seed) < trials; seed++ {
		ts := NewTauSplit(network, crn.State{1000, 0, 0}, seed, tol)
		require.NoError(t, ts.Advance(10))
		tauSum += ts.State()[2]

		g := NewGillespie(network, crn.State{1000, 0, 0}, seed)
		require.NoError(t, g.Advance(10))
		gillSum += g.State()[2]
	}

	tauMean := float64(tauSum) / trials
	gillMean := float64(gillSum) / trials
	// Loose tolerance: both engines target the same process, but tau-split
	// trades exactness for speed within its configured error budget.
	require.InDelta(t, gillMean, tauMean, gillMean*0.5+5)
}

func TestTauSplit_Deterministic_SameSeedSameTrajectory(t *testing.T) {
	network := synthesisNetwork()
	tol := DefaultTolerances()

	e1 := NewTauSplit(network, crn.State{0}, 77, tol)
	e2 := NewTauSplit(network, crn.State{0}, 77, tol)
	require.NoError(t, e1.Advance(5))
	require.NoError(t, e2.Advance(5))

	require.Equal(t, e1.State(), e2.State())
	require.Equal(t, e1.ReactionCount(), e2.ReactionCount())
}

func TestTauSplit6_Degradation_StaysNonNegative(t *testing.T) {
	network := degradationNetwork()
	tol := DefaultTolerances()

	for seed := rng.Seed(0); seed < 100; seed++ {
		e := NewTauSplit6(network, crn.State{100}, seed, tol)
		require.NoError(t, e.Advance(5))
		a := e.State()[0]
		require.GreaterOrEqual(t, a, int64(0))
		require.LessOrEqual(t, a, int64(100))
	}
}

// TestFallbackFire_ExcludesRecursionInactiveReactions directly exercises
// the MaxDepth fallback path's exclusion rule: a reaction parked inactive
// at a shallower, still-open ancestor stage already has an event count
// reserved for that ancestor's eventual commitAll, so fallbackFire must
// never let it fire a second time.
func TestFallbackFire_ExcludesRecursionInactiveReactions(t *testing.T) {
	rxnConsumeA := crn.NewReaction([]crn.Term{{Species: 0, Coeff: 1}}, nil, 1.0)
	rxnProduceD := crn.NewReaction(nil, []crn.Term{{Species: 1, Coeff: 1}}, 5.0)
	network := crn.NewNetwork([]crn.Species{{Name: "A"}, {Name: "D"}}, []*crn.Reaction{rxnConsumeA, rxnProduceD})

	e := &tauSplitEngine{network: network, state: crn.State{1000, 0}, rng: rng.New(1), tol: DefaultTolerances(), variant: variantTauSplit}
	bounds := newStateBounds(e.state)
	recur := newRecursionData(network)

	depthID := recur.addStage()
	parked := sampleReactionNode(1, variantTauSplit, 5.0, 5.0, 1.0, e.rng)
	recur.addInactiveReaction(depthID, parked)
	require.False(t, recur.isActive(1))

	require.NoError(t, e.fallbackFire(1.0, bounds, recur))

	// Reaction 1 (-> D) is parked: despite its large, constant propensity,
	// it must not have fired during the fallback.
	require.Equal(t, int64(0), bounds.comp[1].value)
	// Reaction 0 (A ->) is active and has a real propensity: it must have
	// fired at least once over tau=1 at rate 1.0 against A=1000.
	require.Less(t, bounds.comp[0].value, int64(1000))
}

// TestTauSplit_MaxDepthFallback_NoDoubleCounting drives a genuinely stiff
// network into the MaxDepth branch (spec.md §5): AbsEps=RelEps=0 makes
// A -> B judged unstable for as long as its event count is two or more, and
// a tiny MaxDepth forces fallbackFire before repeated halving brings that
// count down to one. -> D is independent, zero-order, and stable
// immediately, so it gets parked once at the outermost stage for the
// entire run. If fallbackFire ever let a parked reaction fire again,
// D would be committed on top of firings that
// already happened inside nested fallback calls, inflating its count far
// past a single Poisson(5) draw.
func TestTauSplit_MaxDepthFallback_NoDoubleCounting(t *testing.T) {
	rxnAB := crn.NewReaction([]crn.Term{{Species: 0, Coeff: 1}}, []crn.Term{{Species: 1, Coeff: 1}}, 50.0)
	rxnD := crn.NewReaction(nil, []crn.Term{{Species: 2, Coeff: 1}}, 5.0)
	network := crn.NewNetwork([]crn.Species{{Name: "A"}, {Name: "B"}, {Name: "D"}}, []*crn.Reaction{rxnAB, rxnD})
	tol := Tolerances{AbsEps: 0, RelEps: 0, MaxDepth: 2}

	const trials = 200
	for seed := rng.Seed(0); int(seed) < trials; seed++ {
		e := NewTauSplit(network, crn.State{1000, 0, 0}, seed, tol)
		require.NoError(t, e.Advance(1))
		state := e.State()
		require.Equal(t, int64(1000), state[0]+state[1], "seed=%d", seed)
		require.GreaterOrEqual(t, state[2], int64(0), "seed=%d", seed)
		// A single committed draw from Poisson(5) essentially never
		// exceeds 25; repeated double-counting across nested fallback
		// calls would push it well past this over 200 seeds.
		require.LessOrEqual(t, state[2], int64(25), "seed=%d D=%d", seed, state[2])
	}
}

func TestNew_UnknownAlgorithm_ReturnsError(t *testing.T) {
	network := synthesisNetwork()
	_, err := New("not-a-real-algorithm", network, crn.State{0}, 1, DefaultTolerances())
	require.Error(t, err)

	var unknown *UnknownAlgorithmError
	require.ErrorAs(t, err, &unknown)
}

func TestNew_DispatchesToEachEngine(t *testing.T) {
	network := synthesisNetwork()
	for _, alg := range []string{"gillespie", "tau-split", "tau-split6"} {
		e, err := New(alg, network, crn.State{0}, 1, DefaultTolerances())
		require.NoError(t, err, alg)
		require.NoError(t, e.Advance(1), alg)
	}
}
