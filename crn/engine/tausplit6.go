package engine

import (
	"github.com/tausplit/tausplit/crn"
	"github.com/tausplit/tausplit/crn/rng"
)

// NewTauSplit6 constructs the derivative-refined tau-split6 engine over
// network starting from initial (copied), seeded from seed. It shares
// tausplit.go's driver entirely; what variantTauSplit6 changes is (a) the
// initial event-count draw and every later resample, which reactionNode.lambda
// averages against a(X_hi) via forecastPropensity below instead of holding
// propensity constant over tau, and (b) the tighter, exact-bracket stability
// test isStable applies (spec.md §4.4's "tau-split6 variant" paragraph,
// SPEC_FULL.md §4.4.1).
func NewTauSplit6(network *crn.Network, initial crn.State, seed rng.Seed, tol Tolerances) *tauSplitEngine {
	return &tauSplitEngine{
		network: network,
		state:   initial.Clone(),
		rng:     rng.New(seed),
		tol:     tol,
		variant: variantTauSplit6,
	}
}

// forecastPropensity estimates a(X_hi), the reaction's propensity at the
// end of a subinterval of length tau, by linearly extrapolating every
// reactant species forward using dXdt -- the net rate of change
// contributed by every other currently-firing reaction at state (spec.md
// §4.4.1, SPEC_FULL.md §4.4.1); dXdt is recomputed on every call, not
// stored on the node. Combined with the actual propensity at state (the caller's
// anchor), this is the (a(X_lo)+a(X_hi))/2*tau trapezoidal-rule mean
// reactionNode.lambda computes for variantTauSplit6, replacing plain
// tau-split's constant-propensity a(X)*tau. For variantTauSplit, this is
// the identity: it just returns the unrefined current propensity, so
// lambda's trapezoid branch never fires.
func (e *tauSplitEngine) forecastPropensity(idx int, rxn *crn.Reaction, state crn.State, tau float64) float64 {
	if e.variant != variantTauSplit6 {
		return e.network.Propensity(idx, state)
	}

	rate := rxn.Rate
	for _, t := range rxn.Reactants {
		dXdt := e.speciesDerivative(idx, t.Species, state)
		forecast := state[t.Species] + int64(dXdt*tau)
		if forecast < 0 {
			forecast = 0
		}
		rate *= crn.FallingFactorial(forecast, t.Coeff)
		if rate == 0 {
			return 0
		}
	}
	return rate
}

// speciesDerivative sums the net per-time rate of change species receives
// from every reaction other than exclude, each weighted by its own current
// propensity -- the dXdt estimate spec.md §4.4.1 names.
func (e *tauSplitEngine) speciesDerivative(exclude int, species crn.SpeciesIndex, state crn.State) float64 {
	dXdt := 0.0
	for j, other := range e.network.Reactions {
		if j == exclude {
			continue
		}
		d := other.NetDelta(species)
		if d == 0 {
			continue
		}
		a := e.network.Propensity(j, state)
		if a <= 0 {
			continue
		}
		dXdt += float64(d) * a
	}
	return dXdt
}
