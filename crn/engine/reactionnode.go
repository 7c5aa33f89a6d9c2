package engine

import (
	"github.com/tausplit/tausplit/crn"
	"github.com/tausplit/tausplit/crn/rng"
)

// reactionNode is the ReactionData of spec.md §3/§4.4: one reaction's
// sampled event count for the subinterval currently under consideration,
// plus the quantile draw that couples resampling against widened
// propensity bounds so the same draw can only ever move the count up
// (never down) as the bound widens -- this is what makes the bound
// widening in tausplit.go exact rather than approximate for tau-split6,
// and is the "tabulated inverse-CDF" sampler of spec.md §4.1 applied
// against a moving lambda instead of a single one.
//
// variant and anchor together implement spec.md §4.4.1's tau-split6
// refinement: for variantTauSplit, lambda(propensity) is the plain
// constant-propensity mean propensity*tau. For variantTauSplit6, anchor is
// a(X_lo) fixed at node creation (tausplit6.go's forecastPropensity call),
// and lambda(propensity) averages it with whatever propensity is passed in
// -- the trapezoidal rule (a(X_lo)+a(X_hi))/2*tau -- so both the initial
// derivative-extrapolated sample and every later bound-bracket check
// (isStable's quantileAt(aHi)/quantileAt(aLo)) integrate against the same
// fixed starting propensity instead of re-deriving it.
type reactionNode struct {
	index   int
	tau     float64
	u       float64    // quantile draw, fixed for the node's lifetime
	n       int64      // currently assigned event count
	variant tauVariant
	anchor  float64 // a(X_lo) at node creation; tau-split6 only
}

// sampleReactionNode draws the initial event count for reaction idx over
// subinterval tau (spec.md §4.4 step 1). anchor is the reaction's
// propensity at the current exact state; forecast is the propensity to
// sample against -- for plain tau-split this is the same value as anchor
// (constant-propensity Poisson(a*tau)); for tau-split6 it is the
// derivative-extrapolated a(X_hi) tausplit6.go's forecastPropensity
// computes, making the initial draw itself trapezoidal.
func sampleReactionNode(idx int, variant tauVariant, anchor, forecast, tau float64, r *rng.Source) *reactionNode {
	u := r.Uniform(rng.SubsystemMain)
	rd := &reactionNode{index: idx, tau: tau, u: u, variant: variant, anchor: anchor}
	rd.n = rng.PoissonQuantile(u, rd.lambda(forecast))
	return rd
}

// lambda maps a propensity value into the Poisson mean this node samples
// against, applying the trapezoidal averaging of spec.md §4.4.1 when the
// node belongs to tau-split6.
func (rd *reactionNode) lambda(propensity float64) float64 {
	if rd.variant == variantTauSplit6 {
		return (rd.anchor + propensity) / 2 * rd.tau
	}
	return propensity * rd.tau
}

// resample recomputes n against a new propensity (e.g. the upper or lower
// bound propensity), reusing the stored quantile draw u. Returns the new
// count; the node's n is updated in place.
func (rd *reactionNode) resample(propensity float64) int64 {
	rd.n = rng.PoissonQuantile(rd.u, rd.lambda(propensity))
	return rd.n
}

// quantileAt returns what n would be at propensity, WITHOUT mutating the
// node -- used by the stability test to check both bounds before
// committing to a resample.
func (rd *reactionNode) quantileAt(propensity float64) int64 {
	return rng.PoissonQuantile(rd.u, rd.lambda(propensity))
}

// split divides the node's currently assigned event count across the two
// halves of its subinterval via Binomial(n, 0.5) applied to the portion
// not yet assigned to either half (spec.md §4.4 step 4, §9's "implied but
// never spelled out" binomial-splitting rule). Returns the right-half
// node; the receiver becomes the left half, with a fresh quantile draw
// for its own (now half-length) subinterval so it keeps behaving like an
// independently-initialized node from here on.
func (rd *reactionNode) split(rxn *crn.Reaction, r *rng.Source) *reactionNode {
	half := rd.tau / 2
	left := r.Half(rng.SubsystemSplit, rd.n)
	right := rd.n - left

	rightNode := &reactionNode{
		index:   rd.index,
		tau:     half,
		u:       r.Uniform(rng.SubsystemMain),
		n:       right,
		variant: rd.variant,
		anchor:  rd.anchor,
	}
	rd.tau = half
	rd.n = left
	rd.u = r.Uniform(rng.SubsystemMain)
	return rightNode
}

// selfConsumption returns, for each reactant term of rxn in order, the net
// per-firing delta if rxn is itself a net consumer of that species
// (negative), or 0 if rxn produces it (a catalyst or net producer can't
// self-deplete). Grounded on
// original_source/src/fastspie6/f_reaction.rs's Input.self_consumption:
// used by stateBounds.lowerProduct's has_events exclusion to avoid a
// reaction double-counting its own depletion when checking its own
// stability.
func selfConsumption(rxn *crn.Reaction) []int64 {
	out := make([]int64, len(rxn.Reactants))
	for i, t := range rxn.Reactants {
		if d := rxn.NetDelta(t.Species); d < 0 {
			out[i] = d
		}
	}
	return out
}
