package engine

import "github.com/tausplit/tausplit/crn"

// componentBounds tracks, for one species, the interval [lower, upper] its
// count could fall into given the currently-sampled (but not yet
// committed) event counts of every active reaction touching it, alongside
// the actual committed value. Mirrors
// original_source/src/tau6/state_data.rs's ComponentData.
type componentBounds struct {
	lower, value, upper int64
}

// stateBounds is the per-species bound-tracking structure the tau-split
// recursion widens at each depth (spec.md §4.4 step 2) and commits against
// at each depth's stable reactions (step 3). Grounded on
// original_source/src/tau6/state_data.rs's StateData.
type stateBounds struct {
	comp []componentBounds
}

func newStateBounds(state crn.State) *stateBounds {
	comp := make([]componentBounds, len(state))
	for i, v := range state {
		comp[i] = componentBounds{lower: v, value: v, upper: v}
	}
	return &stateBounds{comp: comp}
}

func (b *stateBounds) snapshot() crn.State {
	out := make(crn.State, len(b.comp))
	for i, c := range b.comp {
		out[i] = c.value
	}
	return out
}

// addBounds widens lower/upper to account for a reaction's currently
// assigned event count n: consuming terms (negative net delta) push the
// lower bound down, producing terms (positive net delta) push the upper
// bound up. The committed value is untouched.
func (b *stateBounds) addBounds(rxn *crn.Reaction, n int64) {
	b.changeBounds(rxn, n)
}

// removeBounds reverses a previous addBounds(rxn, n) call.
func (b *stateBounds) removeBounds(rxn *crn.Reaction, n int64) {
	b.changeBounds(rxn, -n)
}

func (b *stateBounds) changeBounds(rxn *crn.Reaction, n int64) {
	if n == 0 {
		return
	}
	for _, t := range rxn.Net() {
		if t.Delta < 0 {
			b.comp[t.Species].lower += t.Delta * n
		}
	}
	for _, t := range rxn.Net() {
		if t.Delta > 0 {
			b.comp[t.Species].upper += t.Delta * n
		}
	}
}

// commit applies a reaction's final event count n to the committed value
// (all three of lower/value/upper move together, since a committed
// reaction's contribution is no longer uncertain).
func (b *stateBounds) commit(rxn *crn.Reaction, n int64) {
	if n == 0 {
		return
	}
	for _, t := range rxn.Net() {
		d := t.Delta * n
		b.comp[t.Species].lower += d
		b.comp[t.Species].value += d
		b.comp[t.Species].upper += d
	}
}

// upperProduct returns the propensity computed from every reactant's upper
// bound -- the most optimistic rate the reaction could be firing at.
func (b *stateBounds) upperProduct(rxn *crn.Reaction) float64 {
	p := rxn.Rate
	for _, t := range rxn.Reactants {
		p *= crn.FallingFactorial(max64(b.comp[t.Species].upper, 0), t.Coeff)
		if p == 0 {
			return 0
		}
	}
	return p
}

// lowerProduct returns the propensity computed from every reactant's lower
// bound -- the most pessimistic rate. When hasEvents is true (the reaction
// itself has already been assigned a nonzero event count for this
// subinterval) its own self-consumption is excluded from the lower bound,
// matching original_source/src/tau6/state_data.rs:lower_product's
// has_events parameter: a reaction must not have its own pending
// consumption counted twice against its own lower-bound reactant check.
func (b *stateBounds) lowerProduct(rxn *crn.Reaction, selfConsumption []int64, hasEvents bool) float64 {
	p := rxn.Rate
	for i, t := range rxn.Reactants {
		lo := b.comp[t.Species].lower
		if hasEvents {
			lo -= selfConsumption[i]
		}
		p *= crn.FallingFactorial(max64(lo, 0), t.Coeff)
		if p == 0 {
			return 0
		}
	}
	return p
}

// wouldUnderflow reports whether committing n firings of rxn right now
// would drive any reactant's committed value below zero -- the
// leap-over-consumed condition of spec.md §7 that must force an immediate
// split rather than a commit.
func (b *stateBounds) wouldUnderflow(rxn *crn.Reaction, n int64) bool {
	if n == 0 {
		return false
	}
	for _, t := range rxn.Net() {
		if t.Delta < 0 && b.comp[t.Species].value+t.Delta*n < 0 {
			return true
		}
	}
	return false
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
