package engine

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/tausplit/tausplit/crn"
	"github.com/tausplit/tausplit/crn/rng"
)

// tauVariant distinguishes the two members of the tau-split family that
// share this driver: tau-split's epsilon-banded stability test, and
// tau-split6's exact quantile-bracket test (spec.md §4.4, SPEC_FULL.md
// §4.4.1). Exactly one engine runs per process, so a field switch costs
// nothing (spec.md §9 "Polymorphism over engines").
type tauVariant int

const (
	variantTauSplit tauVariant = iota
	variantTauSplit6
)

// tauSplitEngine is the recursive tau-leaping driver of spec.md §4.4. Both
// NewTauSplit and NewTauSplit6 return one of these, differing only in
// variant; tausplit6.go holds the second constructor.
type tauSplitEngine struct {
	network *crn.Network
	state   crn.State
	rng     *rng.Source
	tol     Tolerances
	variant tauVariant

	total   uint64
	simTime float64
}

// NewTauSplit constructs the epsilon-banded tau-split engine over network
// starting from initial (copied), seeded from seed.
func NewTauSplit(network *crn.Network, initial crn.State, seed rng.Seed, tol Tolerances) *tauSplitEngine {
	return &tauSplitEngine{
		network: network,
		state:   initial.Clone(),
		rng:     rng.New(seed),
		tol:     tol,
		variant: variantTauSplit,
	}
}

func (e *tauSplitEngine) State() crn.State      { return e.state }
func (e *tauSplitEngine) ReactionCount() uint64 { return e.total }
func (e *tauSplitEngine) Time() float64         { return e.simTime }

// Advance simulates the whole interval [Time(), untilTime] as a single
// tau-split step (spec.md §4.4 steps 1-6), recursively subdividing only
// where the stability test fails. The sampling harness is what keeps these
// intervals short, by clamping untilTime to the next sample time (spec.md
// §4.6).
func (e *tauSplitEngine) Advance(untilTime float64) error {
	tau := untilTime - e.simTime
	if tau <= 0 {
		e.simTime = untilTime
		return nil
	}

	bounds := newStateBounds(e.state)
	recur := newRecursionData(e.network)
	active := e.sampleRootNodes(tau)

	if err := e.processInterval(tau, active, bounds, recur, 0); err != nil {
		return err
	}

	e.state = bounds.snapshot()
	e.simTime = untilTime
	return nil
}

// sampleRootNodes draws the initial event count for every reaction with
// nonzero current propensity, over the full interval tau (spec.md §4.4
// step 1). Reactions with zero propensity are omitted entirely: they never
// fire, and adding them would only cost bookkeeping (spec.md §9's deferred
// "don't reactivate zero-propensity reactions" optimisation, applied here
// at the root).
func (e *tauSplitEngine) sampleRootNodes(tau float64) map[int]*reactionNode {
	nodes := make(map[int]*reactionNode)
	for i, rxn := range e.network.Reactions {
		a := e.network.Propensity(i, e.state)
		if a <= 0 {
			continue
		}
		forecast := e.forecastPropensity(i, rxn, e.state, tau)
		nodes[i] = sampleReactionNode(i, e.variant, a, forecast, tau, e.rng)
	}
	return nodes
}

// processInterval simulates the subinterval of length tau covered by
// active, recursively splitting until every reaction is stable or the
// recursion depth bound is hit (spec.md §4.4, §5).
func (e *tauSplitEngine) processInterval(tau float64, active map[int]*reactionNode, bounds *stateBounds, recur *recursionData, depth int) error {
	if len(active) == 0 {
		return nil
	}
	if depth >= e.tol.MaxDepth {
		logrus.Debugf("tausplit: depth %d reached MaxDepth, falling back to single-reaction firing over tau=%.6g", depth, tau)
		return e.fallbackFire(tau, bounds, recur)
	}

	for _, node := range active {
		bounds.addBounds(e.network.Reactions[node.index], node.n)
	}

	forceSplit := false
	for idx, node := range active {
		if bounds.wouldUnderflow(e.network.Reactions[idx], node.n) {
			forceSplit = true
			break
		}
	}

	stable := make(map[int]*reactionNode)
	unstable := make(map[int]*reactionNode)
	if forceSplit {
		unstable = active
	} else {
		for idx, node := range active {
			rxn := e.network.Reactions[idx]
			if e.isStable(node, rxn, bounds, tau) {
				stable[idx] = node
			} else {
				unstable[idx] = node
			}
		}
	}

	if len(unstable) == 0 {
		e.commitAll(active, bounds)
		return nil
	}

	depthID := recur.addStage()
	for _, node := range stable {
		recur.addInactiveReaction(depthID, node)
	}
	for idx, node := range unstable {
		bounds.removeBounds(e.network.Reactions[idx], node.n)
	}

	half := tau / 2
	left := make(map[int]*reactionNode, len(unstable))
	right := make(map[int]*reactionNode, len(unstable))
	for idx, node := range unstable {
		rightNode := node.split(e.network.Reactions[idx], e.rng)
		left[idx] = node
		right[idx] = rightNode
	}

	if err := e.processInterval(half, left, bounds, recur, depth+1); err != nil {
		return err
	}

	// Backward reactivation (spec.md §4.4 step 5): the left half may have
	// moved species whose bounds a parked reaction was declared stable
	// against; pull any such reaction back into the right half.
	e.reactivateInto(e.touchedSpecies(left), recur, bounds, half, right)

	if err := e.processInterval(half, right, bounds, recur, depth+1); err != nil {
		return err
	}

	remaining := recur.popStage()
	if len(remaining) == 0 {
		return nil
	}
	remainingByIdx := make(map[int]*reactionNode, len(remaining))
	for _, node := range remaining {
		remainingByIdx[node.index] = node
	}
	e.commitAll(remainingByIdx, bounds)

	// Forward reactivation (spec.md §4.4 step 5): committing these may have
	// moved species that invalidate other still-parked reactions further up
	// the stack; pull them in and settle them against the current state
	// immediately rather than threading another recursive level.
	spillover := make(map[int]*reactionNode)
	e.reactivateInto(e.touchedSpecies(remainingByIdx), recur, bounds, tau, spillover)
	if len(spillover) > 0 {
		e.commitAll(spillover, bounds)
	}
	return nil
}

// isStable applies the stability test of spec.md §4.4 step 2, per variant:
// tau-split uses the epsilon-banded test suggested by spec.md §9's Open
// Question; tau-split6 (tausplit6.go) tightens it to an exact
// quantile-bracket check.
func (e *tauSplitEngine) isStable(node *reactionNode, rxn *crn.Reaction, bounds *stateBounds, tau float64) bool {
	sc := selfConsumption(rxn)
	aHi := bounds.upperProduct(rxn)
	aLo := bounds.lowerProduct(rxn, sc, node.n > 0)

	if e.variant == variantTauSplit6 {
		return node.quantileAt(aHi) == node.quantileAt(aLo)
	}

	diff := (aHi - aLo) * tau
	budget := e.tol.AbsEps + e.tol.RelEps*math.Sqrt(math.Max(aLo, 0)*tau)
	return diff <= budget
}

// touchedSpecies returns the set of species with nonzero net stoichiometry
// across nodes, used to drive both forward and backward reactivation via
// RecursionData.splitComponent.
func (e *tauSplitEngine) touchedSpecies(nodes map[int]*reactionNode) []crn.SpeciesIndex {
	seen := make(map[crn.SpeciesIndex]bool)
	var out []crn.SpeciesIndex
	for idx := range nodes {
		for _, t := range e.network.Reactions[idx].Net() {
			if !seen[t.Species] {
				seen[t.Species] = true
				out = append(out, t.Species)
			}
		}
	}
	return out
}

// reactivateInto pulls every reaction parked inactive anywhere that
// consumes one of species back out via RecursionData.splitComponent,
// resamples it fresh against the current committed state over tau, and
// adds it to target.
func (e *tauSplitEngine) reactivateInto(species []crn.SpeciesIndex, recur *recursionData, bounds *stateBounds, tau float64, target map[int]*reactionNode) {
	snapshot := bounds.snapshot()
	for _, s := range species {
		for _, rc := range recur.splitComponent(s) {
			idx := rc.node.index
			a := e.network.Propensity(idx, snapshot)
			if a <= 0 {
				continue
			}
			rxn := e.network.Reactions[idx]
			forecast := e.forecastPropensity(idx, rxn, snapshot, tau)
			target[idx] = sampleReactionNode(idx, e.variant, a, forecast, tau, e.rng)
		}
	}
}

// commitAll applies every node's sampled event count to bounds, in bulk,
// and accounts the firings (spec.md §4.4 step 3).
func (e *tauSplitEngine) commitAll(nodes map[int]*reactionNode, bounds *stateBounds) {
	for idx, node := range nodes {
		if node.n == 0 {
			continue
		}
		bounds.commit(e.network.Reactions[idx], node.n)
		e.total += uint64(node.n)
	}
}

// fallbackFire runs exact single-reaction Gillespie firing for the entire
// remaining tau, used once recursion depth exceeds MaxDepth (spec.md §5).
// It operates on the exact state, but only over reactions recur still
// considers active: any reaction parked inactive at a shallower, still-open
// ancestor stage (recur.isActive == false) already has an event count
// reserved for that ancestor's eventual commitAll once its popStage
// unwinds, so letting it fire again here would double-count it. Excluding
// those reactions from the propensity tree entirely -- rather than trying
// to drain or merge their reserved counts -- keeps the ancestor's commit
// the sole authority over them.
func (e *tauSplitEngine) fallbackFire(tau float64, bounds *stateBounds, recur *recursionData) error {
	state := bounds.snapshot()
	tree := newChoiceTree(len(e.network.Reactions))
	weight := func(i int) float64 {
		if !recur.isActive(i) {
			return 0
		}
		return e.network.Propensity(i, state)
	}
	for i := range e.network.Reactions {
		tree.update(i, weight(i))
	}

	t := 0.0
	for t < tau {
		a0 := tree.total()
		if a0 <= 1e-12 {
			break
		}
		u := e.rng.Uniform(rng.SubsystemMain)
		dt := -math.Log(u) / a0
		if t+dt > tau {
			break
		}
		t += dt

		i := tree.sample(e.rng.For(rng.SubsystemMain))
		if err := e.network.Apply(i, state); err != nil {
			return err
		}
		e.total++

		tree.update(i, weight(i))
		for _, j := range e.network.Affects(i) {
			tree.update(j, weight(j))
		}
	}

	for s, v := range state {
		bounds.comp[s] = componentBounds{lower: v, value: v, upper: v}
	}
	return nil
}
