package engine

import "github.com/tausplit/tausplit/crn"

// recursionData is the active/inactive bookkeeping structure of spec.md
// §4.5: for every reaction, either it is active (being refined at the
// current recursion depth) or inactive (parked, stable, at some shallower
// depth, until reactivated). Grounded on
// original_source/src/tau6/recursion.rs's RecursionTree index-based
// back-pointer design (§9's design note): the arena is inactiveByStage,
// positions are indices, and reactivation is a swap-remove that patches
// the displaced entry's index in O(1).
type recursionData struct {
	network *crn.Network

	// inactiveByStage[d] holds the reactionNodes deactivated at depth d,
	// in deactivation order. Append-only within a stage; drained on pop.
	inactiveByStage [][]*reactionNode

	// inactiveIndices[r] is (depth, pos) if reaction r is inactive at
	// inactiveByStage[depth][pos]; (-1,-1) if r is active.
	inactiveIndices [][2]int

	// inactiveByComponent[s] lists reactions (by index) known to consume
	// species s that were inactive at some point. Append-only; entries may
	// be stale (the reaction has since been reactivated elsewhere) --
	// split_component skips stale entries rather than removing them, per
	// spec.md §4.5's explicit note.
	inactiveByComponent [][]int
}

func newRecursionData(network *crn.Network) *recursionData {
	r := &recursionData{
		network:             network,
		inactiveIndices:     make([][2]int, len(network.Reactions)),
		inactiveByComponent: make([][]int, len(network.Species)),
	}
	for i := range r.inactiveIndices {
		r.inactiveIndices[i] = [2]int{-1, -1}
	}
	return r
}

// addStage pushes a new, empty recursion depth and returns its index.
func (r *recursionData) addStage() int {
	r.inactiveByStage = append(r.inactiveByStage, nil)
	return len(r.inactiveByStage) - 1
}

// popStage removes the deepest stage and returns the reactionNodes that
// were still inactive there -- the caller promotes them to active at the
// parent depth, keeping their already-sampled event count valid (spec.md
// §4.5 "their N_i remains valid because their bounds held throughout").
func (r *recursionData) popStage() []*reactionNode {
	depth := len(r.inactiveByStage) - 1
	nodes := r.inactiveByStage[depth]
	for _, n := range nodes {
		r.inactiveIndices[n.index] = [2]int{-1, -1}
	}
	r.inactiveByStage = r.inactiveByStage[:depth]
	return nodes
}

// isActive reports whether reaction r is currently active (not parked
// inactive at some depth).
func (r *recursionData) isActive(reactionIdx int) bool {
	return r.inactiveIndices[reactionIdx][0] == -1
}

// addInactiveReaction parks node as inactive at depth, recording it in
// both the per-stage and per-component indices.
func (r *recursionData) addInactiveReaction(depth int, node *reactionNode) {
	stage := r.inactiveByStage[depth]
	pos := len(stage)
	r.inactiveByStage[depth] = append(stage, node)
	r.inactiveIndices[node.index] = [2]int{depth, pos}

	rxn := r.network.Reactions[node.index]
	for _, t := range rxn.Reactants {
		r.inactiveByComponent[t.Species] = append(r.inactiveByComponent[t.Species], node.index)
	}
}

// reactivateReaction removes reaction r from its current inactive slot via
// swap-remove, patching the displaced entry's index, and marks r active.
// Returns the node and the depth it was removed from; ok is false if r was
// already active.
func (r *recursionData) reactivateReaction(reactionIdx int) (node *reactionNode, depth int, ok bool) {
	idx := r.inactiveIndices[reactionIdx]
	if idx[0] == -1 {
		return nil, 0, false
	}
	depth, pos := idx[0], idx[1]
	stage := r.inactiveByStage[depth]
	node = stage[pos]

	last := len(stage) - 1
	if pos != last {
		stage[pos] = stage[last]
		r.inactiveIndices[stage[pos].index] = [2]int{depth, pos}
	}
	r.inactiveByStage[depth] = stage[:last]
	r.inactiveIndices[reactionIdx] = [2]int{-1, -1}
	return node, depth, true
}

// splitComponent reactivates every still-inactive reaction known to
// consume species s, tolerant of stale (already-reactivated) entries in
// inactiveByComponent[s] (spec.md §4.5). Returns the reactivated nodes and
// the depth each was removed from, so the caller can re-add them as
// active and re-sample against the refined bounds.
func (r *recursionData) splitComponent(s crn.SpeciesIndex) []reactivated {
	var out []reactivated
	for _, reactionIdx := range r.inactiveByComponent[s] {
		node, depth, ok := r.reactivateReaction(reactionIdx)
		if !ok {
			continue // stale entry, already active
		}
		out = append(out, reactivated{node: node, fromDepth: depth})
	}
	return out
}

type reactivated struct {
	node      *reactionNode
	fromDepth int
}
