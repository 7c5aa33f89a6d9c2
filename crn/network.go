package crn

// Network is the immutable reaction network: the declared species, the
// reaction list in declaration order, and the precomputed reaction
// dependency graph. Construct once with NewNetwork; Network is safe to
// share by pointer across any number of engines (different seeds,
// different initial states) since nothing ever mutates it after
// construction (spec.md §5).
type Network struct {
	Species   []Species
	Reactions []*Reaction

	// affects[i] lists the indices of reactions whose propensity may
	// change when reaction i fires.
	affects [][]int
}

// NewNetwork builds a Network and precomputes its dependency graph.
func NewNetwork(species []Species, reactions []*Reaction) *Network {
	n := &Network{Species: species, Reactions: reactions}
	n.affects = buildDependencyGraph(reactions)
	return n
}

// buildDependencyGraph computes, for every reaction i, the set of reactions
// j whose reactant set intersects a species with nonzero net change in i.
// Grounded on original_source/src/gillespie.rs's reactant_eqs/
// reaction_updates construction: first invert reactant -> reactions that
// consume it, then for each reaction walk its net stoichiometry and union
// in every reaction consuming any touched species.
func buildDependencyGraph(reactions []*Reaction) [][]int {
	consumers := make(map[SpeciesIndex][]int)
	for j, rxn := range reactions {
		for _, t := range rxn.Reactants {
			consumers[t.Species] = append(consumers[t.Species], j)
		}
	}

	affects := make([][]int, len(reactions))
	for i, rxn := range reactions {
		seen := make(map[int]bool)
		var out []int
		for _, t := range rxn.Net() {
			for _, j := range consumers[t.Species] {
				if !seen[j] {
					seen[j] = true
					out = append(out, j)
				}
			}
		}
		sortInts(out)
		affects[i] = out
	}
	return affects
}

func sortInts(s []int) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// Affects returns the indices of reactions whose propensity may change
// when reaction i fires.
func (n *Network) Affects(i int) []int { return n.affects[i] }

// Propensity computes the mass-action rate of reaction i given state.
func (n *Network) Propensity(i int, state State) float64 {
	return n.Reactions[i].propensity(state)
}

// Apply fires reaction i once against state, in place. Returns a
// *NegativeCountError (without mutating state) if any reactant would be
// driven below zero.
func (n *Network) Apply(i int, state State) error {
	return n.ApplyN(i, state, 1)
}

// ApplyN fires reaction i count times atomically: state update is
// count * net_stoichiometry_i, all-or-nothing. Apply calls it with count 1;
// the tau-split engines commit event counts through their own bound
// tracking in crn/engine rather than through ApplyN.
func (n *Network) ApplyN(i int, state State, count int64) error {
	if count == 0 {
		return nil
	}
	rxn := n.Reactions[i]
	for _, t := range rxn.net {
		if state[t.Species]+t.Delta*count < 0 {
			return &NegativeCountError{ReactionIndex: i, Species: t.Species}
		}
	}
	for _, t := range rxn.net {
		state[t.Species] += t.Delta * count
	}
	return nil
}
