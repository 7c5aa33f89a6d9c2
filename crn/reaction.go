package crn

// Term is one (species, stoichiometric coefficient) pair appearing on
// either side of a reaction. Coeff is always positive; sign is implied by
// which side (Reactants vs Products) the term appears on.
type Term struct {
	Species SpeciesIndex
	Coeff   uint64
}

// NetTerm is the signed per-firing change to one species: Delta is
// positive if the reaction is a net producer of Species, negative if a net
// consumer. Reactants appearing on both sides cancel out before NetTerms
// are built, per spec.md §3.
type NetTerm struct {
	Species SpeciesIndex
	Delta   int64
}

// Reaction is a single chemical reaction: reactants, products, and a rate
// constant. Net stoichiometry (the signed per-species change on a single
// firing) is precomputed at construction time, mirroring the
// positive/negative stoichiometry split of the reference implementation
// (original_source/src/reaction.rs).
type Reaction struct {
	Reactants []Term
	Products  []Term
	Rate      float64

	// net is the per-species signed change on one firing, species appearing
	// in both Reactants and Products but cancelling out are omitted.
	net []NetTerm
	// positive and negative split net by sign. The bound tracking in
	// crn/engine filters Net() by sign itself and does not read them.
	positive []NetTerm
	negative []NetTerm
}

// NewReaction builds a Reaction from reactant/product term lists and a rate
// constant, computing net stoichiometry once. Species indices within
// Reactants/Products need not be sorted; net stoichiometry is always
// returned sorted by species index for deterministic iteration.
func NewReaction(reactants, products []Term, rate float64) *Reaction {
	r := &Reaction{Reactants: reactants, Products: products, Rate: rate}
	r.net = netStoichiometry(reactants, products)
	for _, t := range r.net {
		switch {
		case t.Delta > 0:
			r.positive = append(r.positive, t)
		case t.Delta < 0:
			r.negative = append(r.negative, t)
		}
	}
	return r
}

// netStoichiometry computes, for each species touched by the reaction, the
// signed per-firing difference (products produced minus reactants
// consumed).
func netStoichiometry(reactants, products []Term) []NetTerm {
	delta := make(map[SpeciesIndex]int64)
	order := make([]SpeciesIndex, 0, len(reactants)+len(products))
	seen := make(map[SpeciesIndex]bool)
	note := func(s SpeciesIndex) {
		if !seen[s] {
			seen[s] = true
			order = append(order, s)
		}
	}
	for _, t := range reactants {
		delta[t.Species] -= int64(t.Coeff)
		note(t.Species)
	}
	for _, t := range products {
		delta[t.Species] += int64(t.Coeff)
		note(t.Species)
	}
	sortSpeciesIndices(order)
	out := make([]NetTerm, 0, len(order))
	for _, s := range order {
		if d := delta[s]; d != 0 {
			out = append(out, NetTerm{Species: s, Delta: d})
		}
	}
	return out
}

func sortSpeciesIndices(s []SpeciesIndex) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// NetDelta returns the signed per-firing change for species s, 0 if the
// reaction doesn't touch it.
func (r *Reaction) NetDelta(s SpeciesIndex) int64 {
	for _, t := range r.net {
		if t.Species == s {
			return t.Delta
		}
	}
	return 0
}

// Net returns the full net-stoichiometry list, species-index ascending.
func (r *Reaction) Net() []NetTerm { return r.net }

// FallingFactorial computes C(n, c) = n*(n-1)*...*(n-c+1)/c!, the number of
// distinct c-molecule reactant combinations available out of n molecules —
// 1 for c==0, 0 if n < c. Small c is unrolled, matching
// original_source/src/reaction.rs's binomial().
func FallingFactorial(n int64, c uint64) float64 {
	if n < 0 {
		n = 0
	}
	switch c {
	case 0:
		return 1
	case 1:
		return float64(n)
	case 2:
		if n < 2 {
			return 0
		}
		return float64(n*n-n) / 2
	case 3:
		if n < 3 {
			return 0
		}
		return float64(n*(n-1)*(n-2)) / 6
	default:
		if uint64(n) < c {
			return 0
		}
		res := 1.0
		for i := uint64(0); i < c; i++ {
			res = res * float64(n-int64(i)) / float64(i+1)
		}
		return res
	}
}

// propensity computes the mass-action propensity of the reaction given a
// plain state vector. Used by the Gillespie engine; the tau-split
// bound-tracking code in crn/engine calls FallingFactorial directly against
// lower/upper component bounds instead of through a single State.
func (r *Reaction) propensity(state State) float64 {
	p := r.Rate
	for _, t := range r.Reactants {
		p *= FallingFactorial(state[t.Species], t.Coeff)
		if p == 0 {
			return 0
		}
	}
	return p
}
