package crn

// SpeciesIndex identifies a species by its position in the state vector.
type SpeciesIndex int

// Species is a declared chemical species: a name and its index in the
// state vector. Networks carry species in declaration order so output
// columns (§6.3) are reproducible.
type Species struct {
	Name  string
	Index SpeciesIndex
}

// State is a vector of non-negative molecule counts, one per species,
// indexed by SpeciesIndex.
type State []int64

// Clone returns an independent copy of the state vector.
func (s State) Clone() State {
	out := make(State, len(s))
	copy(out, s)
	return out
}
