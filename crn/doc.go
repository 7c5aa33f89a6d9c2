// Package crn provides the reaction-network data model shared by every
// simulation engine in this repository.
//
// # Reading Guide
//
// Start with these files to understand the model:
//   - species.go: species identifiers and the state vector
//   - reaction.go: reactants, products, net stoichiometry, propensity
//   - network.go: the immutable Network, dependency graph, Apply
//   - errors.go: the error kinds surfaced to callers (§7 of the spec)
//
// # Architecture
//
// crn defines the model; engines live in sub-packages:
//   - crn/rng: the seedable, splittable PRNG and its Poisson/Binomial samplers
//   - crn/engine: Gillespie, tau-split, and tau-split6 engines
//   - crn/sampler: the time-point sampling harness
//
// A Network is constructed once (by parse.Parse or directly) and shared by
// pointer across any number of engines; engines never mutate it.
package crn
