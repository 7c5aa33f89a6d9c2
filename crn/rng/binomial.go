package rng

import (
	"math"
	"math/rand"
)

// binomialSmallNPCutoff bounds n*min(p,1-p) below which Binomial uses an
// exact inverse-CDF and above which it switches to a normal approximation
// with a continuity correction (spec.md §4.1 calls this sampler out
// specifically for the tau-split halving step, where p is almost always
// exactly 0.5).
const binomialSmallNPCutoff = 30.0

// Binomial draws a single sample from Binomial(n, p). n must be >= 0 and p
// in [0,1]; degenerate cases (n==0, p==0, p==1) short-circuit without
// consuming randomness.
func (s *Source) Binomial(subsystem string, n int64, p float64) int64 {
	if n <= 0 || p <= 0 {
		return 0
	}
	if p >= 1 {
		return n
	}
	r := s.For(subsystem)

	// Exploit symmetry: Binomial(n, p) = n - Binomial(n, 1-p), sampling
	// against whichever tail has the smaller mean so small-np stays exact
	// and cheap regardless of which side of 0.5 p falls on.
	flip := p > 0.5
	q := p
	if flip {
		q = 1 - p
	}

	var k int64
	if float64(n)*q < binomialSmallNPCutoff {
		k = binomialTableSample(r.Float64(), n, q)
	} else {
		k = binomialNormalSample(r, n, q)
	}
	if flip {
		return n - k
	}
	return k
}

// Half draws Binomial(n, 0.5) — the exact halving primitive the tau-split
// recursion uses to split a previously-sampled event count across the two
// halves of an interval (spec.md §4.4 step 4, §9).
func (s *Source) Half(subsystem string, n int64) int64 {
	return s.Binomial(subsystem, n, 0.5)
}

// binomialTableSample draws via inverse-CDF over the exact PMF, built on
// the fly via the recurrence p(0) = (1-q)^n, p(k) = p(k-1) * (n-k+1)/k *
// q/(1-q).
func binomialTableSample(u float64, n int64, q float64) int64 {
	if q <= 0 {
		return 0
	}
	oneMinusQ := 1 - q
	p := math.Pow(oneMinusQ, float64(n))
	cdf := p
	k := int64(0)
	for cdf < u && k < n {
		k++
		p *= (float64(n-k+1) / float64(k)) * (q / oneMinusQ)
		cdf += p
	}
	return k
}

// binomialNormalSample draws via a Normal(n*q, n*q*(1-q)) approximation
// with a continuity correction, clamped to [0, n].
func binomialNormalSample(r *rand.Rand, n int64, q float64) int64 {
	mean := float64(n) * q
	variance := mean * (1 - q)
	sigma := math.Sqrt(variance)
	x := r.NormFloat64()*sigma + mean + 0.5
	if x < 0 {
		return 0
	}
	if x > float64(n) {
		return n
	}
	return int64(math.Floor(x))
}
