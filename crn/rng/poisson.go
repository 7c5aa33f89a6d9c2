package rng

import "math"

// poissonSmallLambdaCutoff is the boundary below which the Poisson
// quantile function walks the exact PMF recurrence and above which it
// switches to a continuity-corrected normal approximation (spec.md §4.1:
// "small: tabulated inverse-CDF; large: accept-reject with a normal
// proposal" — implemented here as inverse-CDF throughout, since a single
// monotonic quantile function is what lets the tau-split recursion couple
// the same uniform draw against two different propensity bounds, see
// PoissonQuantile).
const poissonSmallLambdaCutoff = 30.0

// Poisson draws a single sample from Poisson(lambda). lambda must be >= 0;
// lambda == 0 always returns 0 without consuming randomness.
func (s *Source) Poisson(subsystem string, lambda float64) int64 {
	if lambda <= 0 {
		return 0
	}
	return PoissonQuantile(s.For(subsystem).Float64(), lambda)
}

// PoissonQuantile returns the inverse-CDF of Poisson(lambda) at u in
// [0,1) — the smallest k such that P(Poisson(lambda) <= k) >= u. It is
// monotonically non-decreasing in lambda for fixed u, which is exactly
// the property the tau-split recursion depends on: resampling the same
// reaction's event count at a widened propensity bound with the *same* u
// can only move the count up, never down (SPEC_FULL.md §4.4) — the two
// bounds are "coupled" rather than independently resampled.
func PoissonQuantile(u float64, lambda float64) int64 {
	if lambda <= 0 {
		return 0
	}
	if lambda < poissonSmallLambdaCutoff {
		return poissonTableQuantile(u, lambda)
	}
	return poissonNormalQuantile(u, lambda)
}

// poissonTableQuantile walks the exact PMF recurrence p(0) = e^-lambda,
// p(k) = p(k-1) * lambda / k, accumulating CDF mass until it reaches u.
func poissonTableQuantile(u float64, lambda float64) int64 {
	p := math.Exp(-lambda)
	cdf := p
	k := int64(0)
	// 1e6 is a defensive backstop; for lambda < 30 the CDF reaches 1-1e-12
	// well under a few hundred terms.
	for cdf < u && k < 1_000_000 {
		k++
		p *= lambda / float64(k)
		cdf += p
	}
	return k
}

// poissonNormalQuantile approximates the Poisson(lambda) quantile via the
// Normal(lambda, lambda) quantile with a continuity correction, using the
// standard library's erf-based inverse normal CDF.
func poissonNormalQuantile(u float64, lambda float64) int64 {
	z := invNormCDF(u)
	x := lambda + math.Sqrt(lambda)*z + 0.5
	if x < 0 {
		return 0
	}
	return int64(math.Floor(x))
}

// invNormCDF is the standard normal quantile function (probit), computed
// from math.Erfinv per the identity Phi^-1(p) = sqrt(2) * erf^-1(2p - 1).
func invNormCDF(p float64) float64 {
	if p <= 0 {
		p = 1e-15
	}
	if p >= 1 {
		p = 1 - 1e-15
	}
	return math.Sqrt2 * math.Erfinv(2*p-1)
}
