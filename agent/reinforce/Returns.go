package reinforce

import (
	"gonum.org/v1/gonum/stat"
)

// Returns computes the discounted Monte-Carlo return at every timestep
// of an episode. For rewards [r_0, ..., r_(T-1)] and discount gamma,
// the output at index t is the discounted sum of all rewards from t to
// the end of the episode:
//
//	G_t = Σ_{k=t}^{T-1} gamma^(k-t) * r_k
//
// The rewards are processed in reverse time order with a running
// accumulator; the output preserves the original timestep order and
// has the same length as the input.
func Returns(rewards []float64, gamma float64) []float64 {
	returns := make([]float64, len(rewards))

	var r float64
	for i := len(rewards) - 1; i >= 0; i-- {
		r = rewards[i] + gamma*r
		returns[i] = r
	}

	return returns
}

// Normalize rescales returns to zero mean and unit variance:
// (returns - mean) / (std + epsilon). The epsilon floor keeps the
// division finite on degenerate episodes, such as an episode of length
// 1 or one whose returns are all equal; in those cases the normalized
// returns are approximately 0. Centring the returns reduces the
// variance of the gradient estimator and is required for stable
// training.
//
// The input slice is not modified.
func Normalize(returns []float64, epsilon float64) []float64 {
	mean := stat.Mean(returns, nil)

	// The sample standard deviation is undefined for a single return;
	// treat it as 0 so that a length-1 episode normalizes to ~0
	// rather than NaN
	var std float64
	if len(returns) > 1 {
		std = stat.StdDev(returns, nil)
	}

	normalized := make([]float64, len(returns))
	for i, ret := range returns {
		normalized[i] = (ret - mean) / (std + epsilon)
	}

	return normalized
}
