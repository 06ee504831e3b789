// Package policy implements neural network policies over discrete
// action spaces
package policy

import (
	"fmt"
	"math"
	"math/rand"

	"cartpole-reinforce/utils/floatutils"
)

// DistributionError indicates that a policy emitted a degenerate
// action distribution: one with non-finite probabilities or a
// non-positive total mass. This usually means the policy weights have
// become unstable.
type DistributionError struct {
	Probs []float64
}

func (e *DistributionError) Error() string {
	return fmt.Sprintf("illegal action distribution %v: probabilities "+
		"must be finite and sum to a positive value", e.Probs)
}

// Softmax returns the softmax of logits, computed with the max-logit
// subtraction trick so that large logits do not overflow.
func Softmax(logits []float64) []float64 {
	maxLogit := floatutils.Max(logits...)

	probs := make([]float64, len(logits))
	var sum float64
	for i, logit := range logits {
		probs[i] = math.Exp(logit - maxLogit)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// ValidateDistribution returns a *DistributionError if probs is not a
// usable discrete probability distribution
func ValidateDistribution(probs []float64) error {
	finite := func(p float64) bool {
		return !math.IsNaN(p) && !math.IsInf(p, 0)
	}
	if !floatutils.All(finite, probs...) {
		return &DistributionError{Probs: probs}
	}

	var sum float64
	for _, p := range probs {
		sum += p
	}
	if sum <= 0 {
		return &DistributionError{Probs: probs}
	}
	return nil
}

// SampleCategorical draws one action index from the categorical
// distribution described by probs using rng. The distribution should
// be validated before sampling.
func SampleCategorical(probs []float64, rng *rand.Rand) int {
	threshold := rng.Float64()
	var cumulative float64
	for i, p := range probs {
		cumulative += p
		if threshold <= cumulative {
			return i
		}
	}
	// Guard against cumulative probabilities summing to slightly
	// less than 1
	return len(probs) - 1
}
