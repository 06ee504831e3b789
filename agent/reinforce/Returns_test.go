package reinforce

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/stat"
)

const tolerance float64 = 1e-10

func TestReturns(t *testing.T) {
	rewards := []float64{1, 1, 1}
	gamma := 0.5

	returns := Returns(rewards, gamma)

	expected := []float64{1.75, 1.5, 1.0}
	if len(returns) != len(expected) {
		t.Fatalf("expected %v returns, got %v", len(expected), len(returns))
	}
	for i := range expected {
		if math.Abs(returns[i]-expected[i]) > tolerance {
			t.Errorf("return at timestep %v: expected %v, got %v", i,
				expected[i], returns[i])
		}
	}
}

// TestReturnsDiscountedSum checks that the return at each timestep
// equals the explicitly computed discounted sum of future rewards
func TestReturnsDiscountedSum(t *testing.T) {
	rewards := []float64{0.5, -1, 2, 3, 0, 1.5}
	gamma := 0.9

	returns := Returns(rewards, gamma)

	for i := range rewards {
		var expected float64
		for k := i; k < len(rewards); k++ {
			expected += rewards[k] * math.Pow(gamma, float64(k-i))
		}
		if math.Abs(returns[i]-expected) > tolerance {
			t.Errorf("return at timestep %v: expected %v, got %v", i,
				expected, returns[i])
		}
	}
}

func TestReturnsNoDiscount(t *testing.T) {
	rewards := []float64{1, 1, 1, 1}

	returns := Returns(rewards, 1.0)

	expected := []float64{4, 3, 2, 1}
	for i := range expected {
		if returns[i] != expected[i] {
			t.Errorf("return at timestep %v: expected %v, got %v", i,
				expected[i], returns[i])
		}
	}
}

func TestReturnsEmpty(t *testing.T) {
	returns := Returns(nil, 0.99)
	if len(returns) != 0 {
		t.Errorf("expected no returns for an empty episode, got %v",
			returns)
	}
}

func TestNormalize(t *testing.T) {
	returns := []float64{3.93, 2.97, 1.99, 1.0}

	normalized := Normalize(returns, 1e-8)

	if len(normalized) != len(returns) {
		t.Fatalf("expected %v normalized returns, got %v", len(returns),
			len(normalized))
	}

	mean := stat.Mean(normalized, nil)
	if math.Abs(mean) > 1e-7 {
		t.Errorf("normalized returns should have mean 0, got %v", mean)
	}

	std := stat.StdDev(normalized, nil)
	if math.Abs(std-1.0) > 1e-7 {
		t.Errorf("normalized returns should have standard deviation 1, "+
			"got %v", std)
	}
}

// TestNormalizeDoesNotMutate checks that normalization leaves the
// input returns untouched
func TestNormalizeDoesNotMutate(t *testing.T) {
	returns := []float64{1, 2, 3}

	Normalize(returns, 1e-8)

	expected := []float64{1, 2, 3}
	for i := range expected {
		if returns[i] != expected[i] {
			t.Errorf("input return at index %v mutated: expected %v, "+
				"got %v", i, expected[i], returns[i])
		}
	}
}

// TestNormalizeDegenerate checks that episodes with no return variance
// normalize to approximately 0 rather than NaN or Inf
func TestNormalizeDegenerate(t *testing.T) {
	cases := [][]float64{
		{1.0},           // length-1 episode
		{2.5, 2.5, 2.5}, // all-equal returns
	}

	for _, returns := range cases {
		normalized := Normalize(returns, 1e-8)

		for i, norm := range normalized {
			if math.IsNaN(norm) || math.IsInf(norm, 0) {
				t.Fatalf("normalizing %v produced a non-finite value at "+
					"index %v: %v", returns, i, norm)
			}
			if math.Abs(norm) > 1e-7 {
				t.Errorf("normalizing %v should give ~0 at index %v, "+
					"got %v", returns, i, norm)
			}
		}
	}
}
