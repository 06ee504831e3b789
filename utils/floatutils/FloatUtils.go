// Package floatutils provides utilities for working with floats
package floatutils

// Max calculates and returns the maximum float64 in a list
func Max(floats ...float64) float64 {
	max := floats[0]
	for _, val := range floats {
		if val > max {
			max = val
		}
	}
	return max
}

// All returns whether every float in a list satisfies predicate f
func All(f func(float64) bool, floats ...float64) bool {
	for _, val := range floats {
		if !f(val) {
			return false
		}
	}
	return true
}
