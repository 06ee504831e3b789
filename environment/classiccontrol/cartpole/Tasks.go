package cartpole

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	env "cartpole-reinforce/environment"
	ts "cartpole-reinforce/timestep"
)

// SolvedThreshold is the running-reward level above which the Balance
// task is considered solved
const SolvedThreshold float64 = 475.0

// Balance implements the classic control Cartpole balance task. In
// this task, the goal of the agent is to balance the pole on the cart
// in an upright position for as long as possible.
//
// The reward is +1 for every timestep taken.
//
// Episodes end after a step limit, after the pole has fallen below
// the angle threshold θ, or after the cart has left the position
// bounds.
type Balance struct {
	env.Starter
	stepLimiter     env.StepLimit
	boundsLimiter   env.Ender
	failAngle       float64
	rewardThreshold float64
}

// NewBalance creates and returns a new Balance task. Episodes last at
// most episodeSteps steps and end early when the pole angle leaves
// (-failAngle, failAngle) or the cart leaves the position bounds.
func NewBalance(s env.Starter, episodeSteps int, failAngle float64) *Balance {
	stepLimiter := env.NewStepLimit(episodeSteps)

	legalIntervals := []r1.Interval{
		{Min: -PositionBounds, Max: PositionBounds},
		{Min: -failAngle, Max: failAngle},
	}
	featureIndices := []int{0, 2}
	boundsLimiter := env.NewIntervalLimit(legalIntervals, featureIndices)

	return &Balance{s, stepLimiter, boundsLimiter, failAngle,
		SolvedThreshold}
}

// End checks if a TimeStep is the last in an episode. If so, it
// adjusts the TimeStep's StepType to timestep.Last and returns true.
// Otherwise, the function does not adjust the TimeStep and returns
// false.
func (b *Balance) End(t *ts.TimeStep) bool {
	if end := b.boundsLimiter.End(t); end {
		return true
	}
	if end := b.stepLimiter.End(t); end {
		return true
	}
	return false
}

// GetReward returns the reward for an action taken in some state,
// resulting in a transition to the next state nextState.
func (b *Balance) GetReward(_ mat.Vector, _ mat.Vector,
	_ mat.Vector) float64 {
	return 1.0
}

// AtGoal returns whether or not the pole has fallen. There is no goal
// position in the Balance task; the agent fails once the pole falls
// below the angle threshold.
func (b *Balance) AtGoal(state mat.Matrix) bool {
	return math.Abs(state.At(0, 2)) < b.failAngle
}

// Min returns the minimum possible reward
func (b *Balance) Min() float64 {
	return 1.0
}

// Max returns the maximum possible reward
func (b *Balance) Max() float64 {
	return 1.0
}

// RewardThreshold returns the running-reward level above which the
// task is considered solved
func (b *Balance) RewardThreshold() float64 {
	return b.rewardThreshold
}

// RewardSpec returns the reward specification for the task
func (b *Balance) RewardSpec() env.Spec {
	shape := mat.NewVecDense(1, nil)
	lowerBound := mat.NewVecDense(1, []float64{b.Min()})
	upperBound := mat.NewVecDense(1, []float64{b.Max()})

	return env.NewSpec(shape, env.Reward, lowerBound, upperBound,
		env.Continuous)
}
