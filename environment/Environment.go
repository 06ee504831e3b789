// Package environment outlines the interfaces and structs needed to implement
// concrete environments
package environment

import (
	"gonum.org/v1/gonum/mat"
	"cartpole-reinforce/timestep"
)

// Starter implements a distribution of starting states and samples
// starting states for environments
type Starter interface {
	Start() mat.Vector
}

// Ender determines when an episode ends. An Ender inspects a timestep
// and, if it ends the episode, modifies the timestep so that its
// StepType field is timestep.Last and its EndType field records why
// the episode ended.
type Ender interface {
	End(*timestep.TimeStep) bool
}

// Task implements the reward scheme for taking actions in some
// environment, as well as the starting-state distribution and the
// episode-ending conditions for the task.
type Task interface {
	Starter
	Ender

	// GetReward returns the reward for taking an action in some state,
	// resulting in a transition to nextState
	GetReward(state, action, nextState mat.Vector) float64

	AtGoal(state mat.Matrix) bool

	// Min and Max return the minimum and maximum possible rewards
	Min() float64
	Max() float64

	// RewardThreshold returns the running-reward level above which the
	// task is considered solved
	RewardThreshold() float64

	RewardSpec() Spec
}

// Environment implements a simulated environment, which includes a
// Task to complete. An Environment starts ready to use; Reset starts
// a new episode.
type Environment interface {
	Task
	Reset() timestep.TimeStep
	Step(action *mat.VecDense) (timestep.TimeStep, bool)
	DiscountSpec() Spec
	ObservationSpec() Spec
	ActionSpec() Spec
}
