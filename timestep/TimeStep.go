// Package timestep implements timesteps of the agent-environment interaction
package timestep

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// StepType denotes the type of step that a TimeStep can be: the first
// environmental step, a middle step, or a last step
type StepType int

const (
	First StepType = iota
	Mid
	Last
)

func (s StepType) String() string {
	switch s {
	case First:
		return "First"
	case Last:
		return "Last"
	default:
		return "Mid"
	}
}

// EndType distinguishes why an episode ended. Episodes end either
// because the environment reached a failure/goal state
// (TerminalStateReached) or because a step limit cut the episode off
// (Timeout).
type EndType int

const (
	// NotEnded denotes a step that did not end its episode
	NotEnded EndType = iota
	TerminalStateReached
	Timeout
)

// TimeStep packages together a single timestep in an environment
type TimeStep struct {
	StepType
	EndType
	Reward      float64
	Discount    float64
	Observation mat.Vector
	Number      int
}

// New returns a new TimeStep with the given fields. The returned
// TimeStep has not ended its episode; use SetEnd to mark it as ending
// one.
func New(t StepType, reward, discount float64, obs mat.Vector,
	number int) TimeStep {
	return TimeStep{t, NotEnded, reward, discount, obs, number}
}

// First returns whether a TimeStep is the first in an episode
func (t *TimeStep) First() bool {
	return t.StepType == First
}

// Mid returns whether a TimeStep is a middle step in an episode
func (t *TimeStep) Mid() bool {
	return t.StepType == Mid
}

// Last returns whether a TimeStep is the last step in an episode
func (t *TimeStep) Last() bool {
	return t.StepType == Last
}

// SetEnd records how the episode containing the TimeStep ended
func (t *TimeStep) SetEnd(e EndType) {
	t.EndType = e
}

// TerminalEnd returns whether the TimeStep ended its episode by
// reaching a terminal environment state, as opposed to a step limit
func (t *TimeStep) TerminalEnd() bool {
	return t.EndType == TerminalStateReached
}

// TimeoutEnd returns whether the TimeStep ended its episode by
// reaching a step limit
func (t *TimeStep) TimeoutEnd() bool {
	return t.EndType == Timeout
}

func (t TimeStep) String() string {
	str := "TimeStep | Type: %v  |  Reward:  %.2f  |  Discount: %.2f  |  " +
		"Step Number:  %v"

	return fmt.Sprintf(str, t.StepType, t.Reward, t.Discount, t.Number)
}
