// Package agent defines an agent interface
package agent

import (
	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"

	"cartpole-reinforce/network"
	"cartpole-reinforce/timestep"
)

// Agent determines the implementation details of an agent or algorithm
//
// An Agent is composed of a Learner, which learns weights, and a
// Policy which chooses actions in each state. The Policy chooses which
// actions are taken, and the Learner uses these actions to update the
// Policy.
type Agent interface {
	Learner
	Policy
}

// Learner implements a learning algorithm that defines how weights are
// updated.
type Learner interface {
	// ObserveFirst records the first timestep in an episode
	ObserveFirst(timestep.TimeStep) error

	// Observe records that an action led to some timestep
	Observe(action mat.Vector, nextStep timestep.TimeStep) error

	// Step performs a single update to the learner. Learners that
	// update once per episode only mutate their weights when the last
	// observed timestep ended an episode.
	Step() error

	// EndEpisode performs cleanup at the end of an episode
	EndEpisode()
}

// Policy represents a policy that an agent can have.
//
// Policies determine how agents select actions. The Policy and Learner
// of an Agent should share weights so that any changes the Learner
// makes are reflected in the actions the Policy chooses.
type Policy interface {
	// SelectAction samples an action at the given timestep. An error
	// is returned when the policy emits a degenerate action
	// distribution.
	SelectAction(t timestep.TimeStep) (*mat.VecDense, error)
}

// NNPolicy represents a policy that uses neural network function
// approximation.
type NNPolicy interface {
	Network() network.NeuralNet
}

// LogProber implements a policy type that can calculate the log
// probability of taking externally inputted actions in externally
// inputted states. The gradient of the log probability flows through
// LogProbNode rather than through the action selection process.
type LogProber interface {
	NNPolicy

	// CloneWithBatch clones the policy onto a fresh graph with a new
	// input batch size, copying the current weight values
	CloneWithBatch(int) (LogProber, error)

	// LogProbNode returns the node that calculates the log
	// probability of the inputted actions
	LogProbNode() *G.Node

	// LogProbOf sets the policy inputs so that, on the next run of
	// the graph, LogProbNode holds the log probability of taking the
	// argument actions in the argument states. States are constructed
	// in row major order; actions are discrete action indices.
	LogProbOf(states, actions []float64) error
}
