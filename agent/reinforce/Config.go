package reinforce

import (
	"fmt"

	"cartpole-reinforce/environment"
	"cartpole-reinforce/initwfn"
	"cartpole-reinforce/network"
	"cartpole-reinforce/solver"
)

// Default hyperparameters. The normalization epsilon and learning rate
// defaults follow the conventional values for REINFORCE on classic
// control tasks.
const (
	DefaultGamma        float64 = 0.99
	DefaultLearningRate float64 = 0.01
	DefaultNormEpsilon  float64 = 1e-8
)

// Config implements a configuration of the REINFORCE algorithm
type Config struct {
	// Architecture of the policy network. A final linear layer
	// predicting one logit per action is always added.
	PolicyLayers      []int
	PolicyBiases      []bool
	PolicyActivations []*network.Activation

	// InitWFn initializes the policy network weights
	InitWFn *initwfn.InitWFn

	// Solver performs the gradient-ascent step on the policy weights
	Solver *solver.Solver

	// Gamma is the discount factor used when computing the
	// per-timestep returns of an episode
	Gamma float64

	// NormEpsilon is the floor added to the standard deviation when
	// normalizing returns, preventing division by zero on degenerate
	// episodes
	NormEpsilon float64
}

// Validate returns an error describing why the configuration cannot be
// used to create a REINFORCE agent, or nil if it can
func (c Config) Validate() error {
	if c.Gamma < 0 || c.Gamma > 1 {
		return fmt.Errorf("validate: gamma must be in [0, 1], got %v",
			c.Gamma)
	}
	if c.NormEpsilon <= 0 {
		return fmt.Errorf("validate: normalization epsilon must be "+
			"positive, got %v", c.NormEpsilon)
	}
	if len(c.PolicyLayers) != len(c.PolicyBiases) {
		return fmt.Errorf("validate: invalid number of biases\n\twant(%d)"+
			"\n\thave(%d)", len(c.PolicyLayers), len(c.PolicyBiases))
	}
	if len(c.PolicyLayers) != len(c.PolicyActivations) {
		return fmt.Errorf("validate: invalid number of activations"+
			"\n\twant(%d)\n\thave(%d)", len(c.PolicyLayers),
			len(c.PolicyActivations))
	}
	if c.InitWFn == nil {
		return fmt.Errorf("validate: no weight initializer given")
	}
	if c.Solver == nil {
		return fmt.Errorf("validate: no solver given")
	}
	return nil
}

// CreateAgent creates and returns a new REINFORCE agent on env as
// described by the configuration
func (c Config) CreateAgent(env environment.Environment,
	seed int64) (*REINFORCE, error) {
	return New(env, c, seed)
}
