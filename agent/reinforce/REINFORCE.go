// Package reinforce implements the REINFORCE Monte-Carlo policy
// gradient algorithm with discounted-return normalization
package reinforce

import (
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"cartpole-reinforce/agent/policy"
	"cartpole-reinforce/environment"
	ts "cartpole-reinforce/timestep"
)

// REINFORCE implements the vanilla Monte-Carlo policy gradient
// algorithm (Williams, 1992) with a running mean/variance
// normalization of the per-timestep returns. The algorithm is
// described in:
//
// http://incompleteideas.net/book/RLbook2020.pdf
//
// Actions are sampled from a softmax policy over a discrete action
// set. Each timestep's sampled action record and reward are stored in
// an episode buffer. Once an episode ends, the buffered rewards are
// converted to normalized discounted returns and a single
// gradient-ascent step is taken on the objective
//
//	Σ_t normalizedReturn_t * log π(a_t | s_t)
//
// so that the log probability of actions with better-than-average
// outcomes increases. The weights of the behaviour policy change at
// episode boundaries only.
//
// REINFORCE implements the agent.Agent interface.
type REINFORCE struct {
	behaviour *policy.CategoricalMLP

	buffer  *episodeBuffer
	solver  G.Solver
	gamma   float64
	epsilon float64

	prevStep   ts.TimeStep
	lastRecord policy.ActionRecord
	sampled    bool

	eval bool
}

// New creates and returns a new REINFORCE agent acting on env, as
// described by config. The agent's action sampling is reproducible
// given seed.
func New(env environment.Environment, config Config,
	seed int64) (*REINFORCE, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	behaviour, err := policy.NewCategoricalMLP(env, 1, G.NewGraph(),
		config.PolicyLayers, config.PolicyBiases, config.PolicyActivations,
		config.InitWFn.InitWFn(), seed)
	if err != nil {
		return nil, fmt.Errorf("new: could not create behaviour "+
			"policy: %v", err)
	}

	features := env.ObservationSpec().Shape.Len()

	return &REINFORCE{
		behaviour: behaviour,
		buffer:    newEpisodeBuffer(features),
		solver:    config.Solver.Solver,
		gamma:     config.Gamma,
		epsilon:   config.NormEpsilon,
	}, nil
}

// ObserveFirst observes and records the first timestep in an episode
func (r *REINFORCE) ObserveFirst(t ts.TimeStep) error {
	if !t.First() {
		fmt.Fprintf(os.Stderr, "Warning: ObserveFirst() should only be "+
			"called on the first timestep (current timestep = %d)\n",
			t.Number)
	}

	r.prevStep = t
	return nil
}

// SelectAction samples an action from the behaviour policy at the
// given timestep. The log probability of the draw is retained and
// recorded into the episode buffer on the next call to Observe. A
// *policy.DistributionError is returned when the policy emits a
// degenerate action distribution.
func (r *REINFORCE) SelectAction(t ts.TimeStep) (*mat.VecDense, error) {
	action, record, err := r.behaviour.SampleAction(t)
	if err != nil {
		return nil, fmt.Errorf("selectAction: %w", err)
	}

	r.lastRecord = record
	r.sampled = true
	return action, nil
}

// Observe records that the most recently sampled action led to
// nextStep. The sampled action record is stored with the observation
// it was sampled in, and nextStep's reward is stored as that action's
// consequence.
func (r *REINFORCE) Observe(action mat.Vector, nextStep ts.TimeStep) error {
	if !r.sampled {
		return fmt.Errorf("observe: no action sampled since the last " +
			"observation")
	}
	if int(action.AtVec(0)) != r.lastRecord.Action {
		return fmt.Errorf("observe: action %v does not match the last "+
			"sampled action %v", int(action.AtVec(0)), r.lastRecord.Action)
	}

	obs := mat.VecDenseCopyOf(r.prevStep.Observation).RawVector().Data
	if err := r.buffer.recordAction(obs, r.lastRecord); err != nil {
		return fmt.Errorf("observe: %v", err)
	}
	if err := r.buffer.recordReward(nextStep.Reward); err != nil {
		return fmt.Errorf("observe: %v", err)
	}

	r.prevStep = nextStep
	r.sampled = false
	return nil
}

// Step updates the agent's policy weights. The update is a single
// per-episode batch gradient-ascent step, so Step only mutates the
// weights when the last observed timestep ended its episode; on all
// other timesteps Step is a no-op.
func (r *REINFORCE) Step() error {
	if !r.prevStep.Last() || r.eval {
		return nil
	}

	obs, records, rewards, err := r.buffer.drain()
	if err != nil {
		return fmt.Errorf("step: %v", err)
	}
	defer r.buffer.clear()

	episodeLength := len(rewards)
	if episodeLength == 0 {
		return fmt.Errorf("step: cannot update from an empty episode")
	}

	returns := Returns(rewards, r.gamma)
	normalized := Normalize(returns, r.epsilon)

	actions := make([]float64, episodeLength)
	for i, record := range records {
		actions[i] = float64(record.Action)
	}

	if err := r.update(obs, actions, normalized); err != nil {
		return fmt.Errorf("step: %v", err)
	}
	return nil
}

// update performs the per-episode gradient-ascent step. The behaviour
// policy is cloned onto a fresh graph with batch size equal to the
// episode length, a loss node
//
//	-Σ_t return_t * log π(a_t | s_t)
//
// is built on the clone's graph, the gradient of the loss flows back
// through the clone's weights, and the solver applies one descent
// step. The updated weights are then copied back into the behaviour
// policy. Because each episode's gradients live on their own graph, no
// gradient can leak between episodes.
func (r *REINFORCE) update(obs, actions, returns []float64) error {
	train, err := r.behaviour.CloneWithBatch(len(actions))
	if err != nil {
		return fmt.Errorf("update: could not clone policy: %v", err)
	}
	// Single-timestep episodes clone a policy that owns a machine
	if closer, ok := train.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	graph := train.Network().Graph()
	returnsNode := G.NewVector(
		graph,
		tensor.Float64,
		G.WithShape(len(returns)),
		G.WithName("Normalized Returns"),
	)

	loss := G.Must(G.HadamardProd(train.LogProbNode(), returnsNode))
	loss = G.Must(G.Sum(loss))
	loss = G.Must(G.Neg(loss))

	learnables := train.Network().Learnables()
	if _, err := G.Grad(loss, learnables...); err != nil {
		return fmt.Errorf("update: could not take gradient: %v", err)
	}

	vm := G.NewTapeMachine(graph, G.BindDualValues(learnables...))
	defer vm.Close()

	if err := train.LogProbOf(obs, actions); err != nil {
		return fmt.Errorf("update: %v", err)
	}
	returnsTensor := tensor.New(
		tensor.WithShape(returnsNode.Shape()...),
		tensor.WithBacking(returns),
	)
	if err := G.Let(returnsNode, returnsTensor); err != nil {
		return fmt.Errorf("update: could not set returns: %v", err)
	}

	if err := vm.RunAll(); err != nil {
		return fmt.Errorf("update: could not run update step: %v", err)
	}
	if err := r.solver.Step(train.Network().Model()); err != nil {
		return fmt.Errorf("update: could not step solver: %v", err)
	}
	vm.Reset()

	// Commit the updated weights to the behaviour policy
	if err := r.behaviour.Network().Set(train.Network()); err != nil {
		return fmt.Errorf("update: could not update behaviour "+
			"policy: %v", err)
	}
	return nil
}

// EndEpisode performs cleanup at the end of an episode
func (r *REINFORCE) EndEpisode() {
	r.sampled = false
}

// Eval sets the algorithm into evaluation mode, where the policy
// weights are frozen
func (r *REINFORCE) Eval() { r.eval = true }

// Train sets the algorithm into training mode
func (r *REINFORCE) Train() { r.eval = false }

// BufferedSteps returns the number of completed timesteps buffered for
// the current episode
func (r *REINFORCE) BufferedSteps() int {
	return r.buffer.len()
}

// Policy returns the agent's behaviour policy
func (r *REINFORCE) Policy() *policy.CategoricalMLP {
	return r.behaviour
}

// Close releases the resources held by the agent
func (r *REINFORCE) Close() error {
	return r.behaviour.Close()
}
