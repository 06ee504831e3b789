package policy

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"cartpole-reinforce/agent"
	"cartpole-reinforce/environment"
	"cartpole-reinforce/network"
	"cartpole-reinforce/timestep"
)

// ActionRecord is the result of sampling one action from a policy: the
// chosen action index together with the log probability the policy
// assigned to that action when it was drawn.
type ActionRecord struct {
	Action  int
	LogProb float64
}

// CategoricalMLP implements a softmax policy over a discrete action
// set, parameterized by a multi-layered perceptron. The MLP predicts
// one logit per action; action probabilities are the softmax of the
// logits.
//
// A CategoricalMLP with batch size 1 owns a virtual machine and can
// sample actions with SampleAction. A CategoricalMLP with a larger
// batch size is used for learning: it exposes the log probability of
// a batch of (state, action) pairs through LogProbNode so that a loss
// can be constructed on its graph before a machine is compiled.
type CategoricalMLP struct {
	net network.NeuralNet
	vm  G.VM

	logits     *G.Node
	logitsVals G.Value

	logProbInputActions *G.Node
	actionIndices       *G.Node

	batchSize  int
	numActions int

	seed int64
	rng  *rand.Rand
}

// NewCategoricalMLP returns a new softmax policy over the action set
// of env, approximated by an MLP with the given hidden layer sizes,
// biases, and activations added to graph g. The policy samples with a
// random generator seeded by seed.
func NewCategoricalMLP(env environment.Environment, batch int,
	g *G.ExprGraph, hiddenSizes []int, biases []bool,
	activations []*network.Activation, init G.InitWFn,
	seed int64) (*CategoricalMLP, error) {
	if env.ActionSpec().Cardinality != environment.Discrete {
		return nil, fmt.Errorf("newCategoricalMLP: softmax policy cannot " +
			"be used with continuous actions")
	}

	features := env.ObservationSpec().Shape.Len()
	numActions := int(env.ActionSpec().UpperBound.AtVec(0)) + 1

	net, err := network.NewMultiHeadMLP(features, batch, numActions, g,
		hiddenSizes, biases, init, activations)
	if err != nil {
		return nil, fmt.Errorf("newCategoricalMLP: could not create "+
			"policy network: %v", err)
	}

	return fromNetwork(net, batch, numActions, seed)
}

// fromNetwork builds the log-probability portion of the computational
// graph on top of an existing policy network
func fromNetwork(net network.NeuralNet, batch, numActions int,
	seed int64) (*CategoricalMLP, error) {
	logits := net.Prediction()

	// Log probability of actions inputted with LogProbOf(). The
	// action indices are a one-hot matrix selecting, per row, the
	// logit of the action taken in that row's state.
	actionIndices := G.NewMatrix(
		net.Graph(),
		tensor.Float64,
		G.WithShape(logits.Shape()...),
		G.WithInit(G.Zeroes()),
		G.WithName("Action Indices"),
	)
	logitsInputActions := G.Must(G.HadamardProd(actionIndices, logits))
	logitsInputActions = G.Must(G.Sum(logitsInputActions, 1))
	logSumExp := logSumExp(logits, 1)
	logProbInputActions := G.Must(G.Sub(logitsInputActions, logSumExp))

	source := rand.NewSource(seed)
	rng := rand.New(source)

	pol := &CategoricalMLP{
		net:    net,
		logits: logits,

		actionIndices:       actionIndices,
		logProbInputActions: logProbInputActions,

		batchSize:  batch,
		numActions: numActions,

		seed: seed,
		rng:  rng,
	}
	G.Read(pol.logits, &pol.logitsVals)

	// Only single-sample policies select actions, so only they need
	// a machine compiled directly on the forward pass
	if batch == 1 {
		pol.vm = G.NewTapeMachine(net.Graph())
	}

	return pol, nil
}

// logSumExp calculates the log of the sum of the exponential of the
// logits along the given axis, shifted by the max logit for numerical
// stability
func logSumExp(logits *G.Node, along int) *G.Node {
	max := G.Must(G.Max(logits, along))

	exponent := G.Must(G.BroadcastSub(logits, max, nil, []byte{1}))
	exponent = G.Must(G.Exp(exponent))

	sum := G.Must(G.Sum(exponent, along))
	log := G.Must(G.Log(sum))

	return G.Must(G.Add(max, log))
}

// SampleAction draws one action from the policy's distribution at the
// timestep's observation. It returns the action along with an
// ActionRecord holding the log probability of the draw. A
// *DistributionError is returned if the policy outputs a degenerate
// distribution.
func (c *CategoricalMLP) SampleAction(t timestep.TimeStep) (*mat.VecDense,
	ActionRecord, error) {
	if c.batchSize != 1 {
		return nil, ActionRecord{}, fmt.Errorf("sampleAction: only " +
			"single-sample policies can select actions")
	}

	probs, err := c.Distribution(t.Observation)
	if err != nil {
		return nil, ActionRecord{}, err
	}

	action := SampleCategorical(probs, c.rng)
	record := ActionRecord{
		Action:  action,
		LogProb: math.Log(probs[action]),
	}

	return mat.NewVecDense(1, []float64{float64(action)}), record, nil
}

// Distribution runs the policy network forward on a single observation
// and returns the validated action probabilities
func (c *CategoricalMLP) Distribution(obs mat.Vector) ([]float64, error) {
	raw := mat.VecDenseCopyOf(obs).RawVector().Data
	if err := c.net.SetInput(raw); err != nil {
		return nil, fmt.Errorf("distribution: %v", err)
	}

	if err := c.vm.RunAll(); err != nil {
		return nil, fmt.Errorf("distribution: could not run forward "+
			"pass: %v", err)
	}
	logits := c.logitsVals.Data().([]float64)
	c.vm.Reset()

	probs := Softmax(logits)
	if err := ValidateDistribution(probs); err != nil {
		return nil, err
	}
	return probs, nil
}

// LogProbOf sets the policy's inputs so that the next run of the graph
// computes, in LogProbNode, the log probability of taking each of the
// argument actions in the corresponding argument state. States are
// given in row major order and actions as discrete action indices.
func (c *CategoricalMLP) LogProbOf(states, actions []float64) error {
	if len(actions) != c.batchSize {
		return fmt.Errorf("logProbOf: illegal number of actions"+
			"\n\twant(%v)\n\thave(%v)", c.batchSize, len(actions))
	}

	if err := c.net.SetInput(states); err != nil {
		return fmt.Errorf("logProbOf: %v", err)
	}

	oneHot := make([]float64, 0, c.numActions*c.batchSize)
	for i := range actions {
		row := make([]float64, c.numActions)
		row[int(actions[i])] = 1.0
		oneHot = append(oneHot, row...)
	}
	oneHotTensor := tensor.NewDense(
		tensor.Float64,
		[]int{c.batchSize, c.numActions},
		tensor.WithBacking(oneHot),
	)

	return G.Let(c.actionIndices, oneHotTensor)
}

// LogProbNode returns the node holding the log probability of the
// actions inputted with LogProbOf
func (c *CategoricalMLP) LogProbNode() *G.Node {
	return c.logProbInputActions
}

// CloneWithBatch clones the policy onto a fresh graph with a new input
// batch size, copying the current weight values
func (c *CategoricalMLP) CloneWithBatch(batch int) (agent.LogProber, error) {
	net, err := c.net.CloneWithBatch(batch)
	if err != nil {
		return nil, fmt.Errorf("cloneWithBatch: could not clone policy "+
			"network: %v", err)
	}

	return fromNetwork(net, batch, c.numActions, c.seed)
}

// Network returns the network that approximates the policy
func (c *CategoricalMLP) Network() network.NeuralNet {
	return c.net
}

// NumActions returns the size of the policy's action set
func (c *CategoricalMLP) NumActions() int {
	return c.numActions
}

// Close releases the policy's virtual machine, if it owns one
func (c *CategoricalMLP) Close() error {
	if c.vm != nil {
		return c.vm.Close()
	}
	return nil
}
