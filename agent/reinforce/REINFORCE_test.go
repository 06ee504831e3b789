package reinforce

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"cartpole-reinforce/environment"
	"cartpole-reinforce/environment/classiccontrol/cartpole"
	"cartpole-reinforce/initwfn"
	"cartpole-reinforce/network"
	"cartpole-reinforce/solver"
)

// fixedStarter always starts episodes from the same state
type fixedStarter struct {
	state []float64
}

func (f fixedStarter) Start() mat.Vector {
	return mat.NewVecDense(len(f.state), f.state)
}

// newTestAgent returns a small REINFORCE agent on a short-episode
// Cartpole environment. The constant weight initialization makes the
// agent's weights identical across constructions.
func newTestAgent(t *testing.T, episodeSteps int,
	seed int64) (*REINFORCE, environment.Environment) {
	t.Helper()

	starter := fixedStarter{state: []float64{0, 0, 0.01, 0}}
	task := cartpole.NewBalance(starter, episodeSteps, cartpole.FailAngle)
	env, _ := cartpole.New(task, 0.99)

	initWFn, err := initwfn.NewConstant(0.05)
	if err != nil {
		t.Fatalf("could not create weight initializer: %v", err)
	}
	policySolver, err := solver.NewVanilla(0.1, 1)
	if err != nil {
		t.Fatalf("could not create solver: %v", err)
	}

	config := Config{
		PolicyLayers:      []int{8},
		PolicyBiases:      []bool{true},
		PolicyActivations: []*network.Activation{network.TanH()},

		InitWFn: initWFn,
		Solver:  policySolver,

		Gamma:       0.99,
		NormEpsilon: 1e-8,
	}

	agent, err := New(env, config, seed)
	if err != nil {
		t.Fatalf("could not create agent: %v", err)
	}
	t.Cleanup(func() { agent.Close() })

	return agent, env
}

// weightSnapshot copies the current values of every learnable weight
func weightSnapshot(a *REINFORCE) [][]float64 {
	learnables := a.Policy().Network().Learnables()

	snapshot := make([][]float64, len(learnables))
	for i, node := range learnables {
		data := node.Value().Data().([]float64)
		snapshot[i] = append([]float64(nil), data...)
	}
	return snapshot
}

func sameWeights(a, b [][]float64) bool {
	for i := range a {
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				return false
			}
		}
	}
	return true
}

// TestREINFORCESingleCommitPerEpisode checks that the policy weights
// change exactly once per episode, at the episode boundary
func TestREINFORCESingleCommitPerEpisode(t *testing.T) {
	agent, env := newTestAgent(t, 10, 543)

	step := env.Reset()
	if err := agent.ObserveFirst(step); err != nil {
		t.Fatalf("could not observe first timestep: %v", err)
	}
	initial := weightSnapshot(agent)

	for !step.Last() {
		action, err := agent.SelectAction(step)
		if err != nil {
			t.Fatalf("could not select action: %v", err)
		}

		step, _ = env.Step(action)
		if err := agent.Observe(action, step); err != nil {
			t.Fatalf("could not observe timestep: %v", err)
		}
		if err := agent.Step(); err != nil {
			t.Fatalf("could not step agent: %v", err)
		}

		if !step.Last() && !sameWeights(initial, weightSnapshot(agent)) {
			t.Fatalf("weights changed mid-episode at timestep %v",
				step.Number)
		}
	}
	agent.EndEpisode()

	if sameWeights(initial, weightSnapshot(agent)) {
		t.Error("weights should change at the episode boundary")
	}
	if agent.BufferedSteps() != 0 {
		t.Errorf("the episode buffer should be cleared after the "+
			"update, has %v timesteps", agent.BufferedSteps())
	}
}

// TestREINFORCEReproducibility checks that two agents with identical
// seeds and environments produce identical action sequences across
// multiple episodes of training
func TestREINFORCEReproducibility(t *testing.T) {
	var seed int64 = 543
	first, firstEnv := newTestAgent(t, 10, seed)
	second, secondEnv := newTestAgent(t, 10, seed)

	for episode := 0; episode < 3; episode++ {
		firstActions := runEpisode(t, first, firstEnv)
		secondActions := runEpisode(t, second, secondEnv)

		if len(firstActions) != len(secondActions) {
			t.Fatalf("episode %v lengths differ: %v vs %v", episode,
				len(firstActions), len(secondActions))
		}
		for i := range firstActions {
			if firstActions[i] != secondActions[i] {
				t.Fatalf("episode %v action %v differs: %v vs %v",
					episode, i, firstActions[i], secondActions[i])
			}
		}
	}
}

// TestREINFORCEInitialWeightsReproducible checks that two agents
// built with the Glorot Normal initializer and the same seed start
// from identical weights
func TestREINFORCEInitialWeightsReproducible(t *testing.T) {
	var seed int64 = 543

	newAgent := func() *REINFORCE {
		starter := fixedStarter{state: []float64{0, 0, 0.01, 0}}
		task := cartpole.NewBalance(starter, 10, cartpole.FailAngle)
		env, _ := cartpole.New(task, 0.99)

		initWFn, err := initwfn.NewGlorotN(math.Sqrt(2.0), uint64(seed))
		if err != nil {
			t.Fatalf("could not create weight initializer: %v", err)
		}
		policySolver, err := solver.NewDefaultAdam(0.01, 1)
		if err != nil {
			t.Fatalf("could not create solver: %v", err)
		}

		config := Config{
			PolicyLayers:      []int{128},
			PolicyBiases:      []bool{true},
			PolicyActivations: []*network.Activation{network.ReLU()},

			InitWFn: initWFn,
			Solver:  policySolver,

			Gamma:       0.99,
			NormEpsilon: 1e-8,
		}

		agent, err := New(env, config, seed)
		if err != nil {
			t.Fatalf("could not create agent: %v", err)
		}
		t.Cleanup(func() { agent.Close() })

		return agent
	}

	first := weightSnapshot(newAgent())
	second := weightSnapshot(newAgent())

	if !sameWeights(first, second) {
		t.Error("two agents with identical seeds have different " +
			"initial weights")
	}

	allZero := true
	for i := range first {
		for j := range first[i] {
			if first[i][j] != 0.0 {
				allZero = false
			}
		}
	}
	if allZero {
		t.Error("weight initialization left all weights at zero")
	}
}

// TestREINFORCELengthOneEpisode checks that an episode that terminates
// after a single timestep still updates cleanly
func TestREINFORCELengthOneEpisode(t *testing.T) {
	agent, env := newTestAgent(t, 1, 543)

	actions := runEpisode(t, agent, env)
	if len(actions) != 1 {
		t.Fatalf("expected a single action, got %v", len(actions))
	}
	if agent.BufferedSteps() != 0 {
		t.Errorf("the episode buffer should be cleared after the "+
			"update, has %v timesteps", agent.BufferedSteps())
	}
}

// runEpisode runs one full episode, returning the sampled actions
func runEpisode(t *testing.T, agent *REINFORCE,
	env environment.Environment) []float64 {
	t.Helper()

	var actions []float64

	step := env.Reset()
	if err := agent.ObserveFirst(step); err != nil {
		t.Fatalf("could not observe first timestep: %v", err)
	}

	for !step.Last() {
		action, err := agent.SelectAction(step)
		if err != nil {
			t.Fatalf("could not select action: %v", err)
		}
		actions = append(actions, action.AtVec(0))

		step, _ = env.Step(action)
		if err := agent.Observe(action, step); err != nil {
			t.Fatalf("could not observe timestep: %v", err)
		}
		if err := agent.Step(); err != nil {
			t.Fatalf("could not step agent: %v", err)
		}
	}
	agent.EndEpisode()

	return actions
}
