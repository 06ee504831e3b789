package cartpole

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// fixedStarter always starts episodes from the same state
type fixedStarter struct {
	state []float64
}

func (f fixedStarter) Start() mat.Vector {
	return mat.NewVecDense(len(f.state), f.state)
}

func TestCartpoleStep(t *testing.T) {
	starter := fixedStarter{state: []float64{0, 0, 0, 0}}
	task := NewBalance(starter, 500, FailAngle)
	env, firstStep := New(task, 0.99)

	if !firstStep.First() {
		t.Error("the first timestep should have type First")
	}
	if firstStep.Number != 0 {
		t.Errorf("the first timestep should be step 0, got %v",
			firstStep.Number)
	}

	// Push the cart right from a motionless, upright state
	right := mat.NewVecDense(1, []float64{float64(MaxDiscreteAction)})
	step, done := env.Step(right)

	if done {
		t.Error("one push from upright should not end the episode")
	}
	if step.Number != 1 {
		t.Errorf("expected timestep 1, got %v", step.Number)
	}
	if step.Reward != 1.0 {
		t.Errorf("expected reward 1, got %v", step.Reward)
	}

	obs := step.Observation
	// Euler integration updates position and angle from the previous
	// velocities, which were 0
	if obs.AtVec(0) != 0 {
		t.Errorf("position should be unchanged after one step, got %v",
			obs.AtVec(0))
	}
	if obs.AtVec(2) != 0 {
		t.Errorf("angle should be unchanged after one step, got %v",
			obs.AtVec(2))
	}
	// Pushing right accelerates the cart right and the pole falls left
	if obs.AtVec(1) <= 0 {
		t.Errorf("pushing right should give positive cart velocity, "+
			"got %v", obs.AtVec(1))
	}
	if obs.AtVec(3) >= 0 {
		t.Errorf("pushing right should give negative angular velocity, "+
			"got %v", obs.AtVec(3))
	}
}

func TestCartpoleStepLeftMirrorsRight(t *testing.T) {
	starter := fixedStarter{state: []float64{0, 0, 0, 0}}

	leftEnv, _ := New(NewBalance(starter, 500, FailAngle), 0.99)
	rightEnv, _ := New(NewBalance(starter, 500, FailAngle), 0.99)

	left := mat.NewVecDense(1, []float64{float64(MinDiscreteAction)})
	right := mat.NewVecDense(1, []float64{float64(MaxDiscreteAction)})

	leftStep, _ := leftEnv.Step(left)
	rightStep, _ := rightEnv.Step(right)

	for i := 0; i < ObservationDims; i++ {
		mirrored := -rightStep.Observation.AtVec(i)
		if math.Abs(leftStep.Observation.AtVec(i)-mirrored) > 1e-12 {
			t.Errorf("feature %v should mirror under opposite pushes: "+
				"%v vs %v", i, leftStep.Observation.AtVec(i),
				rightStep.Observation.AtVec(i))
		}
	}
}

func TestCartpoleAngleTermination(t *testing.T) {
	// The pole starts just inside the failure angle, falling fast
	starter := fixedStarter{state: []float64{0, 0, FailAngle - 0.01, 1.0}}
	task := NewBalance(starter, 500, FailAngle)
	env, _ := New(task, 0.99)

	right := mat.NewVecDense(1, []float64{float64(MaxDiscreteAction)})
	step, done := env.Step(right)

	if !done {
		t.Fatal("the pole falling past the failure angle should end " +
			"the episode")
	}
	if !step.Last() {
		t.Error("the episode-ending timestep should have type Last")
	}
	if !step.TerminalEnd() {
		t.Error("falling past the failure angle should be a terminal " +
			"state, not a timeout")
	}
}

func TestCartpoleStepLimit(t *testing.T) {
	starter := fixedStarter{state: []float64{0, 0, 0, 0}}
	episodeSteps := 3
	task := NewBalance(starter, episodeSteps, FailAngle)
	env, _ := New(task, 0.99)

	// Alternate pushes to keep the pole up until the step limit
	for i := 0; i < episodeSteps; i++ {
		action := mat.NewVecDense(1, []float64{float64(i % 2)})
		step, done := env.Step(action)

		if i < episodeSteps-1 {
			if done {
				t.Fatalf("episode ended early at timestep %v", step.Number)
			}
			continue
		}

		if !done {
			t.Fatal("the episode should end at the step limit")
		}
		if !step.TimeoutEnd() {
			t.Error("ending at the step limit should be a timeout, not " +
				"a terminal state")
		}
	}
}

func TestCartpoleReset(t *testing.T) {
	starter := fixedStarter{state: []float64{0.01, 0, -0.02, 0}}
	task := NewBalance(starter, 500, FailAngle)
	env, firstStep := New(task, 0.99)

	right := mat.NewVecDense(1, []float64{float64(MaxDiscreteAction)})
	env.Step(right)
	env.Step(right)

	step := env.Reset()

	if !step.First() {
		t.Error("reset should return a First timestep")
	}
	if step.Number != 0 {
		t.Errorf("reset should return timestep 0, got %v", step.Number)
	}
	for i := 0; i < ObservationDims; i++ {
		if step.Observation.AtVec(i) != firstStep.Observation.AtVec(i) {
			t.Errorf("feature %v differs from the starting state: %v "+
				"vs %v", i, step.Observation.AtVec(i),
				firstStep.Observation.AtVec(i))
		}
	}
}

func TestBalanceTask(t *testing.T) {
	starter := fixedStarter{state: []float64{0, 0, 0, 0}}
	task := NewBalance(starter, 500, FailAngle)

	state := mat.NewVecDense(4, []float64{0, 0, 0, 0})
	action := mat.NewVecDense(1, []float64{1})
	if reward := task.GetReward(state, action, state); reward != 1.0 {
		t.Errorf("the balance task should reward +1 per step, got %v",
			reward)
	}

	if task.RewardThreshold() != SolvedThreshold {
		t.Errorf("expected reward threshold %v, got %v", SolvedThreshold,
			task.RewardThreshold())
	}
}
