// Package experiment implements functionality for running an
// experiment
package experiment

import (
	"context"
	"fmt"
	"io"
	"os"

	"cartpole-reinforce/agent"
	env "cartpole-reinforce/environment"
	"cartpole-reinforce/experiment/tracker"
	ts "cartpole-reinforce/timestep"
)

// State describes the phase a Controller's training loop is in.
// Controllers cycle AwaitingReset → RunningEpisode → EpisodeComplete
// and back to AwaitingReset until the stopping criterion is met, at
// which point they transition to the terminal Converged state.
type State int

const (
	AwaitingReset State = iota
	RunningEpisode
	EpisodeComplete
	Converged
)

func (s State) String() string {
	switch s {
	case AwaitingReset:
		return "AwaitingReset"
	case RunningEpisode:
		return "RunningEpisode"
	case EpisodeComplete:
		return "EpisodeComplete"
	case Converged:
		return "Converged"
	default:
		return "Unknown"
	}
}

// Default training loop parameters
const (
	DefaultLogInterval   int     = 10
	DefaultRewardDecay   float64 = 0.99
	DefaultInitialReward float64 = 10.0
)

// Config implements a configuration of a training Controller
type Config struct {
	// MaxEpisodes caps the number of episodes run. If 0, the loop
	// runs until the stopping criterion is met, however long that
	// takes.
	MaxEpisodes int

	// LogInterval is the number of episodes between progress reports
	LogInterval int

	// RewardDecay weights the exponential moving average of episode
	// lengths: signal = RewardDecay*signal + (1-RewardDecay)*length
	RewardDecay float64

	// InitialReward seeds the running reward signal before the first
	// episode completes
	InitialReward float64

	// Render prints the environment state after every step. Rendering
	// never alters the numerical trajectory of training.
	Render bool
}

// Validate returns an error describing why the configuration cannot
// be used to create a Controller, or nil if it can
func (c Config) Validate() error {
	if c.MaxEpisodes < 0 {
		return fmt.Errorf("validate: max episodes must be non-negative, "+
			"got %v", c.MaxEpisodes)
	}
	if c.LogInterval <= 0 {
		return fmt.Errorf("validate: log interval must be positive, "+
			"got %v", c.LogInterval)
	}
	if c.RewardDecay < 0 || c.RewardDecay >= 1 {
		return fmt.Errorf("validate: reward decay must be in [0, 1), "+
			"got %v", c.RewardDecay)
	}
	return nil
}

// Controller orchestrates the interaction between an agent and an
// environment across timesteps and episodes. It maintains an
// exponential moving average of episode lengths as a running
// performance signal, emits periodic progress reports, and halts once
// the signal exceeds the environment task's reward threshold.
//
// The Controller only drives the agent; the agent commits weight
// updates at episode boundaries on its own. Cancelling the context
// passed to Run stops the loop between timesteps, so an interruption
// can only ever lose the in-progress episode's buffered data, never
// previously committed weights.
type Controller struct {
	env.Environment
	agent.Agent

	config   Config
	out      io.Writer
	trackers []tracker.Tracker

	state         State
	runningReward float64
	episodes      int
	lastLength    int
}

// NewController creates and returns a new training Controller running
// a on e. Progress reports are written to out; if out is nil, reports
// go to standard output. Any trackers are sent every environmental
// timestep.
func NewController(e env.Environment, a agent.Agent, config Config,
	out io.Writer, trackers ...tracker.Tracker) (*Controller, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("newController: %v", err)
	}
	if out == nil {
		out = os.Stdout
	}

	return &Controller{
		Environment:   e,
		Agent:         a,
		config:        config,
		out:           out,
		trackers:      trackers,
		state:         AwaitingReset,
		runningReward: config.InitialReward,
	}, nil
}

// Register registers a tracker.Tracker with the (possibly already
// running) Controller
func (c *Controller) Register(t tracker.Tracker) {
	c.trackers = append(c.trackers, t)
}

// State returns the state the Controller's training loop is in
func (c *Controller) State() State {
	return c.state
}

// RunningReward returns the exponential moving average of episode
// lengths used as the stopping signal
func (c *Controller) RunningReward() float64 {
	return c.runningReward
}

// Episodes returns the number of completed episodes
func (c *Controller) Episodes() int {
	return c.episodes
}

// Run runs the training loop until the running reward exceeds the
// environment task's reward threshold, the configured episode cap is
// reached, or ctx is cancelled. Cancellation is not an error: the
// loop reports the last completed episode's statistics and returns
// nil, leaving the agent's weights at their last episode-boundary
// commit.
func (c *Controller) Run(ctx context.Context) error {
	var step ts.TimeStep

	for {
		switch c.state {
		case AwaitingReset:
			step = c.Environment.Reset()
			if err := c.Agent.ObserveFirst(step); err != nil {
				return fmt.Errorf("run: episode %d: %v", c.episodes+1, err)
			}
			c.track(step)
			c.state = RunningEpisode

		case RunningEpisode:
			for !step.Last() {
				select {
				case <-ctx.Done():
					c.reportInterruption()
					return nil
				default:
				}

				var err error
				if step, err = c.transition(step); err != nil {
					return fmt.Errorf("run: episode %d, timestep %d: %v",
						c.episodes+1, step.Number, err)
				}
			}
			c.state = EpisodeComplete

		case EpisodeComplete:
			c.completeEpisode(step)

		case Converged:
			return nil

		default:
			return fmt.Errorf("run: unknown controller state %v", c.state)
		}

		if c.state == AwaitingReset && c.config.MaxEpisodes > 0 &&
			c.episodes >= c.config.MaxEpisodes {
			return nil
		}
	}
}

// transition runs a single timestep: the agent selects an action, the
// environment applies it, and the agent observes the consequence.
func (c *Controller) transition(step ts.TimeStep) (ts.TimeStep, error) {
	action, err := c.Agent.SelectAction(step)
	if err != nil {
		return step, err
	}

	step, _ = c.Environment.Step(action)
	c.track(step)
	c.render()

	if err := c.Agent.Observe(action, step); err != nil {
		return step, err
	}
	if err := c.Agent.Step(); err != nil {
		return step, err
	}

	return step, nil
}

// completeEpisode finishes the bookkeeping for an ended episode:
// updating the running reward signal, reporting progress, and applying
// the stopping criterion
func (c *Controller) completeEpisode(step ts.TimeStep) {
	c.Agent.EndEpisode()

	c.lastLength = step.Number
	c.runningReward = c.config.RewardDecay*c.runningReward +
		(1-c.config.RewardDecay)*float64(c.lastLength)
	c.episodes++

	if c.episodes%c.config.LogInterval == 0 {
		fmt.Fprintf(c.out, "Episode %d\tLast length: %5d\tAverage "+
			"length: %.2f\n", c.episodes, c.lastLength, c.runningReward)
	}

	// The stopping criterion is only ever applied at episode
	// boundaries
	if c.runningReward > c.Environment.RewardThreshold() {
		fmt.Fprintf(c.out, "Solved! Running reward is now %.2f and the "+
			"last episode runs to %d time steps!\n", c.runningReward,
			c.lastLength)
		c.state = Converged
		return
	}

	c.state = AwaitingReset
}

// reportInterruption reports the statistics of the last completed
// episode after an external cancellation
func (c *Controller) reportInterruption() {
	fmt.Fprintf(c.out, "Training interrupted\tEpisodes completed: %d\t"+
		"Average length: %.2f\n", c.episodes, c.runningReward)
}

// render prints the environment's state line when rendering is enabled
func (c *Controller) render() {
	if !c.config.Render {
		return
	}
	if s, ok := c.Environment.(fmt.Stringer); ok {
		fmt.Fprintln(c.out, s)
	}
}

// track sends a timestep to every registered tracker
func (c *Controller) track(t ts.TimeStep) {
	for _, tr := range c.trackers {
		tr.Track(t)
	}
}

// Save saves the data cached by every registered tracker to disk
func (c *Controller) Save() error {
	for _, tr := range c.trackers {
		if err := tr.Save(); err != nil {
			return fmt.Errorf("save: %v", err)
		}
	}
	return nil
}
