package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/spatial/r1"

	"cartpole-reinforce/agent/reinforce"
	"cartpole-reinforce/environment"
	"cartpole-reinforce/environment/classiccontrol/cartpole"
	"cartpole-reinforce/experiment"
	"cartpole-reinforce/experiment/tracker"
	"cartpole-reinforce/initwfn"
	"cartpole-reinforce/network"
	"cartpole-reinforce/solver"
)

type options struct {
	gamma        float64
	seed         int64
	render       bool
	logInterval  int
	maxSteps     int
	learningRate float64

	normEpsilon   float64
	rewardDecay   float64
	initialReward float64
	episodes      int

	configFile  string
	lengthsFile string
	returnsFile string
}

func main() {
	var opts options

	rootCmd := &cobra.Command{
		Use:   "cartpole-reinforce",
		Short: "Train a REINFORCE agent to balance a pole on a cart",
		Long: "cartpole-reinforce trains a softmax policy with the " +
			"REINFORCE Monte-Carlo policy gradient algorithm on the " +
			"Cartpole balance task. Training runs until the running " +
			"average episode length exceeds the task's reward threshold.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts)
		},
	}

	flags := rootCmd.Flags()
	flags.Float64Var(&opts.gamma, "gamma", reinforce.DefaultGamma,
		"discount factor in [0, 1]")
	flags.Int64Var(&opts.seed, "seed", 543,
		"seed for the random sources, making the run reproducible")
	flags.BoolVar(&opts.render, "render", false,
		"print the environment state after every step")
	flags.IntVar(&opts.logInterval, "log-interval",
		experiment.DefaultLogInterval,
		"episodes between progress reports")
	flags.IntVar(&opts.maxSteps, "max-steps", 10000,
		"maximum steps per episode")
	flags.Float64Var(&opts.learningRate, "learning-rate",
		reinforce.DefaultLearningRate, "policy learning rate")
	flags.Float64Var(&opts.normEpsilon, "norm-epsilon",
		reinforce.DefaultNormEpsilon,
		"floor on the return-normalization denominator")
	flags.Float64Var(&opts.rewardDecay, "reward-decay",
		experiment.DefaultRewardDecay,
		"decay of the running average episode length")
	flags.Float64Var(&opts.initialReward, "initial-reward",
		experiment.DefaultInitialReward,
		"starting value of the running average episode length")
	flags.IntVar(&opts.episodes, "episodes", 0,
		"episode cap; 0 runs until the task is solved")
	flags.StringVar(&opts.configFile, "config", "",
		"JSON file describing the agent configuration; overrides the "+
			"gamma, learning-rate, and norm-epsilon flags")
	flags.StringVar(&opts.lengthsFile, "lengths-file", "",
		"file to save per-episode lengths to")
	flags.StringVar(&opts.returnsFile, "returns-file", "",
		"file to save per-episode returns to")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(opts options) error {
	agentConfig, err := agentConfiguration(opts)
	if err != nil {
		return err
	}

	// Starting states perturb every feature slightly around zero
	bounds := r1.Interval{Min: -0.05, Max: 0.05}
	starter := environment.NewUniformStarter([]r1.Interval{
		bounds,
		bounds,
		bounds,
		bounds,
	}, uint64(opts.seed))

	task := cartpole.NewBalance(starter, opts.maxSteps, cartpole.FailAngle)
	env, _ := cartpole.New(task, agentConfig.Gamma)

	agent, err := agentConfig.CreateAgent(env, opts.seed)
	if err != nil {
		return fmt.Errorf("could not create agent: %v", err)
	}
	defer agent.Close()

	var trackers []tracker.Tracker
	if opts.lengthsFile != "" {
		trackers = append(trackers, tracker.NewEpisodeLength(opts.lengthsFile))
	}
	if opts.returnsFile != "" {
		trackers = append(trackers, tracker.NewReturn(opts.returnsFile))
	}

	controllerConfig := experiment.Config{
		MaxEpisodes:   opts.episodes,
		LogInterval:   opts.logInterval,
		RewardDecay:   opts.rewardDecay,
		InitialReward: opts.initialReward,
		Render:        opts.render,
	}
	controller, err := experiment.NewController(env, agent, controllerConfig,
		os.Stdout, trackers...)
	if err != nil {
		return fmt.Errorf("could not create training controller: %v", err)
	}

	// Interruption stops the loop between timesteps, keeping the
	// weights committed at the last episode boundary
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := controller.Run(ctx); err != nil {
		return err
	}

	if err := controller.Save(); err != nil {
		log.Printf("could not save tracked data: %v", err)
	}
	return nil
}

// agentConfiguration builds the agent configuration from the JSON
// file named by --config if one was given, and from the agent flags
// otherwise
func agentConfiguration(opts options) (reinforce.Config, error) {
	if opts.configFile != "" {
		data, err := os.ReadFile(opts.configFile)
		if err != nil {
			return reinforce.Config{},
				fmt.Errorf("could not read configuration file: %v", err)
		}

		var agentConfig reinforce.Config
		if err := json.Unmarshal(data, &agentConfig); err != nil {
			return reinforce.Config{},
				fmt.Errorf("could not parse configuration file: %v", err)
		}
		return agentConfig, nil
	}

	policySolver, err := solver.NewDefaultAdam(opts.learningRate, 1)
	if err != nil {
		return reinforce.Config{},
			fmt.Errorf("could not create solver: %v", err)
	}
	initWFn, err := initwfn.NewGlorotN(math.Sqrt(2.0), uint64(opts.seed))
	if err != nil {
		return reinforce.Config{},
			fmt.Errorf("could not create weight initializer: %v", err)
	}

	return reinforce.Config{
		PolicyLayers:      []int{128},
		PolicyBiases:      []bool{true},
		PolicyActivations: []*network.Activation{network.ReLU()},

		InitWFn: initWFn,
		Solver:  policySolver,

		Gamma:       opts.gamma,
		NormEpsilon: opts.normEpsilon,
	}, nil
}
