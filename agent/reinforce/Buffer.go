package reinforce

import (
	"fmt"

	"cartpole-reinforce/agent/policy"
)

// episodeBuffer accumulates, for one episode, the sequence of sampled
// action records and the parallel sequence of rewards, along with the
// observations the actions were sampled in.
//
// The buffer is created empty at episode start, grows by one action
// record and one reward per timestep, and is drained exactly once at
// episode end. Clear must be called after Drain so that no records
// leak into the next episode.
type episodeBuffer struct {
	obsSize int

	obs     []float64 // flattened observations, row major
	records []policy.ActionRecord
	rewards []float64

	drained bool
}

// newEpisodeBuffer returns an empty episode buffer for observations
// with obsSize features
func newEpisodeBuffer(obsSize int) *episodeBuffer {
	return &episodeBuffer{obsSize: obsSize}
}

// recordAction appends the observation and the action record of one
// timestep. A reward must be recorded for the previous action before
// a new action can be recorded.
func (e *episodeBuffer) recordAction(obs []float64,
	record policy.ActionRecord) error {
	if e.drained {
		return fmt.Errorf("recordAction: buffer already drained, " +
			"must be cleared before reuse")
	}
	if len(obs) != e.obsSize {
		return fmt.Errorf("recordAction: illegal obs length\n\twant(%v)"+
			"\n\thave(%v)", e.obsSize, len(obs))
	}
	if len(e.records) != len(e.rewards) {
		return fmt.Errorf("recordAction: action at timestep %v recorded "+
			"before reward for timestep %v", len(e.records),
			len(e.rewards))
	}

	e.obs = append(e.obs, obs...)
	e.records = append(e.records, record)
	return nil
}

// recordReward appends the reward that followed the most recently
// recorded action
func (e *episodeBuffer) recordReward(reward float64) error {
	if e.drained {
		return fmt.Errorf("recordReward: buffer already drained, " +
			"must be cleared before reuse")
	}
	if len(e.rewards) != len(e.records)-1 {
		return fmt.Errorf("recordReward: reward recorded with no "+
			"preceding action (have %v actions, %v rewards)",
			len(e.records), len(e.rewards))
	}

	e.rewards = append(e.rewards, reward)
	return nil
}

// len returns the number of completed timesteps in the buffer
func (e *episodeBuffer) len() int {
	return len(e.rewards)
}

// drain returns the buffered observations, action records, and
// rewards. Drain may only be called once per episode, after exactly as
// many rewards as actions have been recorded; violating either
// contract is an error.
func (e *episodeBuffer) drain() ([]float64, []policy.ActionRecord,
	[]float64, error) {
	if e.drained {
		return nil, nil, nil, fmt.Errorf("drain: buffer drained twice " +
			"without being cleared")
	}
	if len(e.records) != len(e.rewards) {
		return nil, nil, nil, fmt.Errorf("drain: parity violation: %v "+
			"action records but %v rewards", len(e.records),
			len(e.rewards))
	}

	e.drained = true
	return e.obs, e.records, e.rewards, nil
}

// clear resets the buffer to empty for the next episode
func (e *episodeBuffer) clear() {
	e.obs = e.obs[:0]
	e.records = e.records[:0]
	e.rewards = e.rewards[:0]
	e.drained = false
}
