package reinforce

import (
	"testing"

	"cartpole-reinforce/agent/policy"
)

func TestBufferParity(t *testing.T) {
	buffer := newEpisodeBuffer(2)

	steps := 5
	for i := 0; i < steps; i++ {
		record := policy.ActionRecord{Action: i % 2, LogProb: -0.7}
		if err := buffer.recordAction([]float64{1, 2}, record); err != nil {
			t.Fatalf("could not record action: %v", err)
		}
		if err := buffer.recordReward(1.0); err != nil {
			t.Fatalf("could not record reward: %v", err)
		}
	}

	obs, records, rewards, err := buffer.drain()
	if err != nil {
		t.Fatalf("could not drain buffer: %v", err)
	}

	if len(records) != len(rewards) {
		t.Errorf("parity violation: %v action records but %v rewards",
			len(records), len(rewards))
	}
	if len(records) != steps {
		t.Errorf("expected %v action records, got %v", steps, len(records))
	}
	if len(obs) != steps*2 {
		t.Errorf("expected %v observation features, got %v", steps*2,
			len(obs))
	}
}

func TestBufferDrainUnmatchedAction(t *testing.T) {
	buffer := newEpisodeBuffer(2)

	record := policy.ActionRecord{Action: 0, LogProb: -0.7}
	if err := buffer.recordAction([]float64{1, 2}, record); err != nil {
		t.Fatalf("could not record action: %v", err)
	}

	// The recorded action has no consequent reward yet
	if _, _, _, err := buffer.drain(); err == nil {
		t.Error("draining with unmatched action records should fail")
	}
}

func TestBufferDrainTwice(t *testing.T) {
	buffer := newEpisodeBuffer(1)

	record := policy.ActionRecord{Action: 1, LogProb: -0.7}
	if err := buffer.recordAction([]float64{0}, record); err != nil {
		t.Fatalf("could not record action: %v", err)
	}
	if err := buffer.recordReward(1.0); err != nil {
		t.Fatalf("could not record reward: %v", err)
	}

	if _, _, _, err := buffer.drain(); err != nil {
		t.Fatalf("could not drain buffer: %v", err)
	}
	if _, _, _, err := buffer.drain(); err == nil {
		t.Error("draining twice without clearing should fail")
	}

	// Recording into a drained buffer is also a contract violation
	if err := buffer.recordAction([]float64{0}, record); err == nil {
		t.Error("recording an action into a drained buffer should fail")
	}
	if err := buffer.recordReward(1.0); err == nil {
		t.Error("recording a reward into a drained buffer should fail")
	}
}

func TestBufferClear(t *testing.T) {
	buffer := newEpisodeBuffer(1)

	record := policy.ActionRecord{Action: 0, LogProb: -0.7}
	if err := buffer.recordAction([]float64{0}, record); err != nil {
		t.Fatalf("could not record action: %v", err)
	}
	if err := buffer.recordReward(1.0); err != nil {
		t.Fatalf("could not record reward: %v", err)
	}
	if _, _, _, err := buffer.drain(); err != nil {
		t.Fatalf("could not drain buffer: %v", err)
	}

	buffer.clear()

	if buffer.len() != 0 {
		t.Errorf("cleared buffer should be empty, has %v timesteps",
			buffer.len())
	}

	// A cleared buffer accepts a fresh episode and drains again
	if err := buffer.recordAction([]float64{0}, record); err != nil {
		t.Fatalf("could not record action after clearing: %v", err)
	}
	if err := buffer.recordReward(0.5); err != nil {
		t.Fatalf("could not record reward after clearing: %v", err)
	}

	_, records, rewards, err := buffer.drain()
	if err != nil {
		t.Fatalf("could not drain buffer after clearing: %v", err)
	}
	if len(records) != 1 || len(rewards) != 1 {
		t.Errorf("expected 1 action record and 1 reward, got %v and %v",
			len(records), len(rewards))
	}
	if rewards[0] != 0.5 {
		t.Errorf("expected reward 0.5, got %v", rewards[0])
	}
}

func TestBufferRewardWithoutAction(t *testing.T) {
	buffer := newEpisodeBuffer(1)

	if err := buffer.recordReward(1.0); err == nil {
		t.Error("recording a reward with no preceding action should fail")
	}
}
