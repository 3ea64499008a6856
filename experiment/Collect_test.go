package experiment_test

import (
	"testing"

	"github.com/personalrobotics/d3rlpy/experiment"
)

func TestCollectStoresEverySteps(t *testing.T) {
	config := experiment.NewCollectConfig()
	config.NSteps = 10

	buffer := newRecordingBuffer(t)
	collect, err := experiment.NewCollect(newMockAlgo(2, 1), &scriptedEnv{},
		buffer, nil, config)
	if err != nil {
		t.Fatalf("newCollect: %v", err)
	}
	if err := collect.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}

	if buffer.Len() != 10 {
		t.Errorf("buffer length: want 10, got %v", buffer.Len())
	}
	if buffer.clips != 1 {
		t.Errorf("clipEpisode calls: want 1, got %v", buffer.clips)
	}
}

func TestCollectNeverUpdates(t *testing.T) {
	config := experiment.NewCollectConfig()
	config.NSteps = 25

	algo := newMockAlgo(2, 1)
	collect, err := experiment.NewCollect(algo, &scriptedEnv{terminalEvery: 4},
		newRecordingBuffer(t), nil, config)
	if err != nil {
		t.Fatalf("newCollect: %v", err)
	}
	if err := collect.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}

	if algo.GradStep() != 0 {
		t.Errorf("gradStep: want 0, got %v", algo.GradStep())
	}
}

func TestCollectRandomPhaseSkipsPolicy(t *testing.T) {
	config := experiment.NewCollectConfig()
	config.NSteps = 10
	config.RandomSteps = 5

	algo := newMockAlgo(2, 1)
	collect, err := experiment.NewCollect(algo, &scriptedEnv{},
		newRecordingBuffer(t), nil, config)
	if err != nil {
		t.Fatalf("newCollect: %v", err)
	}
	if err := collect.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}

	// Steps 1 through 4 are uniformly random; the policy selects from
	// step 5 on
	if algo.sampleCalls != 6 {
		t.Errorf("sampleAction calls: want 6, got %v", algo.sampleCalls)
	}
	if algo.predictCalls != 0 {
		t.Errorf("predict calls: want 0, got %v", algo.predictCalls)
	}
}

func TestCollectDeterministicForcesGreedy(t *testing.T) {
	config := experiment.NewCollectConfig()
	config.NSteps = 10
	config.RandomSteps = 5
	config.Deterministic = true

	algo := newMockAlgo(2, 1)
	collect, err := experiment.NewCollect(algo, &scriptedEnv{},
		newRecordingBuffer(t), nil, config)
	if err != nil {
		t.Fatalf("newCollect: %v", err)
	}
	if err := collect.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}

	if algo.predictCalls != 10 {
		t.Errorf("predict calls: want 10, got %v", algo.predictCalls)
	}
	if algo.sampleCalls != 0 {
		t.Errorf("sampleAction calls: want 0, got %v", algo.sampleCalls)
	}
}

func TestCollectTruncationBoundary(t *testing.T) {
	config := experiment.NewCollectConfig()
	config.NSteps = 6

	env := &scriptedEnv{truncateEvery: 3}
	buffer := newRecordingBuffer(t)
	collect, err := experiment.NewCollect(newMockAlgo(2, 1), env, buffer,
		nil, config)
	if err != nil {
		t.Fatalf("newCollect: %v", err)
	}
	if err := collect.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}

	for i, record := range buffer.appends {
		if record.terminal {
			t.Errorf("append %v: truncation stored as terminal", i)
		}
		if record.clipEpisode != (i%3 == 2) {
			t.Errorf("append %v: clipEpisode want %v, got %v", i, i%3 == 2,
				record.clipEpisode)
		}
	}
	if env.resets != 3 {
		t.Errorf("resets: want 3, got %v", env.resets)
	}
}

func TestNewCollectRequiresCollaborators(t *testing.T) {
	config := experiment.NewCollectConfig()
	algo := newMockAlgo(2, 1)
	env := &scriptedEnv{}
	buffer := newRecordingBuffer(t)

	if _, err := experiment.NewCollect(nil, env, buffer, nil,
		config); err == nil {
		t.Error("expected error for nil algorithm")
	}
	if _, err := experiment.NewCollect(algo, nil, buffer, nil,
		config); err == nil {
		t.Error("expected error for nil environment")
	}
	if _, err := experiment.NewCollect(algo, env, nil, nil,
		config); err == nil {
		t.Error("expected error for nil buffer")
	}

	bad := experiment.NewCollectConfig()
	bad.NSteps = 0
	if _, err := experiment.NewCollect(algo, env, buffer, nil,
		bad); err == nil {
		t.Error("expected error for a zero step budget")
	}
}
