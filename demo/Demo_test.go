package demo_test

import (
	"math"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/personalrobotics/d3rlpy/demo"
	"github.com/personalrobotics/d3rlpy/environment"
	"github.com/personalrobotics/d3rlpy/expreplay"
)

// twoEpisodeDataset builds a 2-episode, 3-step-each demonstration set
func twoEpisodeDataset() []demo.Episode {
	episodes := make([]demo.Episode, 2)
	for e := range episodes {
		episodes[e] = demo.Episode{
			Obs:  [][]float64{{0, 0}, {1, 1}, {2, 2}},
			Act:  [][]float64{{-2.0}, {0.0}, {2.0}},
			Rew:  []float64{1, 2, 3},
			Done: []bool{false, false, true},
		}
	}
	return episodes
}

func actionSpace() environment.Spec {
	return environment.NewSpec(
		[]int{1},
		mat.NewVecDense(1, []float64{-2.0}),
		mat.NewVecDense(1, []float64{2.0}),
		environment.Continuous,
	)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demos.bin")
	if err := demo.Save(path, twoEpisodeDataset()); err != nil {
		t.Fatalf("save: %v", err)
	}

	episodes, err := demo.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(episodes) != 2 {
		t.Fatalf("load: episode count want 2, got %v", len(episodes))
	}
	if episodes[0].Rew[2] != 3 {
		t.Errorf("load: reward want 3, got %v", episodes[0].Rew[2])
	}
	if !episodes[1].Done[2] {
		t.Error("load: final step should be done")
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := demo.Load(filepath.Join(t.TempDir(), "missing.bin")); err == nil {
		t.Error("load: expected error for missing file")
	}
}

func TestLoadRejectsMisalignedEpisode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.bin")
	bad := []demo.Episode{{
		Obs:  [][]float64{{0}, {1}},
		Act:  [][]float64{{0}},
		Rew:  []float64{1, 2},
		Done: []bool{false, true},
	}}
	if err := demo.Save(path, bad); err != nil {
		t.Fatalf("save: %v", err)
	}

	if _, err := demo.Load(path); err == nil {
		t.Error("load: expected error for misaligned episode fields")
	}
}

func TestMergeIntoRescalesActions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demos.bin")
	if err := demo.Save(path, twoEpisodeDataset()); err != nil {
		t.Fatalf("save: %v", err)
	}

	blender, err := demo.NewBlender(path)
	if err != nil {
		t.Fatalf("newBlender: %v", err)
	}
	if blender.NumTransitions() != 6 {
		t.Errorf("numTransitions: want 6, got %v", blender.NumTransitions())
	}

	buffer, err := expreplay.New(100, 1)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := blender.MergeInto(buffer, actionSpace()); err != nil {
		t.Fatalf("mergeInto: %v", err)
	}
	if buffer.Len() != 6 {
		t.Errorf("mergeInto: buffer length want 6, got %v", buffer.Len())
	}

	// Recorded actions span the full native range, so normalized
	// actions span [-1, 1]
	windows, err := buffer.SampleTransitions(32, 1, 1, 0.99)
	if err != nil {
		t.Fatalf("sampleTransitions: %v", err)
	}
	for _, w := range windows {
		a := w.Action.AtVec(0)
		if a < -1.0 || a > 1.0 {
			t.Errorf("mergeInto: action %v outside normalized range", a)
		}
		// The middle step's native action 0.0 maps to normalized 0.0
		if w.Return == 2.0 && math.Abs(a) > 1e-6 {
			t.Errorf("mergeInto: middle action want 0.0, got %v", a)
		}
	}
}
