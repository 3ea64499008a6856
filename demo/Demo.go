// Package demo implements loading of offline demonstration datasets
// and blending them into experience replay buffers
package demo

import (
	"encoding/gob"
	"os"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/personalrobotics/d3rlpy/environment"
	"github.com/personalrobotics/d3rlpy/expreplay"
	"github.com/personalrobotics/d3rlpy/preprocessing"
)

// Episode is one recorded demonstration trajectory. The Obs, Act, Rew,
// and Done fields are parallel arrays aligned by step index. Done
// marks true termination; demonstrations carry no truncation
// information.
type Episode struct {
	Obs  [][]float64
	Act  [][]float64
	Rew  []float64
	Done []bool
}

// validate checks that the per-step fields of e are index-aligned
func (e Episode) validate() error {
	n := len(e.Obs)
	if len(e.Act) != n || len(e.Rew) != n || len(e.Done) != n {
		return errors.Errorf("episode fields are not aligned: "+
			"obs=%d act=%d rew=%d done=%d", n, len(e.Act), len(e.Rew),
			len(e.Done))
	}
	return nil
}

// Save writes a demonstration dataset to path
func Save(path string, episodes []Episode) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "save: could not create demo file")
	}
	defer file.Close()

	en := gob.NewEncoder(file)
	if err := en.Encode(episodes); err != nil {
		return errors.Wrap(err, "save: could not encode demos")
	}
	return nil
}

// Load reads a demonstration dataset from path. Any failure is fatal
// to the caller's setup; there is no partial load.
func Load(path string) ([]Episode, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "load: could not open demo file")
	}
	defer file.Close()

	dec := gob.NewDecoder(file)
	var episodes []Episode
	if err := dec.Decode(&episodes); err != nil {
		return nil, errors.Wrap(err, "load: could not decode demos")
	}

	for i, e := range episodes {
		if err := e.validate(); err != nil {
			return nil, errors.Wrapf(err, "load: episode %d", i)
		}
	}
	return episodes, nil
}

// Blender seeds experience buffers from a demonstration dataset,
// rescaling recorded actions into the normalized range exactly as the
// live policy's actions are.
type Blender struct {
	episodes []Episode
}

// NewBlender loads the demonstration dataset at path
func NewBlender(path string) (*Blender, error) {
	episodes, err := Load(path)
	if err != nil {
		return nil, errors.Wrap(err, "newBlender")
	}
	return &Blender{episodes: episodes}, nil
}

// NumTransitions returns the total number of demonstration transitions
func (b *Blender) NumTransitions() int {
	n := 0
	for _, e := range b.episodes {
		n += len(e.Obs)
	}
	return n
}

// MergeInto appends every demonstration transition to buffer. Recorded
// actions are rescaled from actionSpace into [-1, 1]; the recorded
// done flag sets both terminal and clipEpisode, since demonstrations
// record true terminations only.
func (b *Blender) MergeInto(buffer expreplay.Buffer,
	actionSpace environment.Spec) error {
	if buffer == nil {
		return errors.New("mergeInto: no buffer given")
	}

	for i, e := range b.episodes {
		for j := range e.Obs {
			obs := mat.NewVecDense(len(e.Obs[j]), e.Obs[j])
			act := mat.NewVecDense(len(e.Act[j]), e.Act[j])
			scaled := preprocessing.Scale(actionSpace, act)

			// Demonstrations record no observation past an episode's
			// final step; it is terminal, so samples mask it anyway.
			var next mat.Vector
			if j+1 < len(e.Obs) {
				next = mat.NewVecDense(len(e.Obs[j+1]), e.Obs[j+1])
			} else {
				next = mat.NewVecDense(len(e.Obs[j]), nil)
			}

			err := buffer.Append(obs, scaled, e.Rew[j], next, e.Done[j],
				e.Done[j])
			if err != nil {
				return errors.Wrapf(err, "mergeInto: episode %d step %d",
					i, j)
			}
		}
	}
	return nil
}
