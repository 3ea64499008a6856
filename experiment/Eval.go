package experiment

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/personalrobotics/d3rlpy/agent"
	"github.com/personalrobotics/d3rlpy/environment"
	"github.com/personalrobotics/d3rlpy/preprocessing"
)

// Evaluate runs a single evaluation episode on env, selecting greedy
// actions except for an epsilon-probability random action, and returns
// the episode's return. The episode ends on termination or time-limit
// truncation.
func Evaluate(algo agent.Algorithm, env environment.Environment,
	epsilon float64, seed uint64) (float64, error) {
	if algo == nil {
		return 0, errors.New("evaluate: no algorithm given")
	}
	if env == nil {
		return 0, errors.New("evaluate: no environment given")
	}

	source := rand.NewSource(seed)
	uniform := distuv.Uniform{Min: 0.0, Max: 1.0, Src: source}
	actionSampler := environment.NewUniformActionSampler(env.ActionSpec(),
		seed+1)

	stacker, err := newStacker(env, algo.NFrames())
	if err != nil {
		return 0, errors.Wrap(err, "evaluate")
	}

	observation, err := env.Reset()
	if err != nil {
		return 0, errors.Wrap(err, "evaluate: could not reset environment")
	}

	episodeReturn := 0.0
	for {
		fed := observation
		if stacker != nil {
			stacker.Append(observation)
			data := stacker.Eval().Data().([]float64)
			fed = mat.NewVecDense(len(data), data)
		}

		var unscaled mat.Vector
		if epsilon > 0 && uniform.Rand() < epsilon {
			unscaled = actionSampler.Sample()
		} else {
			actions, err := algo.Predict(rowMatrix(fed))
			if err != nil {
				return 0, errors.Wrap(err, "evaluate: could not predict")
			}
			unscaled = preprocessing.Unscale(env.ActionSpec(),
				firstRow(actions))
		}

		next, reward, terminal, info, err := env.Step(unscaled)
		if err != nil {
			return 0, errors.Wrap(err, "evaluate: environment step failed")
		}
		episodeReturn += reward

		if terminal || info.Truncated() {
			break
		}
		observation = next
	}
	return episodeReturn, nil
}
