// Package explorer implements exploration strategies that wrap a
// learning algorithm's action selection
package explorer

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/personalrobotics/d3rlpy/agent"
	"github.com/personalrobotics/d3rlpy/utils/floatutils"
)

// Explorer maps a policy, a batch of observations, and the current
// total step index to a batch of normalized actions. Orchestrators
// never inspect the strategy behind this one operation.
type Explorer interface {
	Sample(algo agent.Algorithm, observations *mat.Dense,
		totalStep int) (*mat.Dense, error)
}

// ConstantEpsilonGreedy selects a uniformly random normalized action
// with probability epsilon and the greedy action otherwise.
type ConstantEpsilonGreedy struct {
	epsilon float64
	uniform distuv.Uniform
	action  distuv.Uniform
}

// NewConstantEpsilonGreedy creates an epsilon-greedy explorer with a
// fixed epsilon
func NewConstantEpsilonGreedy(epsilon float64,
	seed uint64) (*ConstantEpsilonGreedy, error) {
	if epsilon < 0 || epsilon > 1 {
		return nil, errors.Errorf("newConstantEpsilonGreedy: epsilon "+
			"must be in [0, 1], got %v", epsilon)
	}

	source := rand.NewSource(seed)
	return &ConstantEpsilonGreedy{
		epsilon: epsilon,
		uniform: distuv.Uniform{Min: 0.0, Max: 1.0, Src: source},
		action:  distuv.Uniform{Min: -1.0, Max: 1.0, Src: source},
	}, nil
}

// Sample implements the Explorer interface
func (c *ConstantEpsilonGreedy) Sample(algo agent.Algorithm,
	observations *mat.Dense, totalStep int) (*mat.Dense, error) {
	return epsilonGreedy(algo, observations, c.epsilon, &c.uniform, &c.action)
}

// LinearDecayEpsilonGreedy anneals epsilon linearly from a starting to
// a final value over a fixed number of steps, then holds it constant.
type LinearDecayEpsilonGreedy struct {
	startEpsilon float64
	endEpsilon   float64
	duration     int
	uniform      distuv.Uniform
	action       distuv.Uniform
}

// NewLinearDecayEpsilonGreedy creates an epsilon-greedy explorer whose
// epsilon decays from startEpsilon to endEpsilon over duration steps
func NewLinearDecayEpsilonGreedy(startEpsilon, endEpsilon float64,
	duration int, seed uint64) (*LinearDecayEpsilonGreedy, error) {
	if duration < 1 {
		return nil, errors.Errorf("newLinearDecayEpsilonGreedy: duration "+
			"must be positive, got %d", duration)
	}
	if startEpsilon < 0 || startEpsilon > 1 || endEpsilon < 0 ||
		endEpsilon > 1 {
		return nil, errors.New("newLinearDecayEpsilonGreedy: epsilon " +
			"values must be in [0, 1]")
	}

	source := rand.NewSource(seed)
	return &LinearDecayEpsilonGreedy{
		startEpsilon: startEpsilon,
		endEpsilon:   endEpsilon,
		duration:     duration,
		uniform:      distuv.Uniform{Min: 0.0, Max: 1.0, Src: source},
		action:       distuv.Uniform{Min: -1.0, Max: 1.0, Src: source},
	}, nil
}

// Epsilon returns the annealed epsilon at the given total step
func (l *LinearDecayEpsilonGreedy) Epsilon(totalStep int) float64 {
	if totalStep >= l.duration {
		return l.endEpsilon
	}
	progress := float64(totalStep) / float64(l.duration)
	return l.startEpsilon + (l.endEpsilon-l.startEpsilon)*progress
}

// Sample implements the Explorer interface
func (l *LinearDecayEpsilonGreedy) Sample(algo agent.Algorithm,
	observations *mat.Dense, totalStep int) (*mat.Dense, error) {
	return epsilonGreedy(algo, observations, l.Epsilon(totalStep),
		&l.uniform, &l.action)
}

// epsilonGreedy replaces each greedy action row with a random one with
// probability epsilon
func epsilonGreedy(algo agent.Algorithm, observations *mat.Dense,
	epsilon float64, uniform, action *distuv.Uniform) (*mat.Dense, error) {
	actions, err := algo.Predict(observations)
	if err != nil {
		return nil, errors.Wrap(err, "sample: could not predict")
	}

	rows, cols := actions.Dims()
	for i := 0; i < rows; i++ {
		if uniform.Rand() < epsilon {
			for j := 0; j < cols; j++ {
				actions.Set(i, j, action.Rand())
			}
		}
	}
	return actions, nil
}

// NormalNoise perturbs the policy's stochastic actions with additive
// Gaussian noise, clipping the result back to the normalized range.
type NormalNoise struct {
	dist distuv.Normal
}

// NewNormalNoise creates a noise-injection explorer with the given
// noise distribution parameters
func NewNormalNoise(mean, std float64, seed uint64) (*NormalNoise, error) {
	if std < 0 {
		return nil, errors.Errorf("newNormalNoise: std must be "+
			"non-negative, got %v", std)
	}

	source := rand.NewSource(seed)
	return &NormalNoise{
		dist: distuv.Normal{Mu: mean, Sigma: std, Src: source},
	}, nil
}

// Sample implements the Explorer interface
func (n *NormalNoise) Sample(algo agent.Algorithm, observations *mat.Dense,
	totalStep int) (*mat.Dense, error) {
	actions, err := algo.SampleAction(observations)
	if err != nil {
		return nil, errors.Wrap(err, "sample: could not sample actions")
	}

	rows, cols := actions.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			noisy := actions.At(i, j) + n.dist.Rand()
			actions.Set(i, j, floatutils.Clip(noisy, -1.0, 1.0))
		}
	}
	return actions, nil
}
