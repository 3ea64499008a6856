// Package random implements a uniform random policy satisfying the
// agent.Algorithm interface. It learns nothing; it exists as the
// simplest pluggable policy for data collection and for exercising
// orchestration without a trainable model.
package random

import (
	"encoding/gob"
	"os"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/personalrobotics/d3rlpy/environment"
	"github.com/personalrobotics/d3rlpy/expreplay"
	"github.com/personalrobotics/d3rlpy/logger"
	"github.com/personalrobotics/d3rlpy/preprocessing"
)

// Config holds the properties a Random policy reports through the
// agent.Algorithm interface. Zero fields are replaced by defaults.
type Config struct {
	BatchSize int
	NFrames   int
	NSteps    int
	Gamma     float64
}

// Random implements agent.Algorithm with uniformly random actions in
// the normalized [-1, 1] range and a no-op update.
type Random struct {
	config     Config
	seed       uint64
	actionSize int
	built      bool
	gradStep   int
	dist       distuv.Uniform
	log        logger.Logger
}

// New creates a new Random policy
func New(config Config, seed uint64) *Random {
	if config.BatchSize == 0 {
		config.BatchSize = 32
	}
	if config.NFrames == 0 {
		config.NFrames = 1
	}
	if config.NSteps == 0 {
		config.NSteps = 1
	}
	if config.Gamma == 0 {
		config.Gamma = 0.99
	}

	source := rand.NewSource(seed)
	return &Random{
		config: config,
		seed:   seed,
		dist:   distuv.Uniform{Min: -1.0, Max: 1.0, Src: source},
	}
}

// BuildWithEnv reads the action size from env. Calling it a second
// time is a warning no-op.
func (r *Random) BuildWithEnv(env environment.Environment) error {
	if r.built {
		glog.Warning("Skip building models since they're already built.")
		return nil
	}
	if env == nil {
		return errors.New("buildWithEnv: no environment given")
	}

	r.actionSize = env.ActionSpec().Len()
	r.built = true
	return nil
}

// Predict returns the midpoint of the normalized action range for each
// row of observations. A uniform policy has no greedy preference.
func (r *Random) Predict(observations *mat.Dense) (*mat.Dense, error) {
	if !r.built {
		return nil, errors.New("predict: algorithm has not been built")
	}
	rows, _ := observations.Dims()
	return mat.NewDense(rows, r.actionSize, nil), nil
}

// SampleAction returns uniformly random normalized actions for each
// row of observations
func (r *Random) SampleAction(observations *mat.Dense) (*mat.Dense, error) {
	if !r.built {
		return nil, errors.New("sampleAction: algorithm has not been built")
	}
	rows, _ := observations.Dims()
	actions := mat.NewDense(rows, r.actionSize, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < r.actionSize; j++ {
			actions.Set(i, j, r.dist.Rand())
		}
	}
	return actions, nil
}

// Update is a no-op that records the gradient step
func (r *Random) Update(batch, demoBatch *expreplay.MiniBatch,
	utd int) (map[string]float64, error) {
	if !r.built {
		return nil, errors.New("update: algorithm has not been built")
	}
	r.gradStep++
	return map[string]float64{}, nil
}

// SaveParams records the policy configuration
func (r *Random) SaveParams(l logger.Logger) error {
	glog.V(1).Infof("random policy: actionSize=%d batchSize=%d gamma=%v",
		r.actionSize, r.config.BatchSize, r.config.Gamma)
	return nil
}

// SaveModel serializes the policy to path
func (r *Random) SaveModel(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "saveModel: could not open file")
	}
	defer file.Close()

	en := gob.NewEncoder(file)
	params := struct {
		ActionSize int
		Seed       uint64
	}{r.actionSize, r.seed}
	if err := en.Encode(params); err != nil {
		return errors.Wrap(err, "saveModel: could not encode policy")
	}
	return nil
}

// SetActiveLogger hands the policy the logger of the current run
func (r *Random) SetActiveLogger(l logger.Logger) {
	r.log = l
}

func (r *Random) ActionSize() int                    { return r.actionSize }
func (r *Random) Scaler() preprocessing.Scaler       { return nil }
func (r *Random) ActionScaler() preprocessing.Scaler { return nil }
func (r *Random) NFrames() int                       { return r.config.NFrames }
func (r *Random) NSteps() int                        { return r.config.NSteps }
func (r *Random) Gamma() float64                     { return r.config.Gamma }
func (r *Random) BatchSize() int                     { return r.config.BatchSize }
func (r *Random) Built() bool                        { return r.built }
func (r *Random) GradStep() int                      { return r.gradStep }
