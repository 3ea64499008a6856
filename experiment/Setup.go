// Package experiment implements the orchestration loops that drive
// online reinforcement learning: training with update, evaluation, and
// checkpoint cadence, and pure data collection.
package experiment

import (
	"github.com/golang/glog"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/personalrobotics/d3rlpy/agent"
	"github.com/personalrobotics/d3rlpy/environment"
	"github.com/personalrobotics/d3rlpy/preprocessing"
)

// setupAlgo fits any configured preprocessing scalers against the
// environment and builds the algorithm implementation. Both operations
// are skipped when already done, so that a pre-fit scaler or an
// already-built algorithm is never silently re-initialized.
func setupAlgo(algo agent.Algorithm, env environment.Environment) error {
	if s := algo.Scaler(); s != nil && !s.Fitted() {
		glog.V(1).Infof("Fitting scaler: %v", s.Type())
		if err := s.FitWithEnv(env); err != nil {
			return errors.Wrap(err, "setupAlgo: could not fit scaler")
		}
	}

	if s := algo.ActionScaler(); s != nil && !s.Fitted() {
		glog.V(1).Infof("Fitting action scaler: %v", s.Type())
		if err := s.FitWithEnv(env); err != nil {
			return errors.Wrap(err, "setupAlgo: could not fit action scaler")
		}
	}

	if !algo.Built() {
		glog.V(1).Info("Building model...")
		if err := algo.BuildWithEnv(env); err != nil {
			return errors.Wrap(err, "setupAlgo: could not build model")
		}
		glog.V(1).Info("Model has been built.")
	} else {
		glog.Warning("Skip building models since they're already built.")
	}
	return nil
}

// newStacker returns a frame stacker for env if its observations are
// image-shaped, and nil otherwise
func newStacker(env environment.Environment,
	nFrames int) (*preprocessing.StackedObservation, error) {
	shape := env.ObservationSpec().Shape
	if len(shape) != 3 {
		return nil, nil
	}
	return preprocessing.NewStackedObservation(shape, nFrames)
}

// rowMatrix copies a single observation into a 1-row batch matrix
func rowMatrix(v mat.Vector) *mat.Dense {
	row := make([]float64, v.Len())
	for i := range row {
		row[i] = v.AtVec(i)
	}
	return mat.NewDense(1, len(row), row)
}

// firstRow extracts row 0 of a batch matrix as a vector
func firstRow(m *mat.Dense) *mat.VecDense {
	_, cols := m.Dims()
	return mat.NewVecDense(cols, mat.Row(nil, 0, m))
}
