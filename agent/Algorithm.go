// Package agent defines the contract between training orchestrators
// and learning algorithms
package agent

import (
	"gonum.org/v1/gonum/mat"

	"github.com/personalrobotics/d3rlpy/environment"
	"github.com/personalrobotics/d3rlpy/expreplay"
	"github.com/personalrobotics/d3rlpy/logger"
	"github.com/personalrobotics/d3rlpy/preprocessing"
)

// Algorithm is the capability set an orchestrator needs from a
// trainable policy. Any concrete policy satisfying it is pluggable
// into the training and collection loops; the loops never look behind
// this interface.
//
// Observation batches are row matrices: one (possibly frame-stacked,
// flattened) observation per row. Action batches are row matrices in
// the normalized [-1, 1] action range.
type Algorithm interface {
	logger.ModelSaver

	// BuildWithEnv constructs the underlying implementation once the
	// observation and action shapes of env are known. Building is
	// one-time: calling BuildWithEnv on an already-built algorithm
	// must be a warning no-op, never a silent re-initialization of
	// trained parameters.
	BuildWithEnv(env environment.Environment) error

	// Predict returns greedy actions for a batch of observations
	Predict(observations *mat.Dense) (*mat.Dense, error)

	// SampleAction returns stochastic exploratory actions for a batch
	// of observations
	SampleAction(observations *mat.Dense) (*mat.Dense, error)

	// Update performs one parameter update on batch and returns the
	// resulting loss metrics. The demoBatch is nil unless
	// behavior-cloning is active, in which case it is the auxiliary
	// demonstration batch. The utd (update-to-data ratio) value is
	// forwarded for the algorithm's internal use; orchestrators call
	// Update exactly once per trigger regardless of utd.
	Update(batch, demoBatch *expreplay.MiniBatch,
		utd int) (map[string]float64, error)

	// SaveParams records the algorithm's hyperparameters with l
	SaveParams(l logger.Logger) error

	// SetActiveLogger hands the algorithm the logger of the current
	// run
	SetActiveLogger(l logger.Logger)

	ActionSize() int
	Scaler() preprocessing.Scaler
	ActionScaler() preprocessing.Scaler
	NFrames() int
	NSteps() int
	Gamma() float64
	BatchSize() int

	// Built returns whether BuildWithEnv has completed
	Built() bool

	// GradStep returns the monotonic count of Update calls performed
	GradStep() int
}
