package expreplay

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// MiniBatch is a sampled set of transition windows assembled into
// batch matrices, with precomputed n-step returns and per-row discount
// factors gamma^n. Observation rows are frame-stacked to NFrames
// depth. Orchestrators treat a MiniBatch opaquely and hand it to an
// algorithm's Update.
type MiniBatch struct {
	Observations     *mat.Dense
	Actions          *mat.Dense
	Returns          *mat.VecDense
	NextObservations *mat.Dense
	Terminals        *mat.VecDense
	Discounts        *mat.VecDense

	NFrames int
	NSteps  int
	Gamma   float64
}

// Size returns the number of rows in the batch
func (m *MiniBatch) Size() int {
	rows, _ := m.Observations.Dims()
	return rows
}

// ToMiniBatch assembles raw transition windows into a MiniBatch. The
// windows may come from different buffers, which is how online and
// demonstration transitions are mixed into one training batch.
func (r *ReplayBuffer) ToMiniBatch(windows []Window, nFrames, nSteps int,
	gamma float64) (*MiniBatch, error) {
	if len(windows) == 0 {
		return nil, errors.New("toMiniBatch: no windows given")
	}

	batchSize := len(windows)
	obsSize := windows[0].Observation.Len()
	actionSize := windows[0].Action.Len()

	batch := &MiniBatch{
		Observations:     mat.NewDense(batchSize, obsSize, nil),
		Actions:          mat.NewDense(batchSize, actionSize, nil),
		Returns:          mat.NewVecDense(batchSize, nil),
		NextObservations: mat.NewDense(batchSize, obsSize, nil),
		Terminals:        mat.NewVecDense(batchSize, nil),
		Discounts:        mat.NewVecDense(batchSize, nil),
		NFrames:          nFrames,
		NSteps:           nSteps,
		Gamma:            gamma,
	}

	for i, w := range windows {
		if w.Observation.Len() != obsSize {
			return nil, errors.Errorf("toMiniBatch: invalid observation "+
				"size \n\twant(%v)\n\thave(%v)", obsSize, w.Observation.Len())
		}
		if w.Action.Len() != actionSize {
			return nil, errors.Errorf("toMiniBatch: invalid action "+
				"size \n\twant(%v)\n\thave(%v)", actionSize, w.Action.Len())
		}

		batch.Observations.SetRow(i, w.Observation.RawVector().Data)
		batch.NextObservations.SetRow(i, w.NextObservation.RawVector().Data)
		for j := 0; j < actionSize; j++ {
			batch.Actions.Set(i, j, w.Action.AtVec(j))
		}
		batch.Returns.SetVec(i, w.Return)
		if w.Terminal {
			batch.Terminals.SetVec(i, 1.0)
		}
		batch.Discounts.SetVec(i, w.Discount)
	}
	return batch, nil
}
