package preprocessing

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gorgonia.org/tensor"
)

// StackedObservation maintains a rolling window of the most recent
// nFrames image-shaped observations. Frames are flattened vectors of
// an underlying (channels, height, width) image. Eval returns the
// window channel-concatenated into a single tensor, with missing
// leading frames zero-filled so that the output shape is constant.
//
// The window must be cleared exactly once at every episode boundary,
// before the first Append of the next episode.
type StackedObservation struct {
	channels int
	height   int
	width    int
	nFrames  int
	frames   []mat.Vector
}

// NewStackedObservation creates a stacker for observations with the
// given 3-dimensional image shape
func NewStackedObservation(shape []int, nFrames int) (*StackedObservation,
	error) {
	if len(shape) != 3 {
		return nil, errors.Errorf("newStackedObservation: image "+
			"observations must have 3 dimensions, got %d", len(shape))
	}
	if nFrames < 1 {
		return nil, errors.Errorf("newStackedObservation: nFrames must "+
			"be positive, got %d", nFrames)
	}

	return &StackedObservation{
		channels: shape[0],
		height:   shape[1],
		width:    shape[2],
		nFrames:  nFrames,
		frames:   make([]mat.Vector, 0, nFrames),
	}, nil
}

// Append pushes a new frame into the window, evicting the oldest frame
// if the window is full
func (s *StackedObservation) Append(frame mat.Vector) {
	if len(s.frames) == s.nFrames {
		copy(s.frames, s.frames[1:])
		s.frames = s.frames[:s.nFrames-1]
	}
	s.frames = append(s.frames, frame)
}

// Len returns the number of frames currently in the window
func (s *StackedObservation) Len() int {
	return len(s.frames)
}

// Eval returns the current window as a single channel-concatenated
// tensor of shape (channels*nFrames, height, width). The oldest frame
// occupies the leading channels; positions for frames not yet seen are
// zero.
func (s *StackedObservation) Eval() *tensor.Dense {
	frameSize := s.channels * s.height * s.width
	data := make([]float64, frameSize*s.nFrames)

	pad := s.nFrames - len(s.frames)
	for i, frame := range s.frames {
		offset := (pad + i) * frameSize
		for j := 0; j < frameSize; j++ {
			data[offset+j] = frame.AtVec(j)
		}
	}

	return tensor.New(
		tensor.WithShape(s.channels*s.nFrames, s.height, s.width),
		tensor.WithBacking(data),
	)
}

// Clear empties the window
func (s *StackedObservation) Clear() {
	s.frames = s.frames[:0]
}
