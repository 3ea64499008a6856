// Package logger implements metric logging and model checkpointing for
// training runs
package logger

// ModelSaver is an object that can serialize its model parameters to a
// file
type ModelSaver interface {
	SaveModel(path string) error
}

// Logger records training metrics and checkpoints models. Metrics are
// buffered with AddMetric and flushed by Commit at epoch boundaries.
// MeasureTime returns a stop function so that a timing window is
// guaranteed to be recorded on every exit path:
//
//	defer l.MeasureTime("step")()
type Logger interface {
	MeasureTime(name string) func()
	AddMetric(name string, value float64)
	Commit(epoch, totalStep int) error
	SaveModel(totalStep int, saver ModelSaver) error
	Close() error
}

// NoOp is a Logger that discards everything, for runs with nothing
// worth recording.
type NoOp struct{}

func (NoOp) MeasureTime(string) func()        { return func() {} }
func (NoOp) AddMetric(string, float64)        {}
func (NoOp) Commit(int, int) error            { return nil }
func (NoOp) SaveModel(int, ModelSaver) error  { return nil }
func (NoOp) Close() error                     { return nil }
