package logger

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// Record is one committed metric value: the mean of all values added
// under Name since the previous commit.
type Record struct {
	Epoch     int
	TotalStep int
	Name      string
	Value     float64
}

// FileLogger is a Logger that buffers metrics in RAM between commits
// and persists the committed series to disk with gob encoding. Each
// FileLogger owns a run directory under which the metric series and
// model checkpoints are written.
type FileLogger struct {
	dir     string
	metrics map[string][]float64
	history []Record
	closed  bool
}

// NewFileLogger creates a run directory under rootDir and returns a
// FileLogger writing into it. If withTimestamp is true, a timestamp
// suffix keeps repeated runs of the same experiment separate.
func NewFileLogger(rootDir, experimentName string,
	withTimestamp bool) (*FileLogger, error) {
	name := experimentName
	if withTimestamp {
		name = fmt.Sprintf("%v_%v", name, time.Now().Format("20060102150405"))
	}

	dir := filepath.Join(rootDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "newFileLogger: could not create "+
			"run directory")
	}

	return &FileLogger{
		dir:     dir,
		metrics: make(map[string][]float64),
	}, nil
}

// Dir returns the run directory of the logger
func (f *FileLogger) Dir() string {
	return f.dir
}

// MeasureTime starts a named timing window and returns the function
// that closes it, recording the elapsed seconds as a metric
func (f *FileLogger) MeasureTime(name string) func() {
	start := time.Now()
	return func() {
		f.AddMetric(name+"_duration", time.Since(start).Seconds())
	}
}

// AddMetric buffers a single metric value until the next Commit
func (f *FileLogger) AddMetric(name string, value float64) {
	f.metrics[name] = append(f.metrics[name], value)
}

// Commit averages every buffered metric, appends the averages to the
// committed series, persists the series, and clears the buffer
func (f *FileLogger) Commit(epoch, totalStep int) error {
	for name, values := range f.metrics {
		f.history = append(f.history, Record{
			Epoch:     epoch,
			TotalStep: totalStep,
			Name:      name,
			Value:     stat.Mean(values, nil),
		})
	}
	f.metrics = make(map[string][]float64)

	return f.save()
}

// save writes the committed series to the run directory
func (f *FileLogger) save() error {
	file, err := os.Create(filepath.Join(f.dir, "metrics.bin"))
	if err != nil {
		return errors.Wrap(err, "save: could not open metrics file")
	}
	defer file.Close()

	en := gob.NewEncoder(file)
	if err := en.Encode(f.history); err != nil {
		return errors.Wrap(err, "save: could not encode metrics")
	}
	return nil
}

// SaveModel checkpoints the saver's parameters into the run directory
func (f *FileLogger) SaveModel(totalStep int, saver ModelSaver) error {
	if saver == nil {
		return errors.New("saveModel: no saver given")
	}
	path := filepath.Join(f.dir, fmt.Sprintf("model_%d.bin", totalStep))
	return saver.SaveModel(path)
}

// Close persists the committed series one final time and closes the
// logger. Metrics added since the last Commit are discarded. Close is
// idempotent.
func (f *FileLogger) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	return f.save()
}

// LoadMetrics loads and returns the committed metric series written by
// a FileLogger
func LoadMetrics(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "loadMetrics: could not open file")
	}
	defer file.Close()

	dec := gob.NewDecoder(file)
	var records []Record
	if err := dec.Decode(&records); err != nil {
		return nil, errors.Wrap(err, "loadMetrics: could not decode data")
	}
	return records, nil
}
