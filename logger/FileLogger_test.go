package logger_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/personalrobotics/d3rlpy/logger"
)

func newTestLogger(t *testing.T) *logger.FileLogger {
	t.Helper()
	log, err := logger.NewFileLogger(t.TempDir(), "test_run", false)
	if err != nil {
		t.Fatalf("newFileLogger: %v", err)
	}
	return log
}

func findRecord(records []logger.Record, name string,
	epoch int) (logger.Record, bool) {
	for _, r := range records {
		if r.Name == name && r.Epoch == epoch {
			return r, true
		}
	}
	return logger.Record{}, false
}

func TestCommitAveragesBufferedMetrics(t *testing.T) {
	log := newTestLogger(t)

	log.AddMetric("loss", 1.0)
	log.AddMetric("loss", 3.0)
	if err := log.Commit(1, 100); err != nil {
		t.Fatalf("commit: %v", err)
	}

	log.AddMetric("loss", 10.0)
	if err := log.Commit(2, 200); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := log.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	records, err := logger.LoadMetrics(filepath.Join(log.Dir(), "metrics.bin"))
	if err != nil {
		t.Fatalf("loadMetrics: %v", err)
	}

	first, ok := findRecord(records, "loss", 1)
	if !ok {
		t.Fatal("no loss record for epoch 1")
	}
	if first.Value != 2.0 || first.TotalStep != 100 {
		t.Errorf("epoch 1 loss: want (2.0, 100), got (%v, %v)", first.Value,
			first.TotalStep)
	}

	// Values buffered after a commit never leak into the previous epoch
	second, ok := findRecord(records, "loss", 2)
	if !ok {
		t.Fatal("no loss record for epoch 2")
	}
	if second.Value != 10.0 {
		t.Errorf("epoch 2 loss: want 10.0, got %v", second.Value)
	}
}

func TestCloseDiscardsUncommittedMetrics(t *testing.T) {
	log := newTestLogger(t)

	log.AddMetric("loss", 1.0)
	if err := log.Commit(1, 10); err != nil {
		t.Fatalf("commit: %v", err)
	}
	log.AddMetric("loss", 99.0)
	if err := log.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := log.Close(); err != nil {
		t.Errorf("close: second close should be a no-op, got %v", err)
	}

	records, err := logger.LoadMetrics(filepath.Join(log.Dir(), "metrics.bin"))
	if err != nil {
		t.Fatalf("loadMetrics: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("records: want 1, got %v", len(records))
	}
}

func TestMeasureTimeRecordsDuration(t *testing.T) {
	log := newTestLogger(t)

	stop := log.MeasureTime("inference")
	time.Sleep(time.Millisecond)
	stop()
	if err := log.Commit(1, 1); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := log.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	records, err := logger.LoadMetrics(filepath.Join(log.Dir(), "metrics.bin"))
	if err != nil {
		t.Fatalf("loadMetrics: %v", err)
	}

	r, ok := findRecord(records, "inference_duration", 1)
	if !ok {
		t.Fatal("no inference_duration record")
	}
	if r.Value <= 0.0 {
		t.Errorf("duration: want positive, got %v", r.Value)
	}
}

type fileSaver struct{}

func (fileSaver) SaveModel(path string) error {
	return os.WriteFile(path, []byte("params"), 0o644)
}

func TestSaveModelWritesCheckpoint(t *testing.T) {
	log := newTestLogger(t)
	defer log.Close()

	if err := log.SaveModel(5000, fileSaver{}); err != nil {
		t.Fatalf("saveModel: %v", err)
	}
	if _, err := os.Stat(filepath.Join(log.Dir(), "model_5000.bin")); err != nil {
		t.Errorf("checkpoint file: %v", err)
	}

	if err := log.SaveModel(1, nil); err == nil {
		t.Error("saveModel: expected error for nil saver")
	}
}
