package checkpoints

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tkoren/go-multitask/tensor"
)

func newParams(t *testing.T) []*tensor.Tensor {
	t.Helper()
	weight, err := tensor.NewTensor([]int{2, 2}, tensor.Float32, []float32{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("Failed to create weight: %v", err)
	}
	bias, err := tensor.NewTensor([]int{2}, tensor.Float32, []float32{0.5, -0.5})
	if err != nil {
		t.Fatalf("Failed to create bias: %v", err)
	}
	return []*tensor.Tensor{weight, bias}
}

func TestSaverRoundTrip(t *testing.T) {
	params := newParams(t)
	weights, err := ExtractWeights(params)
	if err != nil {
		t.Fatalf("ExtractWeights failed: %v", err)
	}

	original := &Checkpoint{
		Weights: weights,
		TrainingState: TrainingState{
			Iteration:    500,
			LearningRate: 0.01,
		},
	}

	path := filepath.Join(t.TempDir(), "model500.ckpt")
	saver := NewSaver()
	if err := saver.SaveCheckpoint(original, path); err != nil {
		t.Fatalf("SaveCheckpoint failed: %v", err)
	}

	loaded, err := saver.LoadCheckpoint(path)
	if err != nil {
		t.Fatalf("LoadCheckpoint failed: %v", err)
	}

	if loaded.TrainingState.Iteration != 500 {
		t.Errorf("Expected iteration 500, got %d", loaded.TrainingState.Iteration)
	}
	if loaded.TrainingState.LearningRate != 0.01 {
		t.Errorf("Expected learning rate 0.01, got %v", loaded.TrainingState.LearningRate)
	}
	if len(loaded.Weights) != 2 {
		t.Fatalf("Expected 2 weight records, got %d", len(loaded.Weights))
	}
	if loaded.Weights[0].Data[3] != 4 {
		t.Errorf("Weight data corrupted: %v", loaded.Weights[0].Data)
	}

	// Defaults fill in when the caller leaves metadata empty.
	if loaded.Metadata.Framework == "" || loaded.Metadata.Version == "" {
		t.Errorf("Expected metadata defaults, got %+v", loaded.Metadata)
	}
}

func TestExtractAndLoadWeights(t *testing.T) {
	src := newParams(t)
	weights, err := ExtractWeights(src)
	if err != nil {
		t.Fatalf("ExtractWeights failed: %v", err)
	}

	// Extraction copies: mutating the parameter must not touch the record.
	data, _ := src[0].GetFloat32Data()
	data[0] = 99
	if weights[0].Data[0] != 1 {
		t.Errorf("Weight record aliases parameter data: %v", weights[0].Data)
	}

	dst := newParams(t)
	if err := LoadWeightsInto(weights, dst); err != nil {
		t.Fatalf("LoadWeightsInto failed: %v", err)
	}
	restored, _ := dst[0].GetFloat32Data()
	if restored[0] != 1 || restored[3] != 4 {
		t.Errorf("Expected restored weight data, got %v", restored)
	}

	t.Run("Count mismatch fails", func(t *testing.T) {
		if err := LoadWeightsInto(weights[:1], dst); err == nil {
			t.Error("Expected count mismatch error, got nil")
		}
	})

	t.Run("Shape mismatch fails", func(t *testing.T) {
		wrong, err := tensor.Zeros([]int{3, 2}, tensor.Float32)
		if err != nil {
			t.Fatalf("Zeros failed: %v", err)
		}
		other, err := tensor.Zeros([]int{2}, tensor.Float32)
		if err != nil {
			t.Fatalf("Zeros failed: %v", err)
		}
		if err := LoadWeightsInto(weights, []*tensor.Tensor{wrong, other}); err == nil {
			t.Error("Expected shape mismatch error, got nil")
		}
	})
}

func TestManagerLayout(t *testing.T) {
	dir := t.TempDir()
	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	if manager.RunID == "" {
		t.Error("Expected a run identity")
	}

	for _, sub := range []string{"models", "logs"} {
		info, err := os.Stat(filepath.Join(dir, sub))
		if err != nil || !info.IsDir() {
			t.Errorf("Expected %s directory under experiment dir: %v", sub, err)
		}
	}

	if got := manager.ModelPath(500); got != filepath.Join(dir, "models", "model500.ckpt") {
		t.Errorf("Unexpected model path: %s", got)
	}
	if got := manager.StatsPath(500); got != filepath.Join(dir, "logs", "stats_500.json") {
		t.Errorf("Unexpected stats path: %s", got)
	}
}

func TestManagerSaveAndRestore(t *testing.T) {
	manager, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	params := newParams(t)
	if err := manager.SaveModel(params, 100, 0.05); err != nil {
		t.Fatalf("SaveModel failed: %v", err)
	}

	loaded, err := manager.LoadModel(100)
	if err != nil {
		t.Fatalf("LoadModel failed: %v", err)
	}
	if loaded.TrainingState.Iteration != 100 || loaded.TrainingState.LearningRate != 0.05 {
		t.Errorf("Unexpected training state: %+v", loaded.TrainingState)
	}
	if loaded.Metadata.RunID != manager.RunID {
		t.Errorf("Expected checkpoint tagged with run %s, got %s", manager.RunID, loaded.Metadata.RunID)
	}

	// Drift the live parameters, then restore the snapshot over them.
	data, _ := params[0].GetFloat32Data()
	data[0] = -7
	if err := manager.RestoreModel(params, 100); err != nil {
		t.Fatalf("RestoreModel failed: %v", err)
	}
	data, _ = params[0].GetFloat32Data()
	if data[0] != 1 {
		t.Errorf("Expected restored value 1, got %v", data[0])
	}

	t.Run("Missing iteration fails", func(t *testing.T) {
		if _, err := manager.LoadModel(999); err == nil {
			t.Error("Expected error for missing snapshot, got nil")
		}
	})
}
