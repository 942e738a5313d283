// Package checkpoints persists iteration-tagged model snapshots for the
// training driver. A checkpoint pairs the model's parameter tensors with
// training state and run metadata in a single JSON artifact; the matching
// statistics artifact is written separately by the learning monitor.
package checkpoints

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/tkoren/go-multitask/tensor"
)

// Checkpoint is a complete model snapshot plus training metadata.
type Checkpoint struct {
	Weights       []WeightTensor `json:"weights"`
	TrainingState TrainingState  `json:"training_state"`
	Metadata      Metadata       `json:"metadata"`
}

// WeightTensor is one parameter tensor with its data.
type WeightTensor struct {
	Name  string    `json:"name"`
	Shape []int     `json:"shape"`
	Data  []float32 `json:"data"`
}

// TrainingState captures where in the run the snapshot was taken.
type TrainingState struct {
	Iteration    int     `json:"iteration"`
	LearningRate float64 `json:"learning_rate"`
}

// Metadata identifies the producing run.
type Metadata struct {
	RunID     string    `json:"run_id"`
	Framework string    `json:"framework"`
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
}

// Saver handles reading and writing checkpoint artifacts.
type Saver struct{}

// NewSaver creates a checkpoint saver.
func NewSaver() *Saver {
	return &Saver{}
}

// SaveCheckpoint writes a checkpoint to path as indented JSON.
func (s *Saver) SaveCheckpoint(checkpoint *Checkpoint, path string) error {
	if checkpoint.Metadata.Framework == "" {
		checkpoint.Metadata.Framework = "go-multitask"
		checkpoint.Metadata.Version = "1.0.0"
		checkpoint.Metadata.CreatedAt = time.Now()
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create checkpoint file")
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(checkpoint); err != nil {
		return errors.Wrap(err, "failed to encode checkpoint")
	}
	return nil
}

// LoadCheckpoint reads a checkpoint from path.
func (s *Saver) LoadCheckpoint(path string) (*Checkpoint, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open checkpoint file")
	}
	defer file.Close()

	var checkpoint Checkpoint
	if err := json.NewDecoder(file).Decode(&checkpoint); err != nil {
		return nil, errors.Wrap(err, "failed to decode checkpoint")
	}
	return &checkpoint, nil
}

// ExtractWeights copies parameter tensors into serializable weight records.
// Parameters are unnamed at the model boundary, so names are positional.
func ExtractWeights(params []*tensor.Tensor) ([]WeightTensor, error) {
	weights := make([]WeightTensor, 0, len(params))
	for i, param := range params {
		data, err := param.GetFloat32Data()
		if err != nil {
			return nil, fmt.Errorf("failed to extract data for parameter %d: %v", i, err)
		}
		weights = append(weights, WeightTensor{
			Name:  fmt.Sprintf("param_%d", i),
			Shape: append([]int(nil), param.Shape...),
			Data:  append([]float32(nil), data...),
		})
	}
	return weights, nil
}

// LoadWeightsInto copies saved weights back into parameter tensors in order,
// verifying counts and shapes.
func LoadWeightsInto(weights []WeightTensor, params []*tensor.Tensor) error {
	if len(weights) != len(params) {
		return fmt.Errorf("weight count mismatch: %d weights, %d parameters", len(weights), len(params))
	}

	for i, param := range params {
		weight := weights[i]
		if len(param.Shape) != len(weight.Shape) {
			return fmt.Errorf("shape mismatch for %s: parameter %v vs weight %v", weight.Name, param.Shape, weight.Shape)
		}
		for j, dim := range param.Shape {
			if dim != weight.Shape[j] {
				return fmt.Errorf("dimension mismatch for %s at index %d: parameter %d vs weight %d",
					weight.Name, j, dim, weight.Shape[j])
			}
		}

		data, err := param.GetFloat32Data()
		if err != nil {
			return fmt.Errorf("failed to access parameter %d: %v", i, err)
		}
		if len(weight.Data) != len(data) {
			return fmt.Errorf("data length mismatch for %s: %d vs %d", weight.Name, len(weight.Data), len(data))
		}
		copy(data, weight.Data)
	}
	return nil
}
