package checkpoints

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/tkoren/go-multitask/tensor"
)

const (
	modelsDir = "models"
	logsDir   = "logs"
)

// Manager lays out an experiment directory and writes iteration-tagged
// artifacts into it: model snapshots under models/, statistics under logs/.
// The two writes are independent; there is no cross-artifact transaction.
type Manager struct {
	BaseDir string
	RunID   string

	saver *Saver
}

// NewManager creates the experiment directory layout under baseDir and
// assigns the run a fresh identity.
func NewManager(baseDir string) (*Manager, error) {
	for _, sub := range []string{modelsDir, logsDir} {
		if err := os.MkdirAll(filepath.Join(baseDir, sub), 0o755); err != nil {
			return nil, errors.Wrapf(err, "failed to create %s directory", sub)
		}
	}
	return &Manager{
		BaseDir: baseDir,
		RunID:   uuid.NewString(),
		saver:   NewSaver(),
	}, nil
}

// ModelPath returns the model artifact path for an iteration.
func (m *Manager) ModelPath(iteration int) string {
	return filepath.Join(m.BaseDir, modelsDir, fmt.Sprintf("model%d.ckpt", iteration))
}

// StatsPath returns the statistics artifact path for an iteration.
func (m *Manager) StatsPath(iteration int) string {
	return filepath.Join(m.BaseDir, logsDir, fmt.Sprintf("stats_%d.json", iteration))
}

// SaveModel writes a complete parameter snapshot named by iteration.
func (m *Manager) SaveModel(params []*tensor.Tensor, iteration int, learningRate float64) error {
	weights, err := ExtractWeights(params)
	if err != nil {
		return err
	}

	checkpoint := &Checkpoint{
		Weights: weights,
		TrainingState: TrainingState{
			Iteration:    iteration,
			LearningRate: learningRate,
		},
		Metadata: Metadata{
			RunID: m.RunID,
		},
	}

	return m.saver.SaveCheckpoint(checkpoint, m.ModelPath(iteration))
}

// LoadModel reads the model snapshot tagged with iteration.
func (m *Manager) LoadModel(iteration int) (*Checkpoint, error) {
	return m.saver.LoadCheckpoint(m.ModelPath(iteration))
}

// RestoreModel loads the snapshot for an iteration directly into the given
// parameter tensors.
func (m *Manager) RestoreModel(params []*tensor.Tensor, iteration int) error {
	checkpoint, err := m.LoadModel(iteration)
	if err != nil {
		return err
	}
	return LoadWeightsInto(checkpoint.Weights, params)
}
