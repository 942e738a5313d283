package training

import (
	"github.com/pkg/errors"
)

// Config holds the driver's required cadence and output settings. Every
// interval field is in iterations. Validate runs before the loop touches the
// model, the optimizer, or the filesystem.
type Config struct {
	MaxIter   int    // exclusive upper bound on the iteration index
	TestIntv  int    // validation cadence (ignored without a validation source)
	TestIter  int    // forward-only iterations per validation run
	AvgsIntv  int    // statistics flush/print cadence
	ChkptIntv int    // checkpoint cadence
	ExptDir   string // base experiment directory

	// LastIter resumes a run: the loop starts here instead of zero.
	LastIter int

	// TaskWeights scales each task's contribution to the training objective.
	// Missing entries default to 1.0, reproducing an unweighted sum.
	TaskWeights map[string]float64

	// MaxFetchAttempts bounds the nonempty-mask rejection sampling.
	// Zero retries forever.
	MaxFetchAttempts int
}

// Validate checks that every required option is present and coherent.
func (c *Config) Validate() error {
	if c.MaxIter <= 0 {
		return errors.New("config: MaxIter must be positive")
	}
	if c.TestIntv <= 0 {
		return errors.New("config: TestIntv must be positive")
	}
	if c.TestIter <= 0 {
		return errors.New("config: TestIter must be positive")
	}
	if c.AvgsIntv <= 0 {
		return errors.New("config: AvgsIntv must be positive")
	}
	if c.ChkptIntv <= 0 {
		return errors.New("config: ChkptIntv must be positive")
	}
	if c.ExptDir == "" {
		return errors.New("config: ExptDir must be set")
	}
	if c.LastIter < 0 {
		return errors.New("config: LastIter cannot be negative")
	}
	if c.LastIter >= c.MaxIter {
		return errors.Errorf("config: LastIter %d must be below MaxIter %d", c.LastIter, c.MaxIter)
	}
	if c.MaxFetchAttempts < 0 {
		return errors.New("config: MaxFetchAttempts cannot be negative")
	}
	for task, w := range c.TaskWeights {
		if w < 0 {
			return errors.Errorf("config: negative weight %v for task %q", w, task)
		}
	}
	return nil
}
