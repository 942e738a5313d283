package training

import (
	"fmt"
	"time"

	"github.com/tkoren/go-multitask/checkpoints"
	"github.com/tkoren/go-multitask/sample"
)

// Trainer orchestrates the iterative optimization loop: fetch a sample with
// nonempty masks, forward the model, evaluate per-task losses, apply one
// optimizer step, and feed the learning monitor — interleaving validation,
// statistics flushes, and checkpoints on their configured cadences.
type Trainer struct {
	model      Model
	lossFn     Loss
	optimizer  Optimizer
	sampler    sample.Source
	valSampler sample.Source // nil disables validation
	spec       *sample.Spec
	config     Config

	monitor *LearningMonitor
	fetcher *sample.Fetcher
	ckpts   *checkpoints.Manager
}

// NewTrainer validates the configuration and prepares the experiment
// directory. Configuration errors surface here, before any training side
// effect.
func NewTrainer(model Model, lossFn Loss, optimizer Optimizer, sampler, valSampler sample.Source, spec *sample.Spec, config Config) (*Trainer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	manager, err := checkpoints.NewManager(config.ExptDir)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare experiment directory: %v", err)
	}

	return &Trainer{
		model:      model,
		lossFn:     lossFn,
		optimizer:  optimizer,
		sampler:    sampler,
		valSampler: valSampler,
		spec:       spec,
		config:     config,
		monitor:    NewLearningMonitor(),
		fetcher:    &sample.Fetcher{MaxAttempts: config.MaxFetchAttempts},
		ckpts:      manager,
	}, nil
}

// Monitor exposes the trainer's statistics accumulator.
func (t *Trainer) Monitor() *LearningMonitor {
	return t.monitor
}

// SetMonitor replaces the monitor, typically with one reconstructed from a
// saved stats artifact when resuming at Config.LastIter.
func (t *Trainer) SetMonitor(monitor *LearningMonitor) {
	t.monitor = monitor
}

// Checkpoints exposes the checkpoint manager, e.g. to load a model snapshot
// before resuming.
func (t *Trainer) Checkpoints() *checkpoints.Manager {
	return t.ckpts
}

// Train runs the loop from Config.LastIter up to (excluding) Config.MaxIter.
//
// Cadence guards: validation fires whenever i is a multiple of TestIntv,
// including at the starting iteration; averages flushes and checkpoints skip
// the starting iteration so a resumed run does not immediately flush an empty
// window or rewrite the checkpoint it resumed from.
func (t *Trainer) Train() error {
	maskNames := t.spec.Masks()
	lastIter := t.config.LastIter

	fmt.Println("======= BEGIN TRAINING LOOP ========")
	start := time.Now()

	for i := lastIter; i < t.config.MaxIter; i++ {
		sm, err := t.fetcher.Fetch(t.sampler, maskNames)
		if err != nil {
			return fmt.Errorf("iteration %d: fetch failed: %v", i, err)
		}

		inputs, labels, masks, err := t.spec.Split(sm)
		if err != nil {
			return fmt.Errorf("iteration %d: sample split failed: %v", i, err)
		}

		preds, err := t.model.Forward(inputs...)
		if err != nil {
			return fmt.Errorf("iteration %d: forward pass failed: %v", i, err)
		}

		losses, counts, err := EvalLosses(preds, labels, masks, t.lossFn, t.spec)
		if err != nil {
			return fmt.Errorf("iteration %d: %v", i, err)
		}

		if err := UpdateModel(t.optimizer, losses, t.config.TaskWeights); err != nil {
			return fmt.Errorf("iteration %d: %v", i, err)
		}

		if err := LogErrors(t.monitor, losses, counts, PhaseTrain); err != nil {
			return fmt.Errorf("iteration %d: %v", i, err)
		}
		LogElapsedTime(t.monitor, time.Since(start).Seconds(), PhaseTrain)
		start = time.Now()

		if t.valSampler != nil && i%t.config.TestIntv == 0 {
			err := RunValidation(t.model, t.valSampler, t.config.TestIter, t.lossFn, t.spec, t.monitor, i, t.fetcher)
			if err != nil {
				return fmt.Errorf("iteration %d: validation failed: %v", i, err)
			}
			// Validation time is excluded from iteration timing.
			start = time.Now()
		}

		if i%t.config.AvgsIntv == 0 && i != lastIter {
			t.monitor.ComputeAvgs(i, PhaseTrain)
			t.printAverages(i)
		}

		if i%t.config.ChkptIntv == 0 && i != lastIter {
			fmt.Printf("SAVE CHECKPOINT: %d iters.\n", i)
			if err := t.saveCheckpoint(i); err != nil {
				return fmt.Errorf("iteration %d: checkpoint failed: %v", i, err)
			}
		}
	}

	return nil
}

func (t *Trainer) printAverages(iteration int) {
	avgs := make(map[string]float64)
	for _, name := range t.spec.Labels() {
		if v, err := t.monitor.GetLastValue(name, PhaseTrain); err == nil {
			avgs[name] = round5(v)
		}
	}
	avgTime := 0.0
	if v, err := t.monitor.GetLastValue(MetricIterTime, PhaseTrain); err == nil {
		avgTime = round5(v)
	}
	fmt.Printf("iter: %d; avg losses = %v (iter_time = %v s on avg)\n", iteration, avgs, avgTime)
}

// saveCheckpoint writes the model snapshot and the stats history as two
// independent artifacts tagged with the same iteration.
func (t *Trainer) saveCheckpoint(iteration int) error {
	if err := t.ckpts.SaveModel(t.model.Parameters(), iteration, t.optimizer.GetLR()); err != nil {
		return err
	}
	return t.monitor.Save(t.ckpts.StatsPath(iteration), iteration)
}
