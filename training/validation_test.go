package training

import (
	"testing"

	"github.com/tkoren/go-multitask/sample"
)

func TestRunValidation(t *testing.T) {
	spec := trainerSpec(t)
	model, err := NewMultiHead(4, []int{2, 3})
	if err != nil {
		t.Fatalf("NewMultiHead failed: %v", err)
	}
	lm := NewLearningMonitor()
	src := &fixedSource{}
	fetcher := &sample.Fetcher{MaxAttempts: 10}

	err = RunValidation(model, src, 3, NewMSELoss("sum"), spec, lm, 42, fetcher)
	if err != nil {
		t.Fatalf("RunValidation failed: %v", err)
	}

	if src.pulls != 3 {
		t.Errorf("Expected 3 validation pulls, got %d", src.pulls)
	}

	// Results land in the test phase, flushed at the caller's iteration.
	for _, metric := range []string{"value", "affinity", MetricIterTime} {
		history := lm.History(metric, PhaseTest)
		if len(history) != 1 || history[0].Iter != 42 {
			t.Errorf("Expected one test-phase average at iter 42 for %s, got %v", metric, history)
		}
	}
	if history := lm.History("value", PhaseTrain); len(history) != 0 {
		t.Errorf("Validation leaked into the train phase: %v", history)
	}
}

func TestRunValidationRestoresTrainingMode(t *testing.T) {
	spec := trainerSpec(t)
	model, err := NewMultiHead(4, []int{2, 3})
	if err != nil {
		t.Fatalf("NewMultiHead failed: %v", err)
	}
	lm := NewLearningMonitor()
	fetcher := &sample.Fetcher{MaxAttempts: 10}

	model.Train()
	if err := RunValidation(model, &fixedSource{}, 1, NewMSELoss("sum"), spec, lm, 0, fetcher); err != nil {
		t.Fatalf("RunValidation failed: %v", err)
	}
	if !model.IsTraining() {
		t.Error("Expected training mode restored after validation")
	}

	model.Eval()
	if err := RunValidation(model, &fixedSource{}, 1, NewMSELoss("sum"), spec, lm, 1, fetcher); err != nil {
		t.Fatalf("RunValidation failed: %v", err)
	}
	if model.IsTraining() {
		t.Error("Expected eval mode preserved after validation")
	}
}
