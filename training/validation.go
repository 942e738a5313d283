package training

import (
	"fmt"
	"math"
	"time"

	"github.com/tkoren/go-multitask/sample"
)

// RunValidation executes numIters forward-only passes against a held-out
// source, logging losses and per-pass wall time into the monitor's "test"
// phase, then flushes that phase at the caller's iteration and reports the
// averages. Training-phase accumulators are untouched.
func RunValidation(model Model, src sample.Source, numIters int, lossFn Loss, spec *sample.Spec, monitor *LearningMonitor, iteration int, fetcher *sample.Fetcher) error {
	wasTraining := model.IsTraining()
	model.Eval()
	if wasTraining {
		defer model.Train()
	}

	maskNames := spec.Masks()

	start := time.Now()
	for i := 0; i < numIters; i++ {
		sm, err := fetcher.Fetch(src, maskNames)
		if err != nil {
			return fmt.Errorf("validation fetch failed: %v", err)
		}

		inputs, labels, masks, err := spec.Split(sm)
		if err != nil {
			return fmt.Errorf("validation sample split failed: %v", err)
		}

		preds, err := model.Forward(inputs...)
		if err != nil {
			return fmt.Errorf("validation forward pass failed: %v", err)
		}

		losses, counts, err := EvalLosses(preds, labels, masks, lossFn, spec)
		if err != nil {
			return err
		}

		if err := LogErrors(monitor, losses, counts, PhaseTest); err != nil {
			return err
		}
		LogElapsedTime(monitor, time.Since(start).Seconds(), PhaseTest)
		start = time.Now()
	}

	monitor.ComputeAvgs(iteration, PhaseTest)

	avgs := make(map[string]float64)
	for _, name := range spec.Labels() {
		if v, err := monitor.GetLastValue(name, PhaseTest); err == nil {
			avgs[name] = round5(v)
		}
	}
	avgTime := 0.0
	if v, err := monitor.GetLastValue(MetricIterTime, PhaseTest); err == nil {
		avgTime = round5(v)
	}
	fmt.Printf("TEST: %d avg losses = %v (elapsed = %v s avg)\n", iteration, avgs, avgTime)

	return nil
}

func round5(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}
