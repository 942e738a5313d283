package training

import (
	"fmt"
	"sort"

	"github.com/tkoren/go-multitask/tensor"
)

// UpdateModel applies one optimization step: clear stale gradients, combine
// the task losses into a single weighted objective, backpropagate, and step
// the optimizer. weights may be nil for an unweighted sum; tasks are combined
// in sorted name order so the objective is deterministic.
func UpdateModel(opt Optimizer, losses map[string]*tensor.Tensor, weights map[string]float64) error {
	if len(losses) == 0 {
		return fmt.Errorf("no losses to update from")
	}

	opt.ZeroGrad()

	names := make([]string, 0, len(losses))
	for name := range losses {
		names = append(names, name)
	}
	sort.Strings(names)

	var total *tensor.Tensor
	for _, name := range names {
		term := losses[name]
		if w, ok := weights[name]; ok && w != 1.0 {
			term = tensor.MulAutograd(term, tensor.FromScalar(w))
		}
		if total == nil {
			total = term
		} else {
			total = tensor.AddAutograd(total, term)
		}
	}

	if err := total.Backward(); err != nil {
		return fmt.Errorf("backward pass failed: %v", err)
	}

	if err := opt.Step(); err != nil {
		return fmt.Errorf("optimizer step failed: %v", err)
	}

	return nil
}
