package training

import (
	"fmt"

	"github.com/tkoren/go-multitask/sample"
	"github.com/tkoren/go-multitask/tensor"
)

// EvalLosses computes the per-task loss and normalization count for one
// forward pass. Both maps are keyed by label name and always share the same
// key set: the spec's labels.
//
// The count is the denominator later used to average the loss, not a weight:
// the mask's element sum for a masked task, the label's element count
// otherwise. Cardinality mismatches between predictions, labels, and the spec
// indicate a miswired model/spec pairing and are returned as errors.
func EvalLosses(preds, labels, masks []*tensor.Tensor, lossFn Loss, spec *sample.Spec) (map[string]*tensor.Tensor, map[string]float64, error) {
	labelNames := spec.Labels()

	if len(labelNames) != len(labels) {
		return nil, nil, fmt.Errorf("structural mismatch: %d labels for %d label names", len(labels), len(labelNames))
	}
	if len(preds) != len(labels) {
		return nil, nil, fmt.Errorf("structural mismatch: %d predictions for %d labels", len(preds), len(labels))
	}
	if len(masks) != len(spec.Masks()) {
		return nil, nil, fmt.Errorf("structural mismatch: %d masks for %d mask names", len(masks), len(spec.Masks()))
	}

	losses := make(map[string]*tensor.Tensor, len(labelNames))
	counts := make(map[string]float64, len(labelNames))

	for i, pred := range preds {
		label := labels[i]
		name := labelNames[i]

		var mask *tensor.Tensor
		var count float64

		if idx, ok := spec.MaskIndex(name); ok {
			mask = masks[idx]
			sum, err := tensor.SumAll(mask)
			if err != nil {
				return nil, nil, fmt.Errorf("mask sum for task %q failed: %v", name, err)
			}
			count, err = sum.Item()
			if err != nil {
				return nil, nil, err
			}
		} else {
			// Uniform loss signature: an all-ones mask stands in for
			// "no masking" and the count is the full element count.
			ones, err := tensor.Ones(label.Shape, tensor.Float32)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to build unit mask for task %q: %v", name, err)
			}
			mask = ones
			count = float64(label.NumElems)
		}

		loss, err := lossFn.Forward(pred, label, mask)
		if err != nil {
			return nil, nil, fmt.Errorf("loss for task %q failed: %v", name, err)
		}

		losses[name] = loss
		counts[name] = count
	}

	return losses, counts, nil
}
