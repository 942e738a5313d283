package training

import (
	"fmt"

	"github.com/tkoren/go-multitask/tensor"
)

// Loss is the per-task criterion. The mask is always present; callers pass an
// all-ones mask for unmasked tasks, so dispatch never depends on call arity.
// The returned tensor is a scalar wired into the autograd graph.
//
// With the default "sum" reduction the loss is a masked sum, and dividing by
// the task's normalization count (mask sum, or element count when unmasked)
// is left to the LearningMonitor's numerator/denominator averaging.
type Loss interface {
	Forward(pred, target, mask *tensor.Tensor) (*tensor.Tensor, error)
}

// MSELoss computes masked squared error.
type MSELoss struct {
	reduction string // "sum" or "mean"
}

// NewMSELoss creates an MSE criterion. An empty reduction defaults to "sum".
func NewMSELoss(reduction string) *MSELoss {
	if reduction == "" {
		reduction = "sum"
	}
	return &MSELoss{reduction: reduction}
}

// Forward computes sum(mask * (pred - target)^2), optionally divided by the
// mask sum for "mean" reduction.
func (mse *MSELoss) Forward(pred, target, mask *tensor.Tensor) (*tensor.Tensor, error) {
	if err := checkLossShapes(pred, target, mask); err != nil {
		return nil, err
	}

	diff := tensor.SubAutograd(pred, target)
	squared := tensor.MulAutograd(diff, diff)
	masked := tensor.MulAutograd(squared, mask)
	loss := tensor.SumAutograd(masked)

	if mse.reduction == "mean" {
		total, err := tensor.SumAll(mask)
		if err != nil {
			return nil, fmt.Errorf("mask sum failed: %v", err)
		}
		n, err := total.Item()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			n = 1
		}
		loss = tensor.MulAutograd(loss, tensor.FromScalar(1.0/n))
	}

	return loss, nil
}

// BCELoss computes masked binary cross-entropy over probabilities.
type BCELoss struct {
	reduction string // "sum" or "mean"
}

// NewBCELoss creates a BCE criterion. An empty reduction defaults to "sum".
func NewBCELoss(reduction string) *BCELoss {
	if reduction == "" {
		reduction = "sum"
	}
	return &BCELoss{reduction: reduction}
}

func (bce *BCELoss) Forward(pred, target, mask *tensor.Tensor) (*tensor.Tensor, error) {
	if err := checkLossShapes(pred, target, mask); err != nil {
		return nil, err
	}

	loss := tensor.BCEAutograd(pred, target, mask)

	if bce.reduction == "mean" {
		total, err := tensor.SumAll(mask)
		if err != nil {
			return nil, fmt.Errorf("mask sum failed: %v", err)
		}
		n, err := total.Item()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			n = 1
		}
		loss = tensor.MulAutograd(loss, tensor.FromScalar(1.0/n))
	}

	return loss, nil
}

func checkLossShapes(pred, target, mask *tensor.Tensor) error {
	if len(pred.Shape) != len(target.Shape) {
		return fmt.Errorf("pred and target rank mismatch: %v vs %v", pred.Shape, target.Shape)
	}
	for i := range pred.Shape {
		if pred.Shape[i] != target.Shape[i] {
			return fmt.Errorf("pred and target shape mismatch: %v vs %v", pred.Shape, target.Shape)
		}
	}
	if mask.NumElems != pred.NumElems {
		return fmt.Errorf("mask size %d does not match prediction size %d", mask.NumElems, pred.NumElems)
	}
	return nil
}
