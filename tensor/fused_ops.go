package tensor

import (
	"fmt"
	"math"
)

const bceEps = 1e-7

// BCEOp is a fused masked binary cross-entropy: it computes the whole loss in
// one node instead of stringing Log/Mul/Sum ops through the graph. Inputs are
// (predictions, targets, mask); only the predictions receive a gradient.
type BCEOp struct {
	inputs []*Tensor
}

func (op *BCEOp) Inputs() []*Tensor { return op.inputs }

func (op *BCEOp) Forward(inputs ...*Tensor) *Tensor {
	if len(inputs) != 3 {
		panic("BCEOp requires exactly 3 inputs")
	}

	pred, target, mask := inputs[0], inputs[1], inputs[2]
	op.inputs = inputs

	result, err := bceForward(pred, target, mask)
	if err != nil {
		panic(fmt.Sprintf("forward pass failed: %v", err))
	}

	result.creator = op
	result.requiresGrad = pred.requiresGrad
	return result
}

func bceForward(pred, target, mask *Tensor) (*Tensor, error) {
	if pred.DType != Float32 || target.DType != Float32 || mask.DType != Float32 {
		return nil, fmt.Errorf("BCE requires Float32 tensors")
	}
	if !shapesEqual(pred.Shape, target.Shape) || !shapesEqual(pred.Shape, mask.Shape) {
		return nil, fmt.Errorf("BCE shape mismatch: pred %v, target %v, mask %v",
			pred.Shape, target.Shape, mask.Shape)
	}

	p := pred.Data.([]float32)
	y := target.Data.([]float32)
	m := mask.Data.([]float32)

	var loss float64
	for i := range p {
		if m[i] == 0 {
			continue
		}
		pi := clampProb(p[i])
		loss -= float64(m[i]) * (float64(y[i])*math.Log(pi) + (1-float64(y[i]))*math.Log(1-pi))
	}

	return NewTensor([]int{1}, Float32, []float32{float32(loss)})
}

func (op *BCEOp) Backward(gradOut *Tensor) []*Tensor {
	pred, target, mask := op.inputs[0], op.inputs[1], op.inputs[2]

	p := pred.Data.([]float32)
	y := target.Data.([]float32)
	m := mask.Data.([]float32)
	scale := float64(gradOut.Data.([]float32)[0])

	// dL/dp = -mask * (y/p - (1-y)/(1-p))
	grad := make([]float32, len(p))
	for i := range p {
		if m[i] == 0 {
			continue
		}
		pi := clampProb(p[i])
		grad[i] = float32(-scale * float64(m[i]) * (float64(y[i])/pi - (1-float64(y[i]))/(1-pi)))
	}

	gradPred, err := NewTensor(pred.Shape, Float32, grad)
	if err != nil {
		panic(fmt.Sprintf("failed to build BCE gradient: %v", err))
	}
	return []*Tensor{gradPred, nil, nil}
}

func clampProb(p float32) float64 {
	v := float64(p)
	if v < bceEps {
		return bceEps
	}
	if v > 1-bceEps {
		return 1 - bceEps
	}
	return v
}

// BCEAutograd computes the masked binary cross-entropy sum as a graph node.
func BCEAutograd(pred, target, mask *Tensor) *Tensor {
	op := &BCEOp{}
	return op.Forward(pred, target, mask)
}
