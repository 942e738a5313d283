package training

import (
	"fmt"
	"math"

	"github.com/tkoren/go-multitask/tensor"
)

// Model is the prediction callable consumed by the driver: ordered input
// tensors in, one output tensor per label in sample.Spec label order.
type Model interface {
	Forward(inputs ...*tensor.Tensor) ([]*tensor.Tensor, error)
	Parameters() []*tensor.Tensor
	Train()
	Eval()
	IsTraining() bool
}

// Linear implements a fully connected layer: y = xW + b.
type Linear struct {
	weight   *tensor.Tensor
	bias     *tensor.Tensor
	training bool
}

// NewLinear creates a Linear layer with Xavier-uniform weights.
func NewLinear(inputSize, outputSize int, bias bool) (*Linear, error) {
	bound := math.Sqrt(6.0 / float64(inputSize+outputSize))
	std := float32(bound / math.Sqrt(3.0))

	weight, err := tensor.RandomNormal([]int{inputSize, outputSize}, 0, std)
	if err != nil {
		return nil, fmt.Errorf("failed to create weight tensor: %v", err)
	}
	weight.SetRequiresGrad(true)

	l := &Linear{
		weight:   weight,
		training: true,
	}

	if bias {
		b, err := tensor.Zeros([]int{outputSize}, tensor.Float32)
		if err != nil {
			return nil, fmt.Errorf("failed to create bias tensor: %v", err)
		}
		b.SetRequiresGrad(true)
		l.bias = b
	}

	return l, nil
}

// Forward computes xW + b for a 2D input [batch, inputSize].
func (l *Linear) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	if len(input.Shape) != 2 {
		return nil, fmt.Errorf("Linear expects 2D input [batch, features], got shape %v", input.Shape)
	}
	if input.Shape[1] != l.weight.Shape[0] {
		return nil, fmt.Errorf("input size mismatch: expected %d, got %d", l.weight.Shape[0], input.Shape[1])
	}

	output := tensor.MatMulAutograd(input, l.weight)
	if l.bias != nil {
		output = tensor.AddAutograd(output, l.bias)
	}
	return output, nil
}

func (l *Linear) Parameters() []*tensor.Tensor {
	params := []*tensor.Tensor{l.weight}
	if l.bias != nil {
		params = append(params, l.bias)
	}
	return params
}

func (l *Linear) Train()           { l.training = true }
func (l *Linear) Eval()            { l.training = false }
func (l *Linear) IsTraining() bool { return l.training }

// MultiHead is a multi-task model: each head maps the first input to one
// task's prediction. Heads are ordered to match the spec's label order.
type MultiHead struct {
	heads    []*Linear
	training bool
}

// NewMultiHead builds one Linear head per output size.
func NewMultiHead(inputSize int, outputSizes []int) (*MultiHead, error) {
	if len(outputSizes) == 0 {
		return nil, fmt.Errorf("MultiHead requires at least one head")
	}

	heads := make([]*Linear, 0, len(outputSizes))
	for i, size := range outputSizes {
		head, err := NewLinear(inputSize, size, true)
		if err != nil {
			return nil, fmt.Errorf("failed to create head %d: %v", i, err)
		}
		heads = append(heads, head)
	}

	return &MultiHead{heads: heads, training: true}, nil
}

// Forward runs every head over the first input tensor. The input is flattened
// to [batch, features] when it arrives with extra dimensions.
func (m *MultiHead) Forward(inputs ...*tensor.Tensor) ([]*tensor.Tensor, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("MultiHead requires at least one input")
	}

	in := inputs[0]
	if len(in.Shape) != 2 {
		flat, err := tensor.Reshape(in, []int{in.Shape[0], in.NumElems / in.Shape[0]})
		if err != nil {
			return nil, fmt.Errorf("failed to flatten input: %v", err)
		}
		flat.SetRequiresGrad(in.RequiresGrad())
		in = flat
	}

	outputs := make([]*tensor.Tensor, 0, len(m.heads))
	for i, head := range m.heads {
		out, err := head.Forward(in)
		if err != nil {
			return nil, fmt.Errorf("head %d forward failed: %v", i, err)
		}
		outputs = append(outputs, out)
	}
	return outputs, nil
}

func (m *MultiHead) Parameters() []*tensor.Tensor {
	var params []*tensor.Tensor
	for _, head := range m.heads {
		params = append(params, head.Parameters()...)
	}
	return params
}

func (m *MultiHead) Train() {
	m.training = true
	for _, head := range m.heads {
		head.Train()
	}
}

func (m *MultiHead) Eval() {
	m.training = false
	for _, head := range m.heads {
		head.Eval()
	}
}

func (m *MultiHead) IsTraining() bool { return m.training }
