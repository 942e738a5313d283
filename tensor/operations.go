package tensor

import (
	"fmt"
)

// Elementwise arithmetic supports Float32 operands of equal shape, plus two
// broadcast forms: a [1] scalar against anything, and a tensor whose shape is
// a trailing suffix of the other operand's shape (bias-style).

func isScalar(t *Tensor) bool {
	return t.NumElems == 1
}

func isSuffixShape(small, large []int) bool {
	if len(small) > len(large) {
		return false
	}
	offset := len(large) - len(small)
	for i := range small {
		if small[i] != large[offset+i] {
			return false
		}
	}
	return true
}

// BroadcastTo materializes t at targetShape by repetition. t must be a scalar
// or have a shape that is a trailing suffix of targetShape.
func BroadcastTo(t *Tensor, targetShape []int) (*Tensor, error) {
	if shapesEqual(t.Shape, targetShape) {
		return t.Clone()
	}
	if t.DType != Float32 {
		return nil, fmt.Errorf("broadcast only supports Float32 tensors, got %s", t.DType)
	}

	src := t.Data.([]float32)
	n := calculateNumElements(targetShape)

	if isScalar(t) {
		out := make([]float32, n)
		for i := range out {
			out[i] = src[0]
		}
		return NewTensor(targetShape, Float32, out)
	}

	if !isSuffixShape(t.Shape, targetShape) {
		return nil, fmt.Errorf("cannot broadcast shape %v to %v", t.Shape, targetShape)
	}

	out := make([]float32, n)
	for i := 0; i < n; i += t.NumElems {
		copy(out[i:i+t.NumElems], src)
	}
	return NewTensor(targetShape, Float32, out)
}

func binaryOperands(a, b *Tensor) ([]float32, []float32, []int, error) {
	if a.DType != Float32 || b.DType != Float32 {
		return nil, nil, nil, fmt.Errorf("arithmetic requires Float32 tensors, got %s and %s", a.DType, b.DType)
	}

	switch {
	case shapesEqual(a.Shape, b.Shape):
		return a.Data.([]float32), b.Data.([]float32), a.Shape, nil
	case isScalar(b) || isSuffixShape(b.Shape, a.Shape):
		bb, err := BroadcastTo(b, a.Shape)
		if err != nil {
			return nil, nil, nil, err
		}
		return a.Data.([]float32), bb.Data.([]float32), a.Shape, nil
	case isScalar(a) || isSuffixShape(a.Shape, b.Shape):
		ab, err := BroadcastTo(a, b.Shape)
		if err != nil {
			return nil, nil, nil, err
		}
		return ab.Data.([]float32), b.Data.([]float32), b.Shape, nil
	default:
		return nil, nil, nil, fmt.Errorf("incompatible shapes %v and %v", a.Shape, b.Shape)
	}
}

func Add(a, b *Tensor) (*Tensor, error) {
	da, db, shape, err := binaryOperands(a, b)
	if err != nil {
		return nil, fmt.Errorf("add failed: %v", err)
	}
	out := make([]float32, len(da))
	for i := range out {
		out[i] = da[i] + db[i]
	}
	return NewTensor(shape, Float32, out)
}

func Sub(a, b *Tensor) (*Tensor, error) {
	da, db, shape, err := binaryOperands(a, b)
	if err != nil {
		return nil, fmt.Errorf("sub failed: %v", err)
	}
	out := make([]float32, len(da))
	for i := range out {
		out[i] = da[i] - db[i]
	}
	return NewTensor(shape, Float32, out)
}

func Mul(a, b *Tensor) (*Tensor, error) {
	da, db, shape, err := binaryOperands(a, b)
	if err != nil {
		return nil, fmt.Errorf("mul failed: %v", err)
	}
	out := make([]float32, len(da))
	for i := range out {
		out[i] = da[i] * db[i]
	}
	return NewTensor(shape, Float32, out)
}

func Div(a, b *Tensor) (*Tensor, error) {
	da, db, shape, err := binaryOperands(a, b)
	if err != nil {
		return nil, fmt.Errorf("div failed: %v", err)
	}
	out := make([]float32, len(da))
	for i := range out {
		out[i] = da[i] / db[i]
	}
	return NewTensor(shape, Float32, out)
}

// SumAll sums every element into a [1]-shaped scalar tensor.
func SumAll(t *Tensor) (*Tensor, error) {
	switch t.DType {
	case Float32:
		data := t.Data.([]float32)
		var sum float32
		for _, v := range data {
			sum += v
		}
		return NewTensor([]int{1}, Float32, []float32{sum})
	case Int32:
		data := t.Data.([]int32)
		var sum int32
		for _, v := range data {
			sum += v
		}
		return NewTensor([]int{1}, Int32, []int32{sum})
	default:
		return nil, fmt.Errorf("unsupported dtype for SumAll: %s", t.DType)
	}
}
