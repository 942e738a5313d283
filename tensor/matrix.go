package tensor

import (
	"fmt"
)

// MatMul computes the product of two 2D Float32 tensors.
func MatMul(a, b *Tensor) (*Tensor, error) {
	if a.DType != Float32 || b.DType != Float32 {
		return nil, fmt.Errorf("MatMul requires Float32 tensors")
	}
	if len(a.Shape) != 2 || len(b.Shape) != 2 {
		return nil, fmt.Errorf("MatMul requires 2D tensors, got %v and %v", a.Shape, b.Shape)
	}
	if a.Shape[1] != b.Shape[0] {
		return nil, fmt.Errorf("inner dimension mismatch: %v x %v", a.Shape, b.Shape)
	}

	m, k, n := a.Shape[0], a.Shape[1], b.Shape[1]
	da := a.Data.([]float32)
	db := b.Data.([]float32)
	out := make([]float32, m*n)

	for i := 0; i < m; i++ {
		for p := 0; p < k; p++ {
			av := da[i*k+p]
			if av == 0 {
				continue
			}
			row := db[p*n : (p+1)*n]
			for j := 0; j < n; j++ {
				out[i*n+j] += av * row[j]
			}
		}
	}

	return NewTensor([]int{m, n}, Float32, out)
}

// Transpose swaps the two dimensions of a 2D tensor.
func Transpose(t *Tensor) (*Tensor, error) {
	if t.DType != Float32 {
		return nil, fmt.Errorf("Transpose requires a Float32 tensor")
	}
	if len(t.Shape) != 2 {
		return nil, fmt.Errorf("Transpose requires a 2D tensor, got %v", t.Shape)
	}

	rows, cols := t.Shape[0], t.Shape[1]
	src := t.Data.([]float32)
	out := make([]float32, len(src))
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out[j*rows+i] = src[i*cols+j]
		}
	}
	return NewTensor([]int{cols, rows}, Float32, out)
}

// Reshape returns a view-copy of t with a new shape of equal element count.
func Reshape(t *Tensor, newShape []int) (*Tensor, error) {
	if err := validateShape(newShape); err != nil {
		return nil, err
	}
	if calculateNumElements(newShape) != t.NumElems {
		return nil, fmt.Errorf("cannot reshape %v to %v: element counts differ", t.Shape, newShape)
	}
	out, err := t.Clone()
	if err != nil {
		return nil, err
	}
	out.Shape = append([]int(nil), newShape...)
	out.Strides = calculateStrides(newShape)
	return out, nil
}

// Unsqueeze inserts a dimension of size 1 at position dim.
func Unsqueeze(t *Tensor, dim int) (*Tensor, error) {
	if dim < 0 || dim > len(t.Shape) {
		return nil, fmt.Errorf("unsqueeze dim %d out of range for shape %v", dim, t.Shape)
	}
	newShape := make([]int, 0, len(t.Shape)+1)
	newShape = append(newShape, t.Shape[:dim]...)
	newShape = append(newShape, 1)
	newShape = append(newShape, t.Shape[dim:]...)
	return Reshape(t, newShape)
}
