package tensor

import (
	"math"
	"testing"
)

func TestElementwiseOperations(t *testing.T) {
	t.Run("Add equal shapes", func(t *testing.T) {
		a, err := NewTensor([]int{2, 2}, Float32, []float32{1, 2, 3, 4})
		if err != nil {
			t.Fatalf("Failed to create tensor: %v", err)
		}
		b, err := NewTensor([]int{2, 2}, Float32, []float32{10, 20, 30, 40})
		if err != nil {
			t.Fatalf("Failed to create tensor: %v", err)
		}

		result, err := Add(a, b)
		if err != nil {
			t.Fatalf("Add failed: %v", err)
		}

		expected := []float32{11, 22, 33, 44}
		actual := result.Data.([]float32)
		for i, want := range expected {
			if actual[i] != want {
				t.Errorf("Element %d: expected %v, got %v", i, want, actual[i])
			}
		}
	})

	t.Run("Mul with scalar broadcast", func(t *testing.T) {
		a, err := NewTensor([]int{3}, Float32, []float32{1, 2, 3})
		if err != nil {
			t.Fatalf("Failed to create tensor: %v", err)
		}

		result, err := Mul(a, FromScalar(2.5))
		if err != nil {
			t.Fatalf("Mul failed: %v", err)
		}

		expected := []float32{2.5, 5, 7.5}
		actual := result.Data.([]float32)
		for i, want := range expected {
			if actual[i] != want {
				t.Errorf("Element %d: expected %v, got %v", i, want, actual[i])
			}
		}
	})

	t.Run("Add with suffix broadcast", func(t *testing.T) {
		a, err := NewTensor([]int{2, 3}, Float32, []float32{1, 2, 3, 4, 5, 6})
		if err != nil {
			t.Fatalf("Failed to create tensor: %v", err)
		}
		bias, err := NewTensor([]int{3}, Float32, []float32{10, 20, 30})
		if err != nil {
			t.Fatalf("Failed to create bias: %v", err)
		}

		result, err := Add(a, bias)
		if err != nil {
			t.Fatalf("Add failed: %v", err)
		}

		expected := []float32{11, 22, 33, 14, 25, 36}
		actual := result.Data.([]float32)
		for i, want := range expected {
			if actual[i] != want {
				t.Errorf("Element %d: expected %v, got %v", i, want, actual[i])
			}
		}
	})

	t.Run("Incompatible shapes rejected", func(t *testing.T) {
		a, _ := NewTensor([]int{2, 2}, Float32, []float32{1, 2, 3, 4})
		b, _ := NewTensor([]int{3}, Float32, []float32{1, 2, 3})

		if _, err := Add(a, b); err == nil {
			t.Error("Expected error for incompatible shapes, got nil")
		}
	})
}

func TestSumAll(t *testing.T) {
	a, err := NewTensor([]int{2, 2}, Float32, []float32{1.5, 2.5, 3, 4})
	if err != nil {
		t.Fatalf("Failed to create tensor: %v", err)
	}

	sum, err := SumAll(a)
	if err != nil {
		t.Fatalf("SumAll failed: %v", err)
	}

	v, err := sum.Item()
	if err != nil {
		t.Fatalf("Item failed: %v", err)
	}
	if math.Abs(v-11.0) > 1e-6 {
		t.Errorf("Expected sum 11.0, got %v", v)
	}
}

func TestMatMul(t *testing.T) {
	t.Run("2x3 times 3x2", func(t *testing.T) {
		a, _ := NewTensor([]int{2, 3}, Float32, []float32{1, 2, 3, 4, 5, 6})
		b, _ := NewTensor([]int{3, 2}, Float32, []float32{7, 8, 9, 10, 11, 12})

		result, err := MatMul(a, b)
		if err != nil {
			t.Fatalf("MatMul failed: %v", err)
		}

		if !shapesEqual(result.Shape, []int{2, 2}) {
			t.Fatalf("Expected shape [2 2], got %v", result.Shape)
		}

		expected := []float32{58, 64, 139, 154}
		actual := result.Data.([]float32)
		for i, want := range expected {
			if actual[i] != want {
				t.Errorf("Element %d: expected %v, got %v", i, want, actual[i])
			}
		}
	})

	t.Run("Inner dimension mismatch", func(t *testing.T) {
		a, _ := NewTensor([]int{2, 3}, Float32, make([]float32, 6))
		b, _ := NewTensor([]int{2, 2}, Float32, make([]float32, 4))

		if _, err := MatMul(a, b); err == nil {
			t.Error("Expected error for inner dimension mismatch, got nil")
		}
	})
}

func TestUnsqueeze(t *testing.T) {
	a, err := NewTensor([]int{3}, Float32, []float32{1, 2, 3})
	if err != nil {
		t.Fatalf("Failed to create tensor: %v", err)
	}

	batched, err := Unsqueeze(a, 0)
	if err != nil {
		t.Fatalf("Unsqueeze failed: %v", err)
	}

	if !shapesEqual(batched.Shape, []int{1, 3}) {
		t.Errorf("Expected shape [1 3], got %v", batched.Shape)
	}
	if batched.NumElems != 3 {
		t.Errorf("Expected 3 elements, got %d", batched.NumElems)
	}
}

func TestTranspose(t *testing.T) {
	a, _ := NewTensor([]int{2, 3}, Float32, []float32{1, 2, 3, 4, 5, 6})

	result, err := Transpose(a)
	if err != nil {
		t.Fatalf("Transpose failed: %v", err)
	}

	if !shapesEqual(result.Shape, []int{3, 2}) {
		t.Fatalf("Expected shape [3 2], got %v", result.Shape)
	}

	expected := []float32{1, 4, 2, 5, 3, 6}
	actual := result.Data.([]float32)
	for i, want := range expected {
		if actual[i] != want {
			t.Errorf("Element %d: expected %v, got %v", i, want, actual[i])
		}
	}
}
