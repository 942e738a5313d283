package training

import (
	"math"
	"testing"

	"github.com/tkoren/go-multitask/tensor"
)

func newLossTensor(t *testing.T, shape []int, data []float32) *tensor.Tensor {
	t.Helper()
	tt, err := tensor.NewTensor(shape, tensor.Float32, data)
	if err != nil {
		t.Fatalf("Failed to create tensor: %v", err)
	}
	return tt
}

func TestMSELoss(t *testing.T) {
	pred := newLossTensor(t, []int{1, 4}, []float32{1, 2, 3, 4})
	target := newLossTensor(t, []int{1, 4}, []float32{1, 1, 1, 1})
	mask := newLossTensor(t, []int{1, 4}, []float32{1, 1, 0, 1})

	t.Run("Sum reduction", func(t *testing.T) {
		loss, err := NewMSELoss("sum").Forward(pred, target, mask)
		if err != nil {
			t.Fatalf("Forward failed: %v", err)
		}
		v, err := loss.Item()
		if err != nil {
			t.Fatalf("Loss is not scalar: %v", err)
		}
		// 0 + 1 + masked + 9
		if math.Abs(v-10.0) > 1e-5 {
			t.Errorf("Expected masked sum 10.0, got %v", v)
		}
	})

	t.Run("Mean reduction divides by mask sum", func(t *testing.T) {
		loss, err := NewMSELoss("mean").Forward(pred, target, mask)
		if err != nil {
			t.Fatalf("Forward failed: %v", err)
		}
		v, err := loss.Item()
		if err != nil {
			t.Fatalf("Loss is not scalar: %v", err)
		}
		if math.Abs(v-10.0/3.0) > 1e-5 {
			t.Errorf("Expected masked mean %v, got %v", 10.0/3.0, v)
		}
	})

	t.Run("Empty reduction defaults to sum", func(t *testing.T) {
		loss, err := NewMSELoss("").Forward(pred, target, mask)
		if err != nil {
			t.Fatalf("Forward failed: %v", err)
		}
		v, _ := loss.Item()
		if math.Abs(v-10.0) > 1e-5 {
			t.Errorf("Expected default sum 10.0, got %v", v)
		}
	})

	t.Run("Shape mismatch fails", func(t *testing.T) {
		bad := newLossTensor(t, []int{1, 3}, []float32{1, 1, 1})
		if _, err := NewMSELoss("sum").Forward(pred, bad, mask); err == nil {
			t.Error("Expected shape mismatch error, got nil")
		}
	})
}

func TestMSELossGradient(t *testing.T) {
	pred := newLossTensor(t, []int{1, 3}, []float32{2, 5, 1})
	pred.SetRequiresGrad(true)
	target := newLossTensor(t, []int{1, 3}, []float32{1, 1, 1})
	mask := newLossTensor(t, []int{1, 3}, []float32{1, 0, 1})

	loss, err := NewMSELoss("sum").Forward(pred, target, mask)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	if err := loss.Backward(); err != nil {
		t.Fatalf("Backward failed: %v", err)
	}

	grad, err := pred.Grad().GetFloat32Data()
	if err != nil {
		t.Fatalf("Grad data access failed: %v", err)
	}
	// d/dp sum(m*(p-y)^2) = 2*m*(p-y)
	expected := []float32{2, 0, 0}
	for i, want := range expected {
		if math.Abs(float64(grad[i]-want)) > 1e-5 {
			t.Errorf("Gradient[%d]: expected %v, got %v", i, want, grad[i])
		}
	}
}

func TestBCELoss(t *testing.T) {
	pred := newLossTensor(t, []int{1, 2}, []float32{0.8, 0.3})
	target := newLossTensor(t, []int{1, 2}, []float32{1, 0})
	mask := newLossTensor(t, []int{1, 2}, []float32{1, 1})

	loss, err := NewBCELoss("sum").Forward(pred, target, mask)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	v, err := loss.Item()
	if err != nil {
		t.Fatalf("Loss is not scalar: %v", err)
	}

	expected := -(math.Log(0.8) + math.Log(0.7))
	if math.Abs(v-expected) > 1e-5 {
		t.Errorf("Expected BCE %v, got %v", expected, v)
	}

	t.Run("Mean reduction divides by mask sum", func(t *testing.T) {
		loss, err := NewBCELoss("mean").Forward(pred, target, mask)
		if err != nil {
			t.Fatalf("Forward failed: %v", err)
		}
		v, _ := loss.Item()
		if math.Abs(v-expected/2.0) > 1e-5 {
			t.Errorf("Expected BCE mean %v, got %v", expected/2.0, v)
		}
	})
}
