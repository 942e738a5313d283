package training

import (
	"fmt"
	"math"
	"sync"

	"github.com/tkoren/go-multitask/tensor"
)

// Optimizer mutates model parameters in place from gradients already
// populated by backpropagation.
type Optimizer interface {
	Step() error
	ZeroGrad()
	GetLR() float64
	SetLR(lr float64)
}

// SGD implements stochastic gradient descent with optional momentum,
// weight decay, and Nesterov updates.
type SGD struct {
	parameters   []*tensor.Tensor
	learningRate float64
	momentum     float64
	weightDecay  float64
	nesterov     bool
	velocities   map[*tensor.Tensor][]float32
	mutex        sync.RWMutex
}

// NewSGD creates an SGD optimizer over the given parameters.
func NewSGD(parameters []*tensor.Tensor, lr, momentum, weightDecay float64, nesterov bool) *SGD {
	return &SGD{
		parameters:   parameters,
		learningRate: lr,
		momentum:     momentum,
		weightDecay:  weightDecay,
		nesterov:     nesterov,
		velocities:   make(map[*tensor.Tensor][]float32),
	}
}

// Step performs a single optimization step.
func (sgd *SGD) Step() error {
	sgd.mutex.Lock()
	defer sgd.mutex.Unlock()

	for _, param := range sgd.parameters {
		if !param.RequiresGrad() || param.Grad() == nil {
			continue
		}

		data, err := param.GetFloat32Data()
		if err != nil {
			return fmt.Errorf("parameter data access failed: %v", err)
		}
		gradData, err := param.Grad().GetFloat32Data()
		if err != nil {
			return fmt.Errorf("gradient data access failed: %v", err)
		}
		if len(gradData) != len(data) {
			return fmt.Errorf("gradient size %d does not match parameter size %d", len(gradData), len(data))
		}

		lr := float32(sgd.learningRate)
		wd := float32(sgd.weightDecay)
		mu := float32(sgd.momentum)

		if sgd.momentum > 0 {
			velocity, ok := sgd.velocities[param]
			if !ok {
				velocity = make([]float32, len(data))
				sgd.velocities[param] = velocity
			}
			for i := range data {
				g := gradData[i] + wd*data[i]
				velocity[i] = mu*velocity[i] + g
				if sgd.nesterov {
					data[i] -= lr * (g + mu*velocity[i])
				} else {
					data[i] -= lr * velocity[i]
				}
			}
		} else {
			for i := range data {
				g := gradData[i] + wd*data[i]
				data[i] -= lr * g
			}
		}
	}

	return nil
}

// ZeroGrad resets gradients for all parameters.
func (sgd *SGD) ZeroGrad() {
	tensor.ZeroGrad(sgd.parameters)
}

func (sgd *SGD) GetLR() float64 {
	sgd.mutex.RLock()
	defer sgd.mutex.RUnlock()
	return sgd.learningRate
}

func (sgd *SGD) SetLR(lr float64) {
	sgd.mutex.Lock()
	defer sgd.mutex.Unlock()
	sgd.learningRate = lr
}

// Adam implements the Adam optimizer.
type Adam struct {
	parameters  []*tensor.Tensor
	lr          float64
	beta1       float64
	beta2       float64
	eps         float64
	weightDecay float64
	step        int64
	m           map[*tensor.Tensor][]float32
	v           map[*tensor.Tensor][]float32
	mutex       sync.RWMutex
}

// NewAdam creates an Adam optimizer over the given parameters.
func NewAdam(parameters []*tensor.Tensor, lr, beta1, beta2, eps, weightDecay float64) *Adam {
	return &Adam{
		parameters:  parameters,
		lr:          lr,
		beta1:       beta1,
		beta2:       beta2,
		eps:         eps,
		weightDecay: weightDecay,
		m:           make(map[*tensor.Tensor][]float32),
		v:           make(map[*tensor.Tensor][]float32),
	}
}

// Step performs a single optimization step.
func (adam *Adam) Step() error {
	adam.mutex.Lock()
	defer adam.mutex.Unlock()

	adam.step++
	bias1 := 1.0 - math.Pow(adam.beta1, float64(adam.step))
	bias2 := 1.0 - math.Pow(adam.beta2, float64(adam.step))

	for _, param := range adam.parameters {
		if !param.RequiresGrad() || param.Grad() == nil {
			continue
		}

		data, err := param.GetFloat32Data()
		if err != nil {
			return fmt.Errorf("parameter data access failed: %v", err)
		}
		gradData, err := param.Grad().GetFloat32Data()
		if err != nil {
			return fmt.Errorf("gradient data access failed: %v", err)
		}
		if len(gradData) != len(data) {
			return fmt.Errorf("gradient size %d does not match parameter size %d", len(gradData), len(data))
		}

		m, ok := adam.m[param]
		if !ok {
			m = make([]float32, len(data))
			adam.m[param] = m
		}
		v, ok := adam.v[param]
		if !ok {
			v = make([]float32, len(data))
			adam.v[param] = v
		}

		for i := range data {
			g := float64(gradData[i]) + adam.weightDecay*float64(data[i])

			m[i] = float32(adam.beta1*float64(m[i]) + (1-adam.beta1)*g)
			v[i] = float32(adam.beta2*float64(v[i]) + (1-adam.beta2)*g*g)

			mHat := float64(m[i]) / bias1
			vHat := float64(v[i]) / bias2

			data[i] -= float32(adam.lr * mHat / (math.Sqrt(vHat) + adam.eps))
		}
	}

	return nil
}

// ZeroGrad resets gradients for all parameters.
func (adam *Adam) ZeroGrad() {
	tensor.ZeroGrad(adam.parameters)
}

func (adam *Adam) GetLR() float64 {
	adam.mutex.RLock()
	defer adam.mutex.RUnlock()
	return adam.lr
}

func (adam *Adam) SetLR(lr float64) {
	adam.mutex.Lock()
	defer adam.mutex.Unlock()
	adam.lr = lr
}
