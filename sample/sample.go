// Package sample defines the unit of training data exchanged between a data
// source and the training driver: a named mapping of tensors, a schema that
// classifies those names into input/label/mask roles, and a fetcher that
// guarantees every task in a sample has learnable signal.
package sample

import (
	"github.com/tkoren/go-multitask/tensor"
)

// Sample maps field names to tensors. Sources produce unbatched samples; the
// Fetcher adds the unit batch dimension.
type Sample map[string]*tensor.Tensor

// Source supplies one sample per call. Implementations own any shuffling,
// augmentation, or prefetching; the driver only ever calls Get.
type Source interface {
	Get() (Sample, error)
}

// Clone copies the sample mapping and its tensors.
func (s Sample) Clone() (Sample, error) {
	out := make(Sample, len(s))
	for name, t := range s {
		c, err := t.Clone()
		if err != nil {
			return nil, err
		}
		out[name] = c
	}
	return out, nil
}
