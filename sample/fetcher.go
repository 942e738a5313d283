package sample

import (
	"fmt"

	"github.com/tkoren/go-multitask/tensor"
)

// Fetcher pulls samples from a Source, rejecting any sample in which a named
// mask has no nonzero element, so every task in an accepted sample carries
// learnable signal. Accepted samples get a leading batch dimension of size 1.
type Fetcher struct {
	// MaxAttempts bounds the rejection-sampling loop. Zero means retry
	// forever, which reproduces the unbounded contract: a source that can
	// never satisfy the mask constraint then blocks the caller indefinitely.
	MaxAttempts int
}

// Fetch returns the first sample whose named masks are all nonempty.
func (f *Fetcher) Fetch(src Source, maskNames []string) (Sample, error) {
	attempt := 0
	for {
		attempt++
		if f.MaxAttempts > 0 && attempt > f.MaxAttempts {
			return nil, fmt.Errorf("no sample with nonempty masks %v after %d attempts", maskNames, f.MaxAttempts)
		}

		sm, err := src.Get()
		if err != nil {
			return nil, fmt.Errorf("source get failed: %v", err)
		}

		ok, err := masksNonempty(sm, maskNames)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		return batch(sm)
	}
}

// masksNonempty reports whether every named mask has at least one nonzero
// element.
func masksNonempty(sm Sample, maskNames []string) (bool, error) {
	for _, name := range maskNames {
		mask, ok := sm[name]
		if !ok {
			return false, fmt.Errorf("sample is missing mask field %q", name)
		}
		sum, err := tensor.SumAll(mask)
		if err != nil {
			return false, fmt.Errorf("mask %q sum failed: %v", name, err)
		}
		v, err := sum.Item()
		if err != nil {
			return false, err
		}
		if v == 0 {
			return false, nil
		}
	}
	return true, nil
}

// batch gives every field a new leading dimension of size 1.
func batch(sm Sample) (Sample, error) {
	out := make(Sample, len(sm))
	for name, t := range sm {
		b, err := tensor.Unsqueeze(t, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to batch field %q: %v", name, err)
		}
		out[name] = b
	}
	return out, nil
}
