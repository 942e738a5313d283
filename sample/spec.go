package sample

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tkoren/go-multitask/tensor"
)

// MaskSuffix is the naming convention tying a mask field to its label:
// label "affinity" pairs with mask "affinity_mask".
const MaskSuffix = "_mask"

// Spec is the explicit schema of a sample: which fields are model inputs,
// which are per-task labels, and which masks gate those labels. It is built
// once, validated up front, and assumed stable for the whole run. Model
// outputs correspond positionally to Labels() order.
type Spec struct {
	inputs    []string
	labels    []string
	masks     []string
	maskIndex map[string]int // label name -> position in masks
}

// NewSpec builds a Spec from an explicit declaration. maskFor maps a label
// name to its mask field name; labels without an entry are unmasked. Mask
// order follows label order.
func NewSpec(inputs, labels []string, maskFor map[string]string) (*Spec, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("spec requires at least one label")
	}

	seen := make(map[string]string)
	for _, name := range inputs {
		if prev, ok := seen[name]; ok {
			return nil, fmt.Errorf("field %q declared as both %s and input", name, prev)
		}
		seen[name] = "input"
	}
	for _, name := range labels {
		if prev, ok := seen[name]; ok {
			return nil, fmt.Errorf("field %q declared as both %s and label", name, prev)
		}
		seen[name] = "label"
	}

	isLabel := make(map[string]bool, len(labels))
	for _, name := range labels {
		isLabel[name] = true
	}

	spec := &Spec{
		inputs:    append([]string(nil), inputs...),
		labels:    append([]string(nil), labels...),
		maskIndex: make(map[string]int),
	}

	for label := range maskFor {
		if !isLabel[label] {
			return nil, fmt.Errorf("mask declared for unknown label %q", label)
		}
	}
	for _, label := range labels {
		mask, ok := maskFor[label]
		if !ok {
			continue
		}
		if prev, dup := seen[mask]; dup {
			return nil, fmt.Errorf("field %q declared as both %s and mask", mask, prev)
		}
		seen[mask] = "mask"
		spec.maskIndex[label] = len(spec.masks)
		spec.masks = append(spec.masks, mask)
	}

	return spec, nil
}

// InferSpec classifies a sample's field names against a declared label set
// using the MaskSuffix convention: a field "<label>_mask" is the mask for
// that label, every remaining field is an input. A mask-like field whose base
// is not a declared label is a classification error. Field names are sorted
// so the result does not depend on map iteration order.
func InferSpec(fields []string, labels []string) (*Spec, error) {
	isLabel := make(map[string]bool, len(labels))
	for _, name := range labels {
		isLabel[name] = true
	}

	present := make(map[string]bool, len(fields))
	sorted := append([]string(nil), fields...)
	sort.Strings(sorted)

	var inputs []string
	maskFor := make(map[string]string)

	for _, name := range sorted {
		if present[name] {
			return nil, fmt.Errorf("duplicate field name %q", name)
		}
		present[name] = true

		switch {
		case isLabel[name]:
			// Positions come from the declared label order below.
		case strings.HasSuffix(name, MaskSuffix):
			base := strings.TrimSuffix(name, MaskSuffix)
			if !isLabel[base] {
				return nil, fmt.Errorf("field %q looks like a mask but %q is not a declared label", name, base)
			}
			maskFor[base] = name
		default:
			inputs = append(inputs, name)
		}
	}

	for _, label := range labels {
		if !present[label] {
			return nil, fmt.Errorf("declared label %q not present in sample fields", label)
		}
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no input fields remain after classification")
	}

	return NewSpec(inputs, labels, maskFor)
}

func (s *Spec) Inputs() []string {
	return append([]string(nil), s.inputs...)
}

func (s *Spec) Labels() []string {
	return append([]string(nil), s.labels...)
}

func (s *Spec) Masks() []string {
	return append([]string(nil), s.masks...)
}

func (s *Spec) HasMask(label string) bool {
	_, ok := s.maskIndex[label]
	return ok
}

// MaskIndex returns the position of label's mask within Masks() order.
func (s *Spec) MaskIndex(label string) (int, bool) {
	idx, ok := s.maskIndex[label]
	return idx, ok
}

// Validate checks that a sample carries exactly the declared fields.
func (s *Spec) Validate(sm Sample) error {
	declared := make(map[string]bool, len(s.inputs)+len(s.labels)+len(s.masks))
	for _, name := range s.inputs {
		declared[name] = true
	}
	for _, name := range s.labels {
		declared[name] = true
	}
	for _, name := range s.masks {
		declared[name] = true
	}

	for name := range declared {
		if _, ok := sm[name]; !ok {
			return fmt.Errorf("sample is missing declared field %q", name)
		}
	}
	for name := range sm {
		if !declared[name] {
			return fmt.Errorf("sample field %q matches no declared role", name)
		}
	}
	return nil
}

// Split extracts the sample's tensors in role order: inputs, labels, masks.
func (s *Spec) Split(sm Sample) (inputs, labels, masks []*tensor.Tensor, err error) {
	pick := func(names []string) ([]*tensor.Tensor, error) {
		out := make([]*tensor.Tensor, 0, len(names))
		for _, name := range names {
			t, ok := sm[name]
			if !ok {
				return nil, fmt.Errorf("sample is missing field %q", name)
			}
			out = append(out, t)
		}
		return out, nil
	}

	if inputs, err = pick(s.inputs); err != nil {
		return nil, nil, nil, err
	}
	if labels, err = pick(s.labels); err != nil {
		return nil, nil, nil, err
	}
	if masks, err = pick(s.masks); err != nil {
		return nil, nil, nil, err
	}
	return inputs, labels, masks, nil
}
