package model

import (
	"fmt"
	"strings"

	"github.com/Josemiles-ctr/gaitlab/internal/domain/nn"
	"github.com/Josemiles-ctr/gaitlab/pkg/tensor"
)

// Parameter names follow the original checkpoint's module layout: the visual
// encoder is a sequential stack whose conv/bn layers sit at fixed indices,
// and the head's two linear layers sit at indices 0 and 3 (ReLU and Dropout
// between them carry no parameters).

// LoadWeights populates the network from a safetensors blob at path.
// Checkpoints saved from a parallel-training wrapper prefix every key with
// "module."; those prefixes are stripped before matching. A missing
// parameter or a shape mismatch yields ErrWeightLoad.
func (m *ClinicalStudent) LoadWeights(path string) error {
	raw, err := nn.ReadSafetensors(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWeightLoad, err)
	}
	return m.loadState(raw)
}

// loadState assigns a parsed parameter map to the network.
func (m *ClinicalStudent) loadState(raw map[string]*tensor.Tensor) error {
	params := make(map[string]*tensor.Tensor, len(raw))
	for name, t := range raw {
		params[strings.TrimPrefix(name, "module.")] = t
	}

	// Sequential indices of the conv/bn pairs inside visual_encoder.
	convIdx := [3]int{0, 4, 8}
	bnIdx := [3]int{1, 5, 9}

	for i, s := range m.stages {
		prefix := fmt.Sprintf("visual_encoder.%d", convIdx[i])
		if err := assign(params, prefix+".weight", s.conv.Weight); err != nil {
			return err
		}
		if err := assign(params, prefix+".bias", s.conv.Bias); err != nil {
			return err
		}

		prefix = fmt.Sprintf("visual_encoder.%d", bnIdx[i])
		if err := assign(params, prefix+".weight", s.bn.Weight); err != nil {
			return err
		}
		if err := assign(params, prefix+".bias", s.bn.Bias); err != nil {
			return err
		}
		if err := assign(params, prefix+".running_mean", s.bn.RunningMean); err != nil {
			return err
		}
		if err := assign(params, prefix+".running_var", s.bn.RunningVar); err != nil {
			return err
		}
	}

	if err := assign(params, "clinical_proj.weight", m.clinicalProj.Weight); err != nil {
		return err
	}
	if err := assign(params, "clinical_proj.bias", m.clinicalProj.Bias); err != nil {
		return err
	}
	if err := assign(params, "classifier.0.weight", m.head1.Weight); err != nil {
		return err
	}
	if err := assign(params, "classifier.0.bias", m.head1.Bias); err != nil {
		return err
	}
	if err := assign(params, "classifier.3.weight", m.head2.Weight); err != nil {
		return err
	}
	if err := assign(params, "classifier.3.bias", m.head2.Bias); err != nil {
		return err
	}

	// Extra keys (num_batches_tracked and friends) are ignored.
	return nil
}

// assign copies a named parameter into dst, enforcing the shape contract.
func assign(params map[string]*tensor.Tensor, name string, dst *tensor.Tensor) error {
	src, ok := params[name]
	if !ok {
		return fmt.Errorf("%w: parameter %q missing from weight blob", ErrWeightLoad, name)
	}
	if !tensor.SameShape(src, dst) {
		return fmt.Errorf("%w: parameter %q has shape %v, architecture expects %v",
			ErrWeightLoad, name, src.Shape(), dst.Shape())
	}
	copy(dst.Data(), src.Data())
	return nil
}
