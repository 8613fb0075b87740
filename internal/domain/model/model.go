// Package model defines the gait classifier network: a three-stage 3-D
// convolutional visual encoder fused with a linear projection of the
// clinical text embedding, followed by a small classification head.
package model

import (
	"fmt"

	"github.com/Josemiles-ctr/gaitlab/internal/domain/nn"
	"github.com/Josemiles-ctr/gaitlab/pkg/tensor"
)

// Pool output of the visual encoder: spatial extent collapses to 7x7 while
// the temporal extent is preserved.
const (
	pooledH = 7
	pooledW = 7
)

// Channel progression of the visual encoder stages.
var stageChannels = [4]int{3, 16, 32, 64}

// Config fixes the input geometry the network is built for. It must match
// the geometry the weights were trained with; none of it is negotiated at
// request time.
type Config struct {
	NumFrames    int // temporal extent T of the input clip
	FrameSize    int // spatial extent (square frames)
	EmbeddingDim int // clinical embedding dimensionality D
	NumClasses   int // size of the class catalog C
}

// stage is one conv+bn block of the visual encoder. ReLU and pooling carry
// no parameters and are applied functionally.
type stage struct {
	conv *nn.Conv3d
	bn   *nn.BatchNorm3d
}

// ClinicalStudent is the two-branch classifier. Construct with New, then
// LoadWeights before calling Forward.
type ClinicalStudent struct {
	cfg Config

	stages       [3]stage
	clinicalProj *nn.Linear
	head1        *nn.Linear // fused -> 256
	head2        *nn.Linear // 256 -> classes

	visualFlat int
}

// New builds the network with zeroed parameters.
func New(cfg Config) (*ClinicalStudent, error) {
	if cfg.NumFrames <= 0 || cfg.FrameSize <= 0 {
		return nil, fmt.Errorf("invalid input geometry %dx%d frames", cfg.NumFrames, cfg.FrameSize)
	}
	if cfg.EmbeddingDim <= 0 {
		return nil, fmt.Errorf("invalid embedding dimension %d", cfg.EmbeddingDim)
	}
	if cfg.NumClasses <= 0 {
		return nil, fmt.Errorf("invalid class count %d", cfg.NumClasses)
	}
	// Three spatial halvings precede the adaptive pool.
	if cfg.FrameSize/8 < 1 {
		return nil, fmt.Errorf("frame size %d too small for three pooling stages", cfg.FrameSize)
	}

	m := &ClinicalStudent{cfg: cfg}
	for i := 0; i < 3; i++ {
		conv, err := nn.NewConv3d(stageChannels[i], stageChannels[i+1])
		if err != nil {
			return nil, err
		}
		bn, err := nn.NewBatchNorm3d(stageChannels[i+1])
		if err != nil {
			return nil, err
		}
		m.stages[i] = stage{conv: conv, bn: bn}
	}

	m.visualFlat = stageChannels[3] * cfg.NumFrames * pooledH * pooledW

	var err error
	if m.clinicalProj, err = nn.NewLinear(cfg.EmbeddingDim, 128); err != nil {
		return nil, err
	}
	if m.head1, err = nn.NewLinear(m.visualFlat+128, 256); err != nil {
		return nil, err
	}
	if m.head2, err = nn.NewLinear(256, cfg.NumClasses); err != nil {
		return nil, err
	}
	return m, nil
}

// Config returns the geometry the network was built for.
func (m *ClinicalStudent) Config() Config {
	return m.cfg
}

// VisualFlatSize returns the flattened visual feature width.
func (m *ClinicalStudent) VisualFlatSize() int {
	return m.visualFlat
}

// Forward computes class logits from a (1,3,T,H,W) visual tensor and a
// (1,D) clinical embedding. The clinical embedding is structurally
// required; the head is sized for the fused feature vector.
func (m *ClinicalStudent) Forward(visual, clinical *tensor.Tensor) (*tensor.Tensor, error) {
	if visual == nil {
		return nil, fmt.Errorf("visual tensor is nil")
	}
	if clinical == nil {
		return nil, fmt.Errorf("clinical embedding is nil; the classifier head requires the fused input")
	}
	wantVisual := []int{1, 3, m.cfg.NumFrames, m.cfg.FrameSize, m.cfg.FrameSize}
	if !shapeEqual(visual.Shape(), wantVisual) {
		return nil, fmt.Errorf("visual tensor shape %v does not match model input %v", visual.Shape(), wantVisual)
	}
	if !shapeEqual(clinical.Shape(), []int{1, m.cfg.EmbeddingDim}) {
		return nil, fmt.Errorf("clinical embedding shape %v does not match (1,%d)", clinical.Shape(), m.cfg.EmbeddingDim)
	}

	x := visual
	var err error
	for _, s := range m.stages {
		if x, err = s.conv.Forward(x); err != nil {
			return nil, err
		}
		if x, err = s.bn.Forward(x); err != nil {
			return nil, err
		}
		x = nn.ReLU(x)
		if x, err = nn.MaxPool3dSpatial(x); err != nil {
			return nil, err
		}
	}
	if x, err = nn.AdaptiveAvgPoolSpatial(x, pooledH, pooledW); err != nil {
		return nil, err
	}
	visualFlat, err := nn.Flatten(x)
	if err != nil {
		return nil, err
	}

	projected, err := m.clinicalProj.Forward(clinical)
	if err != nil {
		return nil, err
	}

	fused, err := concatFeatures(visualFlat, projected)
	if err != nil {
		return nil, err
	}

	// Dropout between the head layers is an inference-time no-op.
	hidden, err := m.head1.Forward(fused)
	if err != nil {
		return nil, err
	}
	hidden = nn.ReLU(hidden)
	return m.head2.Forward(hidden)
}

// concatFeatures joins two (1,F) tensors along the feature axis.
func concatFeatures(a, b *tensor.Tensor) (*tensor.Tensor, error) {
	if a.Rank() != 2 || b.Rank() != 2 || a.Dim(0) != 1 || b.Dim(0) != 1 {
		return nil, fmt.Errorf("fusion expects (1,F) tensors, got %v and %v", a.Shape(), b.Shape())
	}
	joined := make([]float32, 0, a.Len()+b.Len())
	joined = append(joined, a.Data()...)
	joined = append(joined, b.Data()...)
	return tensor.FromSlice(joined, 1, a.Len()+b.Len())
}

func shapeEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
