// Package nn implements the inference-only neural network layers used by the
// gait classifier. Only the exact layer shapes the model needs are supported:
// 5-D (N,C,T,H,W) activations for the convolutional stack and 2-D (N,F)
// activations for the fully connected layers.
//
// Layer semantics mirror the training framework: 3x3x3 convolutions with
// same padding, eval-mode batch normalization, spatial-only max pooling and
// adaptive average pooling with overlapping bin edges.
package nn

import (
	"fmt"
	"math"

	"github.com/Josemiles-ctr/gaitlab/pkg/tensor"
)

const batchNormEps = 1e-5

// Conv3d is a 3x3x3 convolution with padding 1 and stride 1.
type Conv3d struct {
	InChannels  int
	OutChannels int

	// Weight has shape (out, in, 3, 3, 3); Bias has shape (out).
	Weight *tensor.Tensor
	Bias   *tensor.Tensor
}

// NewConv3d allocates a zero-weight convolution.
func NewConv3d(inChannels, outChannels int) (*Conv3d, error) {
	w, err := tensor.New(outChannels, inChannels, 3, 3, 3)
	if err != nil {
		return nil, err
	}
	b, err := tensor.New(outChannels)
	if err != nil {
		return nil, err
	}
	return &Conv3d{InChannels: inChannels, OutChannels: outChannels, Weight: w, Bias: b}, nil
}

// Forward applies the convolution to a (N,C,T,H,W) input.
func (l *Conv3d) Forward(in *tensor.Tensor) (*tensor.Tensor, error) {
	if in.Rank() != 5 {
		return nil, fmt.Errorf("conv3d expects rank-5 input, got shape %v", in.Shape())
	}
	if in.Dim(1) != l.InChannels {
		return nil, fmt.Errorf("conv3d expects %d input channels, got %d", l.InChannels, in.Dim(1))
	}

	n, t, h, w := in.Dim(0), in.Dim(2), in.Dim(3), in.Dim(4)
	out, err := tensor.New(n, l.OutChannels, t, h, w)
	if err != nil {
		return nil, err
	}

	inData := in.Data()
	outData := out.Data()
	wData := l.Weight.Data()
	bData := l.Bias.Data()

	inChanStride := t * h * w
	inBatchStride := l.InChannels * inChanStride
	outChanStride := t * h * w
	outBatchStride := l.OutChannels * outChanStride
	// Weight strides for (out, in, 3, 3, 3).
	wInStride := 27
	wOutStride := l.InChannels * wInStride

	for b := 0; b < n; b++ {
		for oc := 0; oc < l.OutChannels; oc++ {
			bias := bData[oc]
			for tt := 0; tt < t; tt++ {
				for y := 0; y < h; y++ {
					for x := 0; x < w; x++ {
						acc := bias
						for ic := 0; ic < l.InChannels; ic++ {
							inBase := b*inBatchStride + ic*inChanStride
							wBase := oc*wOutStride + ic*wInStride
							for kt := -1; kt <= 1; kt++ {
								st := tt + kt
								if st < 0 || st >= t {
									continue
								}
								for ky := -1; ky <= 1; ky++ {
									sy := y + ky
									if sy < 0 || sy >= h {
										continue
									}
									for kx := -1; kx <= 1; kx++ {
										sx := x + kx
										if sx < 0 || sx >= w {
											continue
										}
										wIdx := wBase + (kt+1)*9 + (ky+1)*3 + (kx + 1)
										acc += wData[wIdx] * inData[inBase+st*h*w+sy*w+sx]
									}
								}
							}
						}
						outData[b*outBatchStride+oc*outChanStride+tt*h*w+y*w+x] = acc
					}
				}
			}
		}
	}
	return out, nil
}

// BatchNorm3d applies eval-mode batch normalization per channel.
type BatchNorm3d struct {
	Channels int

	// All four tensors have shape (Channels).
	Weight      *tensor.Tensor // gamma
	Bias        *tensor.Tensor // beta
	RunningMean *tensor.Tensor
	RunningVar  *tensor.Tensor
}

// NewBatchNorm3d allocates an identity batch norm (gamma 1, beta 0).
func NewBatchNorm3d(channels int) (*BatchNorm3d, error) {
	bn := &BatchNorm3d{Channels: channels}
	var err error
	if bn.Weight, err = tensor.New(channels); err != nil {
		return nil, err
	}
	if bn.Bias, err = tensor.New(channels); err != nil {
		return nil, err
	}
	if bn.RunningMean, err = tensor.New(channels); err != nil {
		return nil, err
	}
	if bn.RunningVar, err = tensor.New(channels); err != nil {
		return nil, err
	}
	for i := 0; i < channels; i++ {
		bn.Weight.Data()[i] = 1
		bn.RunningVar.Data()[i] = 1
	}
	return bn, nil
}

// Forward normalizes a (N,C,T,H,W) input in a freshly allocated tensor.
func (l *BatchNorm3d) Forward(in *tensor.Tensor) (*tensor.Tensor, error) {
	if in.Rank() != 5 || in.Dim(1) != l.Channels {
		return nil, fmt.Errorf("batchnorm3d expects (N,%d,T,H,W) input, got shape %v", l.Channels, in.Shape())
	}

	n := in.Dim(0)
	plane := in.Dim(2) * in.Dim(3) * in.Dim(4)
	out, err := tensor.New(in.Shape()...)
	if err != nil {
		return nil, err
	}

	inData := in.Data()
	outData := out.Data()
	for c := 0; c < l.Channels; c++ {
		gamma := l.Weight.Data()[c]
		beta := l.Bias.Data()[c]
		mean := l.RunningMean.Data()[c]
		invStd := float32(1 / math.Sqrt(float64(l.RunningVar.Data()[c])+batchNormEps))
		for b := 0; b < n; b++ {
			base := (b*l.Channels + c) * plane
			for i := 0; i < plane; i++ {
				outData[base+i] = (inData[base+i]-mean)*invStd*gamma + beta
			}
		}
	}
	return out, nil
}

// ReLU zeroes negative activations in place and returns the input tensor.
func ReLU(in *tensor.Tensor) *tensor.Tensor {
	data := in.Data()
	for i, v := range data {
		if v < 0 {
			data[i] = 0
		}
	}
	return in
}

// MaxPool3dSpatial halves the spatial dimensions with a (1,2,2) window and
// stride, leaving the temporal extent untouched.
func MaxPool3dSpatial(in *tensor.Tensor) (*tensor.Tensor, error) {
	if in.Rank() != 5 {
		return nil, fmt.Errorf("maxpool3d expects rank-5 input, got shape %v", in.Shape())
	}
	n, c, t, h, w := in.Dim(0), in.Dim(1), in.Dim(2), in.Dim(3), in.Dim(4)
	oh, ow := h/2, w/2
	if oh == 0 || ow == 0 {
		return nil, fmt.Errorf("maxpool3d input %dx%d too small to pool", h, w)
	}

	out, err := tensor.New(n, c, t, oh, ow)
	if err != nil {
		return nil, err
	}
	inData := in.Data()
	outData := out.Data()

	for b := 0; b < n; b++ {
		for ch := 0; ch < c; ch++ {
			for tt := 0; tt < t; tt++ {
				inBase := ((b*c+ch)*t + tt) * h * w
				outBase := ((b*c+ch)*t + tt) * oh * ow
				for y := 0; y < oh; y++ {
					for x := 0; x < ow; x++ {
						i0 := inBase + (2*y)*w + 2*x
						m := inData[i0]
						if v := inData[i0+1]; v > m {
							m = v
						}
						if v := inData[i0+w]; v > m {
							m = v
						}
						if v := inData[i0+w+1]; v > m {
							m = v
						}
						outData[outBase+y*ow+x] = m
					}
				}
			}
		}
	}
	return out, nil
}

// AdaptiveAvgPoolSpatial averages the spatial dimensions of a (N,C,T,H,W)
// input down (or up) to outH x outW, keeping the temporal extent. Bin edges
// follow the floor/ceil convention, so output sizes larger than the input
// replicate overlapping regions.
func AdaptiveAvgPoolSpatial(in *tensor.Tensor, outH, outW int) (*tensor.Tensor, error) {
	if in.Rank() != 5 {
		return nil, fmt.Errorf("adaptive pool expects rank-5 input, got shape %v", in.Shape())
	}
	if outH <= 0 || outW <= 0 {
		return nil, fmt.Errorf("adaptive pool output %dx%d must be positive", outH, outW)
	}

	n, c, t, h, w := in.Dim(0), in.Dim(1), in.Dim(2), in.Dim(3), in.Dim(4)
	out, err := tensor.New(n, c, t, outH, outW)
	if err != nil {
		return nil, err
	}
	inData := in.Data()
	outData := out.Data()

	for b := 0; b < n; b++ {
		for ch := 0; ch < c; ch++ {
			for tt := 0; tt < t; tt++ {
				inBase := ((b*c+ch)*t + tt) * h * w
				outBase := ((b*c+ch)*t + tt) * outH * outW
				for y := 0; y < outH; y++ {
					y0 := (y * h) / outH
					y1 := ((y+1)*h + outH - 1) / outH
					for x := 0; x < outW; x++ {
						x0 := (x * w) / outW
						x1 := ((x+1)*w + outW - 1) / outW
						var sum float32
						for sy := y0; sy < y1; sy++ {
							for sx := x0; sx < x1; sx++ {
								sum += inData[inBase+sy*w+sx]
							}
						}
						outData[outBase+y*outW+x] = sum / float32((y1-y0)*(x1-x0))
					}
				}
			}
		}
	}
	return out, nil
}

// Flatten reshapes any tensor to (N, rest).
func Flatten(in *tensor.Tensor) (*tensor.Tensor, error) {
	if in.Rank() < 2 {
		return nil, fmt.Errorf("flatten expects rank >= 2, got shape %v", in.Shape())
	}
	n := in.Dim(0)
	return tensor.FromSlice(in.Data(), n, in.Len()/n)
}

// Linear is a fully connected layer with weights in (out, in) layout.
type Linear struct {
	InFeatures  int
	OutFeatures int

	Weight *tensor.Tensor // (out, in)
	Bias   *tensor.Tensor // (out)
}

// NewLinear allocates a zero-weight linear layer.
func NewLinear(inFeatures, outFeatures int) (*Linear, error) {
	w, err := tensor.New(outFeatures, inFeatures)
	if err != nil {
		return nil, err
	}
	b, err := tensor.New(outFeatures)
	if err != nil {
		return nil, err
	}
	return &Linear{InFeatures: inFeatures, OutFeatures: outFeatures, Weight: w, Bias: b}, nil
}

// Forward applies the layer to a (N, in) input.
func (l *Linear) Forward(in *tensor.Tensor) (*tensor.Tensor, error) {
	if in.Rank() != 2 || in.Dim(1) != l.InFeatures {
		return nil, fmt.Errorf("linear expects (N,%d) input, got shape %v", l.InFeatures, in.Shape())
	}

	n := in.Dim(0)
	out, err := tensor.New(n, l.OutFeatures)
	if err != nil {
		return nil, err
	}
	inData := in.Data()
	outData := out.Data()
	wData := l.Weight.Data()
	bData := l.Bias.Data()

	for b := 0; b < n; b++ {
		for o := 0; o < l.OutFeatures; o++ {
			acc := bData[o]
			wBase := o * l.InFeatures
			inBase := b * l.InFeatures
			for i := 0; i < l.InFeatures; i++ {
				acc += wData[wBase+i] * inData[inBase+i]
			}
			outData[b*l.OutFeatures+o] = acc
		}
	}
	return out, nil
}
