// Package preprocess converts decoded frames into the tensor layout the
// classifier expects.
package preprocess

import (
	"fmt"

	"github.com/Josemiles-ctr/gaitlab/internal/domain/video"
	"github.com/Josemiles-ctr/gaitlab/pkg/tensor"
)

// ImageNet channel statistics. The visual encoder was trained on inputs
// standardized with these constants.
var (
	channelMean = [3]float32{0.485, 0.456, 0.406}
	channelStd  = [3]float32{0.229, 0.224, 0.225}
)

// Normalize stacks N RGB frames into a (1, 3, N, H, W) tensor, scales the
// byte values to [0,1] and standardizes each channel.
//
// The decoder guarantees frames are RGB24 bytes in [0,255], so the scale
// factor is a fixed 1/255 rather than being inferred from the data.
func Normalize(frames []video.Frame, frameSize int) (*tensor.Tensor, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("no frames to normalize")
	}
	if frameSize <= 0 {
		return nil, fmt.Errorf("frame size must be positive, got %d", frameSize)
	}

	n := len(frames)
	want := frameSize * frameSize * 3
	for i, f := range frames {
		if len(f) != want {
			return nil, fmt.Errorf("frame %d has %d bytes, want %d for %dx%d RGB", i, len(f), want, frameSize, frameSize)
		}
	}

	out, err := tensor.New(1, 3, n, frameSize, frameSize)
	if err != nil {
		return nil, err
	}

	// Source layout is HWC per frame; destination is (1, C, T, H, W).
	data := out.Data()
	plane := n * frameSize * frameSize
	for t, f := range frames {
		for y := 0; y < frameSize; y++ {
			rowOff := y * frameSize * 3
			for x := 0; x < frameSize; x++ {
				pixOff := rowOff + x*3
				for c := 0; c < 3; c++ {
					v := float32(f[pixOff+c]) / 255.0
					v = (v - channelMean[c]) / channelStd[c]
					data[c*plane+t*frameSize*frameSize+y*frameSize+x] = v
				}
			}
		}
	}
	return out, nil
}
