// Package video extracts a fixed number of frames from an input video using
// ffmpeg, keeping peak memory bounded by decoding in small chunks.
package video

import (
	"fmt"
	"math"
)

// Plan computes which source-frame indices to sample.
//
// When the video has no more frames than requested, every frame is taken and
// the last index is repeated until the plan reaches the requested length.
// Otherwise the plan spans [0, total-1] inclusive with evenly spaced indices,
// rounded to the nearest integer.
func Plan(total, want int) ([]int, error) {
	if want <= 0 {
		return nil, fmt.Errorf("requested frame count must be positive, got %d", want)
	}
	if total < 0 {
		return nil, fmt.Errorf("negative source frame count %d", total)
	}
	if total == 0 {
		return nil, fmt.Errorf("%w", ErrEmptyVideo)
	}

	plan := make([]int, 0, want)
	if total <= want {
		for i := 0; i < total; i++ {
			plan = append(plan, i)
		}
		for len(plan) < want {
			plan = append(plan, total-1)
		}
		return plan, nil
	}

	if want == 1 {
		return []int{0}, nil
	}
	step := float64(total-1) / float64(want-1)
	for i := 0; i < want; i++ {
		plan = append(plan, int(math.Round(float64(i)*step)))
	}
	return plan, nil
}
