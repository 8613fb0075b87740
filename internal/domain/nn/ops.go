package nn

import (
	"fmt"
	"math"

	"github.com/Josemiles-ctr/gaitlab/pkg/tensor"
)

// Softmax converts a (N, C) logits tensor into per-row probability
// distributions. The maximum logit is subtracted per row for numeric
// stability, so very large logits cannot overflow.
func Softmax(logits *tensor.Tensor) (*tensor.Tensor, error) {
	if logits.Rank() != 2 {
		return nil, fmt.Errorf("softmax expects rank-2 input, got shape %v", logits.Shape())
	}

	n, c := logits.Dim(0), logits.Dim(1)
	out, err := tensor.New(n, c)
	if err != nil {
		return nil, err
	}
	inData := logits.Data()
	outData := out.Data()

	for b := 0; b < n; b++ {
		row := inData[b*c : (b+1)*c]
		maxVal := row[0]
		for _, v := range row[1:] {
			if v > maxVal {
				maxVal = v
			}
		}

		var sum float64
		for i, v := range row {
			e := math.Exp(float64(v - maxVal))
			outData[b*c+i] = float32(e)
			sum += e
		}
		inv := float32(1 / sum)
		for i := 0; i < c; i++ {
			outData[b*c+i] *= inv
		}
	}
	return out, nil
}

// Argmax returns the index of the largest value in the first row of a
// (1, C) tensor. Ties resolve to the lowest index.
func Argmax(probs *tensor.Tensor) (int, error) {
	if probs.Rank() != 2 || probs.Dim(0) != 1 {
		return 0, fmt.Errorf("argmax expects (1,C) input, got shape %v", probs.Shape())
	}

	data := probs.Data()
	best := 0
	for i := 1; i < len(data); i++ {
		if data[i] > data[best] {
			best = i
		}
	}
	return best, nil
}
