package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/Josemiles-ctr/gaitlab/pkg/tensor"
)

// HashEmbedder derives a deterministic pseudo-embedding from the text alone:
// sha256 of the UTF-8 bytes seeds a PRNG, a standard-normal vector is drawn
// and L2-normalized to unit length. Identical text always yields the
// identical vector, across calls and across process restarts.
type HashEmbedder struct {
	dim int
}

// HashOption applies a configuration option to the HashEmbedder.
type HashOption func(*HashEmbedder)

// WithHashDim overrides the embedding dimensionality.
func WithHashDim(dim int) HashOption {
	return func(e *HashEmbedder) {
		if dim > 0 {
			e.dim = dim
		}
	}
}

// NewHashEmbedder returns a hash-based embedder with DefaultDim dimensions.
func NewHashEmbedder(opts ...HashOption) *HashEmbedder {
	e := &HashEmbedder{dim: DefaultDim}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Dim returns the embedding dimensionality.
func (e *HashEmbedder) Dim() int {
	return e.dim
}

// Embed implements Embedder.
func (e *HashEmbedder) Embed(_ context.Context, text string) (*tensor.Tensor, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w", ErrEmptyText)
	}

	sum := sha256.Sum256([]byte(text))
	seed := binary.BigEndian.Uint32(sum[:4])
	rng := rand.New(rand.NewSource(int64(seed)))

	vec := make([]float32, e.dim)
	var norm float64
	for i := range vec {
		v := rng.NormFloat64()
		vec[i] = float32(v)
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		// Unreachable for dim > 0 in practice; keep the contract anyway.
		vec[0] = 1
	} else {
		inv := float32(1 / norm)
		for i := range vec {
			vec[i] *= inv
		}
	}

	return tensor.FromSlice(vec, 1, e.dim)
}
