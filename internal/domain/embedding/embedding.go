// Package embedding turns free-text clinical descriptions into fixed-size
// vectors for the classifier's clinical branch.
//
// Two strategies exist: a deterministic hash-based pseudo-embedding that
// needs no model weights, and a remote sentence-encoder client for
// deployments that can afford a transformer sidecar. The strategy is chosen
// once from configuration; both produce a (1, Dim) tensor and the classifier
// does not know which one is active.
//
// The two strategies are not numerically interchangeable: weights trained
// against one strategy's vectors will behave unpredictably under the other.
// Switching strategies on a deployed checkpoint requires re-validation.
package embedding

import (
	"context"
	"errors"

	"github.com/Josemiles-ctr/gaitlab/pkg/tensor"
)

// DefaultDim is the embedding dimensionality shared by both strategies. The
// classifier's clinical projection is sized against this value.
const DefaultDim = 384

// Sentinel kinds for embedding errors.
var (
	// ErrEmptyText indicates blank input reached the embedder. Callers are
	// expected to validate text before embedding.
	ErrEmptyText = errors.New("clinical text is empty")

	// ErrRemote indicates the remote sentence-encoder call failed.
	ErrRemote = errors.New("remote embedding failed")
)

// Embedder produces a (1, Dim) vector from clinical text.
type Embedder interface {
	// Embed returns the embedding for text. Text must be non-blank.
	Embed(ctx context.Context, text string) (*tensor.Tensor, error)

	// Dim returns the embedding dimensionality.
	Dim() int
}
