package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Josemiles-ctr/gaitlab/pkg/tensor"
)

const defaultRemoteTimeout = 30 * time.Second

// RemoteEmbedder calls a sentence-encoder sidecar over HTTP. The sidecar
// owns tokenization, truncation and attention-mask mean pooling; this client
// only validates the returned dimensionality. The returned vector is used
// as-is and is not re-normalized.
type RemoteEmbedder struct {
	baseURL    string
	dim        int
	httpClient *http.Client
}

// RemoteOption applies a configuration option to the RemoteEmbedder.
type RemoteOption func(*RemoteEmbedder)

// WithRemoteDim overrides the expected embedding dimensionality.
func WithRemoteDim(dim int) RemoteOption {
	return func(e *RemoteEmbedder) {
		if dim > 0 {
			e.dim = dim
		}
	}
}

// WithRemoteTimeout overrides the HTTP timeout.
func WithRemoteTimeout(timeout time.Duration) RemoteOption {
	return func(e *RemoteEmbedder) {
		if timeout > 0 {
			e.httpClient.Timeout = timeout
		}
	}
}

// WithRemoteHTTPClient replaces the HTTP client entirely.
func WithRemoteHTTPClient(c *http.Client) RemoteOption {
	return func(e *RemoteEmbedder) {
		if c != nil {
			e.httpClient = c
		}
	}
}

// NewRemoteEmbedder returns a client for the encoder at baseURL. The sidecar
// must expose POST /embed accepting {"text": ...} and returning
// {"embedding": [...]}.
func NewRemoteEmbedder(baseURL string, opts ...RemoteOption) (*RemoteEmbedder, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("remote embedder base URL must not be empty")
	}
	e := &RemoteEmbedder{
		baseURL:    strings.TrimRight(baseURL, "/"),
		dim:        DefaultDim,
		httpClient: &http.Client{Timeout: defaultRemoteTimeout},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Dim returns the embedding dimensionality.
func (e *RemoteEmbedder) Dim() int {
	return e.dim
}

type embedRequest struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed implements Embedder.
func (e *RemoteEmbedder) Embed(ctx context.Context, text string) (*tensor.Tensor, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w", ErrEmptyText)
	}

	payload, err := json.Marshal(embedRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", ErrRemote, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embed", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrRemote, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemote, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrRemote, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: encoder returned status %d: %s", ErrRemote, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed embedResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrRemote, err)
	}
	if len(parsed.Embedding) != e.dim {
		return nil, fmt.Errorf("%w: encoder returned %d dimensions, want %d", ErrRemote, len(parsed.Embedding), e.dim)
	}

	return tensor.FromSlice(parsed.Embedding, 1, e.dim)
}
