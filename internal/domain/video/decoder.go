package video

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Frame is one decoded, resized frame as packed RGB24 bytes
// (height*width*3, values in [0,255]). The byte range is part of the
// contract consumed by the tensor normalizer.
type Frame []byte

// Decoder samples frames from video files by shelling out to ffmpeg and
// ffprobe, the same way a player or thumbnailer would. It holds no per-video
// state and is safe for concurrent use.
type Decoder struct {
	ffmpegPath  string
	ffprobePath string
}

// Option applies a configuration option to the Decoder.
type Option func(*Decoder)

// WithFFmpegPath overrides the ffmpeg binary location.
func WithFFmpegPath(path string) Option {
	return func(d *Decoder) {
		if path != "" {
			d.ffmpegPath = path
		}
	}
}

// WithFFprobePath overrides the ffprobe binary location.
func WithFFprobePath(path string) Option {
	return func(d *Decoder) {
		if path != "" {
			d.ffprobePath = path
		}
	}
}

// NewDecoder locates the ffmpeg and ffprobe binaries and returns a Decoder.
func NewDecoder(opts ...Option) (*Decoder, error) {
	d := &Decoder{}
	for _, opt := range opts {
		opt(d)
	}
	if d.ffmpegPath == "" {
		p, err := exec.LookPath("ffmpeg")
		if err != nil {
			return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
		}
		d.ffmpegPath = p
	}
	if d.ffprobePath == "" {
		p, err := exec.LookPath("ffprobe")
		if err != nil {
			return nil, fmt.Errorf("ffprobe not found in PATH: %w", err)
		}
		d.ffprobePath = p
	}
	return d, nil
}

// CountFrames returns the number of video frames in the file. It reads the
// container's nb_frames metadata first and falls back to an exact decode
// count when the container does not carry it.
func (d *Decoder) CountFrames(ctx context.Context, path string) (int, error) {
	if _, err := os.Stat(path); err != nil {
		return 0, fmt.Errorf("%w: video file not accessible: %v", ErrDecode, err)
	}

	if n, err := d.probeFrames(ctx, path, false); err == nil && n > 0 {
		return n, nil
	}

	n, err := d.probeFrames(ctx, path, true)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return n, nil
}

// probeFrames asks ffprobe for the stream frame count. With exact set, the
// whole stream is decoded to count frames instead of trusting metadata.
func (d *Decoder) probeFrames(ctx context.Context, path string, exact bool) (int, error) {
	entry := "stream=nb_frames"
	args := []string{
		"-v", "error",
		"-select_streams", "v:0",
	}
	if exact {
		entry = "stream=nb_read_frames"
		args = append(args, "-count_frames")
	}
	args = append(args,
		"-show_entries", entry,
		"-of", "default=nokey=1:noprint_wrappers=1",
		path,
	)

	cmd := exec.CommandContext(ctx, d.ffprobePath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe failed: %v: %s", err, strings.TrimSpace(stderr.String()))
	}

	out := strings.TrimSpace(stdout.String())
	if out == "" || out == "N/A" {
		return 0, fmt.Errorf("ffprobe reported no frame count")
	}
	n, err := strconv.Atoi(out)
	if err != nil {
		return 0, fmt.Errorf("unparseable frame count %q", out)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative frame count %d", n)
	}
	return n, nil
}

// SampleFrames decodes numFrames frames from the video at path, each resized
// to frameSize x frameSize. Source frames are decoded in chunks of at most
// chunkSize distinct indices per ffmpeg invocation so that peak memory stays
// bounded by one chunk of raw frames plus the accumulated resized output.
func (d *Decoder) SampleFrames(ctx context.Context, path string, numFrames, frameSize, chunkSize int) ([]Frame, error) {
	if frameSize <= 0 {
		return nil, fmt.Errorf("frame size must be positive, got %d", frameSize)
	}
	if chunkSize <= 0 {
		chunkSize = 1
	}

	total, err := d.CountFrames(ctx, path)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyVideo, path)
	}

	plan, err := Plan(total, numFrames)
	if err != nil {
		return nil, err
	}

	decoded := make(map[int]Frame, len(plan))
	for _, chunk := range ChunkIndices(UniqueIndices(plan), chunkSize) {
		frames, err := d.decodeChunk(ctx, path, chunk, frameSize)
		if err != nil {
			return nil, err
		}
		for i, idx := range chunk {
			decoded[idx] = frames[i]
		}
	}

	// Assemble plan order; repeated indices reuse the same decoded frame.
	out := make([]Frame, len(plan))
	for i, idx := range plan {
		f, ok := decoded[idx]
		if !ok {
			return nil, fmt.Errorf("%w: frame %d missing from decoded set", ErrDecode, idx)
		}
		out[i] = f
	}
	return out, nil
}

// UniqueIndices returns the distinct values of plan in ascending first-seen
// order. Plans are non-decreasing, so first-seen order is ascending.
func UniqueIndices(plan []int) []int {
	out := make([]int, 0, len(plan))
	seen := make(map[int]struct{}, len(plan))
	for _, idx := range plan {
		if _, ok := seen[idx]; ok {
			continue
		}
		seen[idx] = struct{}{}
		out = append(out, idx)
	}
	return out
}

// ChunkIndices partitions indices into consecutive groups of at most size.
func ChunkIndices(indices []int, size int) [][]int {
	if size <= 0 {
		size = 1
	}
	var out [][]int
	for start := 0; start < len(indices); start += size {
		end := start + size
		if end > len(indices) {
			end = len(indices)
		}
		out = append(out, indices[start:end])
	}
	return out
}

// SelectExpr builds the ffmpeg select-filter expression matching exactly the
// given source frame numbers.
func SelectExpr(indices []int) string {
	terms := make([]string, len(indices))
	for i, idx := range indices {
		terms[i] = fmt.Sprintf("eq(n\\,%d)", idx)
	}
	return strings.Join(terms, "+")
}

// decodeChunk runs one ffmpeg invocation that decodes only the given source
// frames, resizes them in-filter, and streams raw RGB24 bytes to stdout.
func (d *Decoder) decodeChunk(ctx context.Context, path string, indices []int, frameSize int) ([]Frame, error) {
	filter := fmt.Sprintf("select=%s,scale=%d:%d:flags=bilinear", SelectExpr(indices), frameSize, frameSize)
	args := []string{
		"-v", "error",
		"-i", path,
		"-vf", filter,
		"-vsync", "0",
		"-frames:v", strconv.Itoa(len(indices)),
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"pipe:1",
	}

	cmd := exec.CommandContext(ctx, d.ffmpegPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: ffmpeg failed: %v: %s", ErrDecode, err, strings.TrimSpace(stderr.String()))
	}

	frameBytes := frameSize * frameSize * 3
	raw := stdout.Bytes()
	if len(raw) != len(indices)*frameBytes {
		return nil, fmt.Errorf("%w: expected %d bytes for %d frames, got %d",
			ErrDecode, len(indices)*frameBytes, len(indices), len(raw))
	}

	frames := make([]Frame, len(indices))
	for i := range indices {
		f := make(Frame, frameBytes)
		copy(f, raw[i*frameBytes:(i+1)*frameBytes])
		frames[i] = f
	}
	return frames, nil
}
