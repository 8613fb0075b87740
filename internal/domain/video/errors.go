package video

import "errors"

// Sentinel kinds for video decoding errors.
var (
	// ErrDecode indicates the source video could not be probed or decoded.
	ErrDecode = errors.New("video decode failed")

	// ErrEmptyVideo indicates the source video contains no frames.
	ErrEmptyVideo = errors.New("video contains no frames")
)
