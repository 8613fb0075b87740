package preprocess_test

import (
	"testing"

	"github.com/Josemiles-ctr/gaitlab/internal/domain/preprocess"
	"github.com/Josemiles-ctr/gaitlab/internal/domain/video"
	. "github.com/smartystreets/goconvey/convey"
)

// solidFrame builds a frameSize x frameSize RGB24 frame filled with one color.
func solidFrame(frameSize int, r, g, b byte) video.Frame {
	f := make(video.Frame, frameSize*frameSize*3)
	for i := 0; i < len(f); i += 3 {
		f[i], f[i+1], f[i+2] = r, g, b
	}
	return f
}

func TestNormalize(t *testing.T) {
	Convey("Given four solid white 8x8 frames", t, func() {
		const size = 8
		frames := []video.Frame{
			solidFrame(size, 255, 255, 255),
			solidFrame(size, 255, 255, 255),
			solidFrame(size, 255, 255, 255),
			solidFrame(size, 255, 255, 255),
		}

		ten, err := preprocess.Normalize(frames, size)
		So(err, ShouldBeNil)

		Convey("Then the tensor has shape (1, 3, N, H, W)", func() {
			So(ten.Shape(), ShouldResemble, []int{1, 3, 4, size, size})
		})

		Convey("Then each channel holds its standardized white value", func() {
			// (1.0 - mean) / std per channel.
			So(ten.At(0, 0, 0, 0, 0), ShouldAlmostEqual, (1.0-0.485)/0.229, 1e-5)
			So(ten.At(0, 1, 2, 3, 4), ShouldAlmostEqual, (1.0-0.456)/0.224, 1e-5)
			So(ten.At(0, 2, 3, 7, 7), ShouldAlmostEqual, (1.0-0.406)/0.225, 1e-5)
		})
	})

	Convey("Given a solid black frame", t, func() {
		const size = 4
		ten, err := preprocess.Normalize([]video.Frame{solidFrame(size, 0, 0, 0)}, size)
		So(err, ShouldBeNil)

		Convey("Then zero bytes standardize to -mean/std", func() {
			So(ten.At(0, 0, 0, 0, 0), ShouldAlmostEqual, -0.485/0.229, 1e-5)
			So(ten.At(0, 1, 0, 0, 0), ShouldAlmostEqual, -0.456/0.224, 1e-5)
			So(ten.At(0, 2, 0, 0, 0), ShouldAlmostEqual, -0.406/0.225, 1e-5)
		})
	})

	Convey("Given a frame with distinct channel values", t, func() {
		const size = 2
		ten, err := preprocess.Normalize([]video.Frame{solidFrame(size, 255, 0, 127)}, size)
		So(err, ShouldBeNil)

		Convey("Then channels land in their own planes", func() {
			So(ten.At(0, 0, 0, 1, 1), ShouldAlmostEqual, (1.0-0.485)/0.229, 1e-5)
			So(ten.At(0, 1, 0, 1, 1), ShouldAlmostEqual, (0.0-0.456)/0.224, 1e-5)
			So(ten.At(0, 2, 0, 1, 1), ShouldAlmostEqual, (127.0/255.0-0.406)/0.225, 1e-5)
		})
	})

	Convey("Given malformed input", t, func() {
		Convey("An empty frame list is rejected", func() {
			_, err := preprocess.Normalize(nil, 8)
			So(err, ShouldNotBeNil)
		})

		Convey("A frame with the wrong byte count is rejected", func() {
			_, err := preprocess.Normalize([]video.Frame{make(video.Frame, 10)}, 8)
			So(err, ShouldNotBeNil)
		})
	})
}
