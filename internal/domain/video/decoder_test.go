package video_test

import (
	"testing"

	"github.com/Josemiles-ctr/gaitlab/internal/domain/video"
	. "github.com/smartystreets/goconvey/convey"
)

func TestChunking(t *testing.T) {
	Convey("Given a plan with repeated indices", t, func() {
		plan := []int{0, 1, 2, 3, 4, 4, 4, 4}

		Convey("Then UniqueIndices drops the repeats", func() {
			So(video.UniqueIndices(plan), ShouldResemble, []int{0, 1, 2, 3, 4})
		})
	})

	Convey("Given a set of unique indices", t, func() {
		indices := []int{0, 10, 19, 29, 38, 48, 57, 67}

		Convey("When partitioned into chunks of three", func() {
			chunks := video.ChunkIndices(indices, 3)

			Convey("Then chunks are consecutive and cover everything", func() {
				So(len(chunks), ShouldEqual, 3)
				So(chunks[0], ShouldResemble, []int{0, 10, 19})
				So(chunks[1], ShouldResemble, []int{29, 38, 48})
				So(chunks[2], ShouldResemble, []int{57, 67})
			})
		})

		Convey("When the chunk size exceeds the index count", func() {
			chunks := video.ChunkIndices(indices, 100)
			So(len(chunks), ShouldEqual, 1)
			So(chunks[0], ShouldResemble, indices)
		})

		Convey("When the chunk size is non-positive it falls back to one", func() {
			chunks := video.ChunkIndices(indices, 0)
			So(len(chunks), ShouldEqual, len(indices))
		})
	})
}

func TestSelectExpr(t *testing.T) {
	Convey("Given frame indices", t, func() {
		Convey("Then the select expression matches each frame number", func() {
			So(video.SelectExpr([]int{0}), ShouldEqual, `eq(n\,0)`)
			So(video.SelectExpr([]int{3, 7, 12}), ShouldEqual, `eq(n\,3)+eq(n\,7)+eq(n\,12)`)
		})
	})
}
