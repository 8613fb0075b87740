package storage_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Josemiles-ctr/gaitlab/internal/adapters/storage"
	. "github.com/smartystreets/goconvey/convey"
)

func TestTempStore(t *testing.T) {
	Convey("Given a temp store in a fresh directory", t, func() {
		dir := filepath.Join(t.TempDir(), "uploads")
		store, err := storage.NewTempStore(dir)
		So(err, ShouldBeNil)
		So(store.Dir(), ShouldEqual, dir)

		Convey("When saving an upload", func() {
			path, err := store.Save(strings.NewReader("fake video bytes"), "walk.mp4")
			So(err, ShouldBeNil)

			Convey("Then the file exists with the uploaded content", func() {
				data, err := os.ReadFile(path)
				So(err, ShouldBeNil)
				So(string(data), ShouldEqual, "fake video bytes")
			})

			Convey("Then the name keeps the original filename as a suffix", func() {
				So(filepath.Base(path), ShouldEndWith, "_walk.mp4")
			})

			Convey("Then removing it deletes the file", func() {
				So(store.Remove(path), ShouldBeNil)
				_, err := os.Stat(path)
				So(os.IsNotExist(err), ShouldBeTrue)
			})

			Convey("Then removing it twice is not an error", func() {
				So(store.Remove(path), ShouldBeNil)
				So(store.Remove(path), ShouldBeNil)
			})
		})

		Convey("When saving the same filename twice", func() {
			a, err := store.Save(strings.NewReader("one"), "walk.mp4")
			So(err, ShouldBeNil)
			b, err := store.Save(strings.NewReader("two"), "walk.mp4")
			So(err, ShouldBeNil)

			Convey("Then the paths never collide", func() {
				So(a, ShouldNotEqual, b)
			})
		})

		Convey("When saving a filename with path components", func() {
			path, err := store.Save(strings.NewReader("x"), "../../etc/passwd")
			So(err, ShouldBeNil)

			Convey("Then the file stays inside the store directory", func() {
				So(filepath.Dir(path), ShouldEqual, dir)
			})
		})

		Convey("When saving a hostile filename", func() {
			path, err := store.Save(strings.NewReader("x"), "ga it;$(rm).mp4")
			So(err, ShouldBeNil)
			So(filepath.Base(path), ShouldNotContainSubstring, ";")
			So(filepath.Base(path), ShouldNotContainSubstring, "$")
			So(filepath.Base(path), ShouldNotContainSubstring, " ")
		})
	})
}
