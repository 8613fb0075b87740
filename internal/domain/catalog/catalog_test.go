package catalog_test

import (
	"testing"

	"github.com/Josemiles-ctr/gaitlab/internal/domain/catalog"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCatalog(t *testing.T) {
	Convey("Given the gait-condition catalog", t, func() {
		Convey("Then it contains exactly nine classes", func() {
			So(catalog.Count(), ShouldEqual, 9)
			So(len(catalog.Names()), ShouldEqual, 9)
			So(len(catalog.Descriptions()), ShouldEqual, 9)
		})

		Convey("Then name and index form a bijection", func() {
			for i, name := range catalog.Names() {
				idx, err := catalog.Index(name)
				So(err, ShouldBeNil)
				So(idx, ShouldEqual, i)

				back, err := catalog.Name(i)
				So(err, ShouldBeNil)
				So(back, ShouldEqual, name)
			}
		})

		Convey("Then the first class is Normal", func() {
			name, err := catalog.Name(0)
			So(err, ShouldBeNil)
			So(name, ShouldEqual, "Normal")
		})

		Convey("Then every class has a description", func() {
			for _, name := range catalog.Names() {
				d, err := catalog.Description(name)
				So(err, ShouldBeNil)
				So(d, ShouldNotBeEmpty)
			}
		})

		Convey("When asking for an unknown name", func() {
			_, err := catalog.Index("Sprained_Ankle")
			So(err, ShouldNotBeNil)

			_, err = catalog.Description("Sprained_Ankle")
			So(err, ShouldNotBeNil)
		})

		Convey("When asking for an out-of-range index", func() {
			_, err := catalog.Name(9)
			So(err, ShouldNotBeNil)
			_, err = catalog.Name(-1)
			So(err, ShouldNotBeNil)
		})

		Convey("Then mutating a returned copy does not affect the catalog", func() {
			names := catalog.Names()
			names[0] = "tampered"
			fresh, err := catalog.Name(0)
			So(err, ShouldBeNil)
			So(fresh, ShouldEqual, "Normal")
		})
	})
}
