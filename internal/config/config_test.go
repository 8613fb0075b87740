package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Josemiles-ctr/gaitlab/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDefaults(t *testing.T) {
	Convey("Given a default configuration", t, func() {
		c := config.New()

		Convey("Then the inference pipeline defaults match the trained model", func() {
			So(c.NumFrames, ShouldEqual, 16)
			So(c.FrameSize, ShouldEqual, 224)
			So(c.Embedding.Dim, ShouldEqual, 384)
			So(c.Embedding.Strategy, ShouldEqual, "hash")
		})

		Convey("Then the service defaults are sane", func() {
			So(c.Addr, ShouldEqual, ":8000")
			So(c.MaxConcurrentInferences, ShouldEqual, 1)
			So(c.MaxUploadSize, ShouldEqual, int64(100<<20))
			So(c.PreloadModel, ShouldBeFalse)
		})

		Convey("Then the defaults validate", func() {
			So(c.Validate(), ShouldBeNil)
		})
	})
}

func TestValidate(t *testing.T) {
	Convey("Given invalid configurations", t, func() {
		cases := map[string]func(*config.Config){
			"empty addr":          func(c *config.Config) { c.Addr = "" },
			"empty model path":    func(c *config.Config) { c.ModelPath = "" },
			"gpu device":          func(c *config.Config) { c.Device = "cuda" },
			"zero frames":         func(c *config.Config) { c.NumFrames = 0 },
			"tiny frame size":     func(c *config.Config) { c.FrameSize = 4 },
			"zero chunk":          func(c *config.Config) { c.ChunkSize = 0 },
			"zero concurrency":    func(c *config.Config) { c.MaxConcurrentInferences = 0 },
			"zero upload cap":     func(c *config.Config) { c.MaxUploadSize = 0 },
			"zero embedding dim":  func(c *config.Config) { c.Embedding.Dim = 0 },
			"unknown strategy":    func(c *config.Config) { c.Embedding.Strategy = "magic" },
			"remote without url":  func(c *config.Config) { c.Embedding.Strategy = "remote"; c.Embedding.RemoteURL = "" },
		}
		for name, mutate := range cases {
			Convey("Then "+name+" is rejected", func() {
				c := config.New()
				mutate(c)
				So(errors.Is(c.Validate(), config.ErrInvalidConfig), ShouldBeTrue)
			})
		}
	})
}

// The Load scenarios run as separate test functions: t.Setenv stays set for
// the remainder of the enclosing function, so mixing env scenarios in one
// function lets one scenario's override leak into the next.

func TestLoadEnvOverrides(t *testing.T) {
	Convey("Given environment overrides", t, func() {
		t.Setenv("GAITLAB_ADDR", ":9999")
		t.Setenv("GAITLAB_NUM_FRAMES", "8")
		t.Setenv("GAITLAB_EMBEDDING_STRATEGY", "remote")
		t.Setenv("GAITLAB_EMBEDDING_REMOTE_URL", "http://embedder:9000")

		cfg, err := config.Load(context.Background())
		So(err, ShouldBeNil)

		Convey("Then env values win over defaults", func() {
			So(cfg.Addr, ShouldEqual, ":9999")
			So(cfg.NumFrames, ShouldEqual, 8)
		})

		Convey("Then nested embedding keys map through", func() {
			So(cfg.Embedding.Strategy, ShouldEqual, "remote")
			So(cfg.Embedding.RemoteURL, ShouldEqual, "http://embedder:9000")
		})
	})
}

func TestLoadFile(t *testing.T) {
	Convey("Given a YAML config file", t, func() {
		path := filepath.Join(t.TempDir(), "config.yaml")
		yaml := "addr: \":7070\"\nnum_frames: 4\nembedding:\n  strategy: hash\n  dim: 128\n"
		So(os.WriteFile(path, []byte(yaml), 0o644), ShouldBeNil)
		t.Setenv("GAITLAB_CONFIG", path)

		cfg, err := config.Load(context.Background())
		So(err, ShouldBeNil)

		Convey("Then file values win over defaults", func() {
			So(cfg.Addr, ShouldEqual, ":7070")
			So(cfg.NumFrames, ShouldEqual, 4)
			So(cfg.Embedding.Dim, ShouldEqual, 128)
		})
	})
}

func TestLoadPrecedence(t *testing.T) {
	Convey("Given both a YAML file and an env override for the same key", t, func() {
		path := filepath.Join(t.TempDir(), "config.yaml")
		So(os.WriteFile(path, []byte("addr: \":7070\"\n"), 0o644), ShouldBeNil)
		t.Setenv("GAITLAB_CONFIG", path)
		t.Setenv("GAITLAB_ADDR", ":6060")

		cfg, err := config.Load(context.Background())
		So(err, ShouldBeNil)

		Convey("Then env wins over the file", func() {
			So(cfg.Addr, ShouldEqual, ":6060")
		})
	})
}

func TestLoadMissingFile(t *testing.T) {
	Convey("Given a missing config file", t, func() {
		t.Setenv("GAITLAB_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))
		_, err := config.Load(context.Background())
		So(errors.Is(err, config.ErrLoadConfig), ShouldBeTrue)
	})
}

func TestLoadInvalidEnv(t *testing.T) {
	Convey("Given an invalid env override", t, func() {
		t.Setenv("GAITLAB_EMBEDDING_STRATEGY", "magic")
		_, err := config.Load(context.Background())
		So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
	})
}
