package service_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	service "github.com/Josemiles-ctr/gaitlab/internal/app"
	"github.com/Josemiles-ctr/gaitlab/internal/domain/catalog"
	"github.com/Josemiles-ctr/gaitlab/internal/domain/video"
	"github.com/Josemiles-ctr/gaitlab/pkg/logger"
	"github.com/Josemiles-ctr/gaitlab/pkg/metrics"
	"github.com/Josemiles-ctr/gaitlab/pkg/tensor"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeDecoder serves synthetic frames without touching ffmpeg.
type fakeDecoder struct {
	err   error
	calls int
}

func (d *fakeDecoder) CountFrames(_ context.Context, _ string) (int, error) {
	if d.err != nil {
		return 0, d.err
	}
	return 100, nil
}

func (d *fakeDecoder) SampleFrames(_ context.Context, _ string, numFrames, frameSize, _ int) ([]video.Frame, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	frames := make([]video.Frame, numFrames)
	for i := range frames {
		frames[i] = make(video.Frame, frameSize*frameSize*3)
		for j := range frames[i] {
			frames[i][j] = byte((i + j) % 251)
		}
	}
	return frames, nil
}

// fakeNetwork returns fixed logits favouring one class.
type fakeNetwork struct {
	loadErr    error
	forwardErr error
	loadCalls  int
	bestClass  int
}

func (n *fakeNetwork) LoadWeights(_ string) error {
	n.loadCalls++
	return n.loadErr
}

func (n *fakeNetwork) Forward(visual, clinical *tensor.Tensor) (*tensor.Tensor, error) {
	if n.forwardErr != nil {
		return nil, n.forwardErr
	}
	if visual == nil || clinical == nil {
		return nil, errors.New("nil input")
	}
	logits := make([]float32, catalog.Count())
	logits[n.bestClass] = 5
	return tensor.FromSlice(logits, 1, catalog.Count())
}

func newTestService(t *testing.T, dec *fakeDecoder, net *fakeNetwork) *service.Service {
	t.Helper()
	So(logger.Init(), ShouldBeNil)

	s := service.New(
		service.WithNumFrames(4),
		service.WithFrameSize(16),
		service.WithEmbeddingDim(8),
		service.WithTempDir(t.TempDir()),
		service.WithDecoder(dec),
		service.WithNetwork(net),
	)
	So(s.Start(context.Background()), ShouldBeNil)
	return s
}

func upload(name, contentType string) service.Upload {
	return service.Upload{
		Reader:      strings.NewReader("fake video bytes"),
		Filename:    name,
		ContentType: contentType,
	}
}

func TestLifecycle(t *testing.T) {
	Convey("Given a started service", t, func() {
		net := &fakeNetwork{}
		s := newTestService(t, &fakeDecoder{}, net)

		Convey("Then it is not ready before weights load", func() {
			So(s.IsReady(), ShouldBeFalse)
		})

		Convey("When weights load successfully", func() {
			So(s.EnsureLoaded(context.Background()), ShouldBeNil)

			Convey("Then the service is ready", func() {
				So(s.IsReady(), ShouldBeTrue)
			})

			Convey("Then further loads are no-ops", func() {
				So(s.EnsureLoaded(context.Background()), ShouldBeNil)
				So(s.EnsureLoaded(context.Background()), ShouldBeNil)
				So(net.loadCalls, ShouldEqual, 1)
			})
		})

		Convey("When the first load fails", func() {
			net.loadErr = errors.New("missing checkpoint")
			err := s.EnsureLoaded(context.Background())
			So(errors.Is(err, service.ErrModelLoad), ShouldBeTrue)
			So(s.IsReady(), ShouldBeFalse)

			Convey("Then a later attempt retries and can succeed", func() {
				net.loadErr = nil
				So(s.EnsureLoaded(context.Background()), ShouldBeNil)
				So(s.IsReady(), ShouldBeTrue)
				So(net.loadCalls, ShouldEqual, 2)
			})
		})
	})

	Convey("Given a service that was never started", t, func() {
		s := service.New()
		So(errors.Is(s.EnsureLoaded(context.Background()), service.ErrNotReady), ShouldBeTrue)
		So(s.IsReady(), ShouldBeFalse)
	})
}

func TestPredict(t *testing.T) {
	Convey("Given a ready service", t, func() {
		net := &fakeNetwork{bestClass: 2}
		s := newTestService(t, &fakeDecoder{}, net)

		Convey("When predicting a valid upload", func() {
			p, err := s.Predict(context.Background(), upload("walk.mp4", "video/mp4"), "knee pain, reduced stride")
			So(err, ShouldBeNil)

			Convey("Then the winning class is named", func() {
				So(p.PredictedClass, ShouldEqual, catalog.Names()[2])
				So(p.Confidence, ShouldBeGreaterThan, 0)
			})

			Convey("Then every class has a probability and they sum to one", func() {
				So(len(p.Probabilities), ShouldEqual, catalog.Count())
				var sum float64
				for _, v := range p.Probabilities {
					So(v, ShouldBeGreaterThanOrEqualTo, 0)
					sum += v
				}
				So(sum, ShouldAlmostEqual, 1.0, 1e-6)
			})
		})

		Convey("When the content type is octet-stream", func() {
			_, err := s.Predict(context.Background(), upload("walk.bin", "application/octet-stream"), "notes")
			So(err, ShouldBeNil)
		})

		Convey("When only the extension identifies the video", func() {
			_, err := s.Predict(context.Background(), upload("walk.webm", "text/plain"), "notes")
			So(err, ShouldBeNil)
		})

		Convey("When the upload is not a video", func() {
			_, err := s.Predict(context.Background(), upload("notes.txt", "text/plain"), "notes")
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("When the filename is missing", func() {
			_, err := s.Predict(context.Background(), upload("", "video/mp4"), "notes")
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("When the clinical notes are blank", func() {
			_, err := s.Predict(context.Background(), upload("walk.mp4", "video/mp4"), "   ")
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
		})
	})

	Convey("Given a service whose weights cannot load", t, func() {
		net := &fakeNetwork{loadErr: errors.New("corrupt checkpoint")}
		s := newTestService(t, &fakeDecoder{}, net)

		_, err := s.Predict(context.Background(), upload("walk.mp4", "video/mp4"), "notes")
		So(errors.Is(err, service.ErrNotReady), ShouldBeTrue)

		Convey("When the input is also invalid the readiness failure wins", func() {
			_, err := s.Predict(context.Background(), upload("walk.mp4", "video/mp4"), "   ")
			So(errors.Is(err, service.ErrNotReady), ShouldBeTrue)
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeFalse)
		})
	})
}

// inFlightGauge reads the in-flight gauge straight off the metrics registry.
func inFlightGauge() float64 {
	families, err := metrics.GetRegistry().Gather()
	So(err, ShouldBeNil)
	for _, mf := range families {
		if mf.GetName() == "gaitlab_inference_inferences_in_flight" {
			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	return -1
}

func TestPredictInFlightGauge(t *testing.T) {
	Convey("Given a ready service", t, func() {
		s := newTestService(t, &fakeDecoder{}, &fakeNetwork{})

		Convey("When a prediction completes", func() {
			_, err := s.Predict(context.Background(), upload("walk.mp4", "video/mp4"), "notes")
			So(err, ShouldBeNil)

			Convey("Then the in-flight gauge is back to zero", func() {
				So(inFlightGauge(), ShouldEqual, 0)
			})
		})

		Convey("When a prediction fails mid-pipeline", func() {
			failing := newTestService(t, &fakeDecoder{}, &fakeNetwork{forwardErr: errors.New("shape blew up")})
			_, err := failing.Predict(context.Background(), upload("walk.mp4", "video/mp4"), "notes")
			So(err, ShouldNotBeNil)

			Convey("Then the gauge still drains to zero", func() {
				So(inFlightGauge(), ShouldEqual, 0)
			})
		})
	})
}

func TestPredictCleanup(t *testing.T) {
	Convey("Given a service with an observable temp dir", t, func() {
		dir := t.TempDir()
		So(logger.Init(), ShouldBeNil)

		countFiles := func() int {
			entries, err := os.ReadDir(dir)
			So(err, ShouldBeNil)
			return len(entries)
		}

		Convey("When a prediction succeeds", func() {
			s := service.New(
				service.WithNumFrames(4),
				service.WithFrameSize(16),
				service.WithEmbeddingDim(8),
				service.WithTempDir(dir),
				service.WithDecoder(&fakeDecoder{}),
				service.WithNetwork(&fakeNetwork{}),
			)
			So(s.Start(context.Background()), ShouldBeNil)
			_, err := s.Predict(context.Background(), upload("walk.mp4", "video/mp4"), "notes")
			So(err, ShouldBeNil)

			Convey("Then no temp file is left behind", func() {
				So(countFiles(), ShouldEqual, 0)
			})
		})

		Convey("When the decode fails", func() {
			dec := &fakeDecoder{err: fmt.Errorf("%w: bad container", video.ErrDecode)}
			s := service.New(
				service.WithNumFrames(4),
				service.WithFrameSize(16),
				service.WithEmbeddingDim(8),
				service.WithTempDir(dir),
				service.WithDecoder(dec),
				service.WithNetwork(&fakeNetwork{}),
			)
			So(s.Start(context.Background()), ShouldBeNil)
			_, err := s.Predict(context.Background(), upload("walk.mp4", "video/mp4"), "notes")

			Convey("Then the error is an input error and the temp file is removed", func() {
				So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
				So(countFiles(), ShouldEqual, 0)
			})
		})

		Convey("When the forward pass fails", func() {
			s := service.New(
				service.WithNumFrames(4),
				service.WithFrameSize(16),
				service.WithEmbeddingDim(8),
				service.WithTempDir(dir),
				service.WithDecoder(&fakeDecoder{}),
				service.WithNetwork(&fakeNetwork{forwardErr: errors.New("shape blew up")}),
			)
			So(s.Start(context.Background()), ShouldBeNil)
			_, err := s.Predict(context.Background(), upload("walk.mp4", "video/mp4"), "notes")

			Convey("Then the error is an inference error and the temp file is removed", func() {
				So(errors.Is(err, service.ErrInference), ShouldBeTrue)
				So(countFiles(), ShouldEqual, 0)
			})
		})
	})
}

func TestStats(t *testing.T) {
	Convey("Given a started service", t, func() {
		s := newTestService(t, &fakeDecoder{}, &fakeNetwork{})

		stats := s.Stats()
		So(stats["started"], ShouldBeTrue)
		So(stats["model_loaded"], ShouldBeFalse)
		So(stats["num_classes"], ShouldEqual, catalog.Count())
		So(stats["in_flight"], ShouldEqual, 0)

		Convey("When weights load the stats reflect it", func() {
			So(s.EnsureLoaded(context.Background()), ShouldBeNil)
			So(s.Stats()["model_loaded"], ShouldBeTrue)
		})
	})
}
