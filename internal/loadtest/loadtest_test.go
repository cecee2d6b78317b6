package loadtest

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/midiverse/internal/adapters/http/api"
	service "github.com/okian/midiverse/internal/app"
	"github.com/okian/midiverse/internal/domain/midifile"
	"github.com/okian/midiverse/internal/domain/model"
	"github.com/okian/midiverse/pkg/logger"
)

func init() {
	if err := logger.Init(logger.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
}

func TestConfigValidate(t *testing.T) {
	Convey("Given load test settings", t, func() {
		cfg := Config{BaseURL: "http://x", Requests: 1, Workers: 1, WorkDir: "w", Engine: "builtin:sine"}
		So(cfg.Validate(), ShouldBeNil)

		for _, mutate := range []func(*Config){
			func(c *Config) { c.BaseURL = "" },
			func(c *Config) { c.Requests = 0 },
			func(c *Config) { c.Workers = 0 },
			func(c *Config) { c.WorkDir = "" },
			func(c *Config) { c.Engine = "" },
		} {
			bad := cfg
			mutate(&bad)
			So(errors.Is(bad.Validate(), ErrInvalidConfig), ShouldBeTrue)
		}
	})
}

func TestWriteMelody(t *testing.T) {
	Convey("Generated melodies parse as performance files", t, func() {
		path := filepath.Join(t.TempDir(), "melody.mid")
		So(writeMelody(path), ShouldBeNil)

		doc, err := midifile.ReadFile(path)
		So(err, ShouldBeNil)
		So(doc.TicksPerBeat, ShouldEqual, ticksPerQuarter)
		So(len(doc.Tracks), ShouldEqual, 1)
		So(doc.Warnings, ShouldBeEmpty)
	})
}

func TestRun(t *testing.T) {
	Convey("Given a running render service", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		svc := service.New(
			service.WithWorkerCount(2),
			service.WithQueueSize(32),
			service.WithOutputDir(filepath.Join(t.TempDir(), "output")),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		mux := http.NewServeMux()
		api.NewServer(svc, svc, model.DefaultRenderOptions()).Register(ctx, mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		cfg := &Config{
			BaseURL:    srv.URL,
			Requests:   6,
			Workers:    3,
			Timeout:    30 * time.Second,
			WorkDir:    t.TempDir(),
			Engine:     "builtin:sine",
			SampleRate: 8000,
			Channels:   1,
			BitDepth:   16,
		}

		Convey("When the load run completes", func() {
			stats, err := Run(ctx, cfg)

			Convey("Then every render succeeds and verifies", func() {
				So(err, ShouldBeNil)
				So(stats.Generated, ShouldEqual, 6)
				So(stats.Submitted, ShouldEqual, 6)
				So(stats.Successful, ShouldEqual, 6)
				So(stats.Failed, ShouldEqual, 0)
				So(stats.Verified, ShouldEqual, 6)
				So(stats.AudioBytes, ShouldBeGreaterThan, 6*44)
			})
		})

		Convey("When the engine cannot be resolved", func() {
			cfg.Engine = filepath.Join(t.TempDir(), "missing.vst3")
			stats, err := Run(ctx, cfg)

			Convey("Then the failures are reported", func() {
				So(err, ShouldNotBeNil)
				So(stats.Failed, ShouldEqual, 6)
				So(stats.Verified, ShouldEqual, 0)
			})
		})
	})
}
