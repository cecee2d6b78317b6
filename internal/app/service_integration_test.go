package service_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/midiverse/internal/adapters/http/api"
	service "github.com/okian/midiverse/internal/app"
	"github.com/okian/midiverse/internal/domain/model"
	"github.com/okian/midiverse/internal/domain/wav"
	"github.com/okian/midiverse/internal/testsupport"
	"github.com/okian/midiverse/pkg/logger"
)

func init() {
	if err := logger.Init(logger.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
}

type renderReply struct {
	Status     string `json:"status"`
	OutputFile string `json:"outputFile"`
	JobID      string `json:"jobId"`
	Engine     string `json:"engine"`
	Code       string `json:"code"`
	Stage      string `json:"stage"`
}

func postRender(srv *httptest.Server, body map[string]any) (*http.Response, renderReply) {
	raw, err := json.Marshal(body)
	So(err, ShouldBeNil)
	resp, err := http.Post(srv.URL+"/render", "application/json", bytes.NewReader(raw))
	So(err, ShouldBeNil)
	defer resp.Body.Close()
	var reply renderReply
	So(json.NewDecoder(resp.Body).Decode(&reply), ShouldBeNil)
	return resp, reply
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given the render service behind the HTTP API", t, func() {
		svc := service.New(
			service.WithWorkerCount(2),
			service.WithQueueSize(16),
			service.WithOutputDir(filepath.Join(t.TempDir(), "output")),
			service.WithRenderTimeout(30*time.Second),
			service.WithLogger(logger.Named("service")),
		)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		mux := http.NewServeMux()
		api.NewServer(svc, svc, model.DefaultRenderOptions()).Register(ctx, mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		midi := testsupport.WriteFile(t, "melody.mid", testsupport.MinimalFile())

		Convey("When rendering with a builtin instrument", func() {
			resp, reply := postRender(srv, map[string]any{
				"midiFile":    midi,
				"vstPath":     "builtin:saw",
				"sampleRate":  22050,
				"numChannels": 1,
				"bitDepth":    16,
			})

			Convey("Then the artifact is reported and downloadable", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(reply.Status, ShouldEqual, "success")
				So(reply.Engine, ShouldEqual, "plugin")
				So(resp.Header.Get("X-Render-Job"), ShouldEqual, reply.JobID)
				So(filepath.Base(reply.OutputFile), ShouldEqual, "melody_builtin-saw_22050hz.wav")

				dl, err := http.Get(srv.URL + "/download/" + filepath.Base(reply.OutputFile))
				So(err, ShouldBeNil)
				defer dl.Body.Close()
				So(dl.StatusCode, ShouldEqual, http.StatusOK)
				So(dl.Header.Get("Content-Type"), ShouldEqual, "audio/wav")

				data, err := io.ReadAll(dl.Body)
				So(err, ShouldBeNil)
				hdr, err := wav.DecodeHeader(data)
				So(err, ShouldBeNil)
				So(hdr.SampleRate, ShouldEqual, 22050)
				So(hdr.Channels, ShouldEqual, 1)
				So(hdr.BitsPerSample, ShouldEqual, 16)
				So(int(hdr.DataSize), ShouldEqual, int(2.5*22050)*2)
			})
		})

		Convey("When the plugin path does not resolve to a builtin", func() {
			plugin := filepath.Join(t.TempDir(), "Strings.vst3")
			So(os.WriteFile(plugin, []byte("not a plugin"), 0o644), ShouldBeNil)
			resp, reply := postRender(srv, map[string]any{"midiFile": midi, "vstPath": plugin})

			Convey("Then the fallback engine renders at the defaults", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(reply.Engine, ShouldEqual, "fallback")
				info, err := os.Stat(reply.OutputFile)
				So(err, ShouldBeNil)
				So(info.Size(), ShouldEqual, int64(44+44100*5*2*2))
			})
		})

		Convey("When the MIDI file is not a MIDI file", func() {
			bogus := testsupport.WriteFile(t, "bogus.mid", bytes.Repeat([]byte{0x00}, 32))
			resp, reply := postRender(srv, map[string]any{"midiFile": bogus, "vstPath": "builtin:sine"})

			Convey("Then the parse stage is reported as a client error", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				So(reply.Status, ShouldEqual, "error")
				So(reply.Code, ShouldEqual, "parse_error")
				So(reply.Stage, ShouldEqual, "parse")
			})
		})

		Convey("When stats are requested after a render", func() {
			_, _ = postRender(srv, map[string]any{"midiFile": midi, "vstPath": "builtin:sine", "sampleRate": 8000})
			resp, err := http.Get(srv.URL + "/stats")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			var stats map[string]any
			So(json.NewDecoder(resp.Body).Decode(&stats), ShouldBeNil)
			So(stats["started"], ShouldEqual, true)
			So(stats["processed"], ShouldEqual, float64(1))
			So(stats["artifacts"], ShouldEqual, float64(1))
		})
	})
}
