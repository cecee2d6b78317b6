package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/midiverse/internal/domain/engine"
	"github.com/okian/midiverse/internal/domain/midifile"
	"github.com/okian/midiverse/internal/domain/model"
	"github.com/okian/midiverse/internal/domain/wav"
	"github.com/okian/midiverse/internal/testsupport"
)

type memSink struct {
	files map[string][]byte
	err   error
}

func newMemSink() *memSink { return &memSink{files: map[string][]byte{}} }

func (s *memSink) Persist(name string, data []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.files[name] = append([]byte(nil), data...)
	return "mem/" + name, nil
}

func stereo16() model.RenderOptions {
	return model.RenderOptions{SampleRate: 44100, Channels: 2, BitDepth: 16}
}

func TestOutputName(t *testing.T) {
	Convey("Output names are derived from both stems and the integer rate", t, func() {
		So(OutputName("/in/song.mid", "/plugins/Synth.vst3", 44100), ShouldEqual, "song_Synth_44100hz.wav")
		So(OutputName("song.mid", "builtin:sine", 48000.9), ShouldEqual, "song_builtin-sine_48000hz.wav")
		So(OutputName("dir/archive.tar.mid", "Synth.component/", 22050), ShouldEqual, "archive.tar_Synth_22050hz.wav")
		So(OutputName("", "", 8000), ShouldEqual, "untitled_untitled_8000hz.wav")
	})
}

func TestRenderOneFallbackEndToEnd(t *testing.T) {
	Convey("Given a minimal format-0 file and the fallback engine", t, func() {
		midi := testsupport.WriteFile(t, "minimal.mid", testsupport.MinimalFile())
		out := filepath.Join(t.TempDir(), "render.wav")
		p := New(engine.NewSelector(engine.ModeFallback, nil), FileSink{})

		rep, err := p.Run(context.Background(), Request{
			PerformancePath: midi,
			EngineID:        "/plugins/missing.vst3",
			Options:         stereo16(),
			OutputName:      out,
		})
		So(err, ShouldBeNil)

		Convey("the artifact has the exact expected size", func() {
			data, err := os.ReadFile(out)
			So(err, ShouldBeNil)
			So(len(data), ShouldEqual, 44+(44100*5*2)*2)
			So(rep.Artifact.Path, ShouldEqual, out)
			So(rep.Artifact.Size, ShouldEqual, len(data))
		})

		Convey("the header round-trips the requested format", func() {
			data, err := os.ReadFile(out)
			So(err, ShouldBeNil)
			h, err := wav.DecodeHeader(data)
			So(err, ShouldBeNil)
			So(h.SampleRate, ShouldEqual, uint32(44100))
			So(h.Channels, ShouldEqual, uint16(2))
			So(h.BitsPerSample, ShouldEqual, uint16(16))
		})

		Convey("the report covers every stage", func() {
			So(rep.Engine, ShouldEqual, "fallback")
			So(rep.Frames, ShouldEqual, 220500)
			So(rep.Warnings, ShouldEqual, 0)
			for _, s := range []Stage{StageParse, StageLoad, StageRender, StageEncode} {
				_, ok := rep.Stages[s]
				So(ok, ShouldBeTrue)
			}
		})
	})
}

func TestRenderOneIdempotent(t *testing.T) {
	Convey("Two renders of the same inputs are byte-identical under the same name", t, func() {
		midi := testsupport.WriteFile(t, "song.mid", testsupport.MinimalFile())
		sink := newMemSink()
		p := New(engine.NewSelector(engine.ModeAuto, engine.BuiltinHost{}), sink)

		first, err := p.RenderOne(context.Background(), midi, "/plugins/Synth.vst3", stereo16())
		So(err, ShouldBeNil)
		a := sink.files["song_Synth_44100hz.wav"]

		second, err := p.RenderOne(context.Background(), midi, "/plugins/Synth.vst3", stereo16())
		So(err, ShouldBeNil)
		So(second, ShouldEqual, first)
		So(first, ShouldEqual, "mem/song_Synth_44100hz.wav")
		So(len(sink.files), ShouldEqual, 1)
		So(sink.files["song_Synth_44100hz.wav"], ShouldResemble, a)
	})
}

func TestRenderOneBuiltinPlugin(t *testing.T) {
	Convey("The builtin host renders the file's events plus the release tail", t, func() {
		midi := testsupport.WriteFile(t, "song.mid", testsupport.MinimalFile())
		sink := newMemSink()
		p := New(engine.NewSelector(engine.ModeAuto, engine.BuiltinHost{}), sink)

		rep, err := p.Run(context.Background(), Request{
			PerformancePath: midi,
			EngineID:        "builtin:sine",
			Options:         model.RenderOptions{SampleRate: 8000, Channels: 1, BitDepth: 24},
		})
		So(err, ShouldBeNil)
		So(rep.Engine, ShouldEqual, "plugin")
		So(rep.Frames, ShouldEqual, 20000)
		So(len(sink.files["song_builtin-sine_8000hz.wav"]), ShouldEqual, 44+20000*3)
	})
}

func TestRenderOneStageErrors(t *testing.T) {
	Convey("Given a pipeline", t, func() {
		good := testsupport.WriteFile(t, "good.mid", testsupport.MinimalFile())
		sink := newMemSink()
		p := New(engine.NewSelector(engine.ModeAuto, engine.BuiltinHost{}), sink)
		ctx := context.Background()

		Convey("a short file fails in the parse stage with TooSmall", func() {
			short := testsupport.WriteFile(t, "short.mid", make([]byte, 13))
			_, err := p.RenderOne(ctx, short, "builtin:sine", stereo16())
			stage, ok := StageOf(err)
			So(ok, ShouldBeTrue)
			So(stage, ShouldEqual, StageParse)
			So(errors.Is(err, midifile.ErrTooSmall), ShouldBeTrue)
			So(len(sink.files), ShouldEqual, 0)
		})

		Convey("a missing file fails in the parse stage", func() {
			_, err := p.RenderOne(ctx, filepath.Join(t.TempDir(), "nope.mid"), "builtin:sine", stereo16())
			stage, _ := StageOf(err)
			So(stage, ShouldEqual, StageParse)
			So(errors.Is(err, midifile.ErrUnreadable), ShouldBeTrue)
		})

		Convey("an unopenable plugin fails in the load stage", func() {
			forced := New(engine.NewSelector(engine.ModePlugin, engine.BuiltinHost{}), sink)
			_, err := forced.RenderOne(ctx, good, "/plugins/Synth.vst3", stereo16())
			stage, _ := StageOf(err)
			So(stage, ShouldEqual, StageLoad)
			So(errors.Is(err, engine.ErrLoad), ShouldBeTrue)
		})

		Convey("an invalid rate fails in the render stage", func() {
			_, err := p.RenderOne(ctx, good, "builtin:sine", model.RenderOptions{SampleRate: 0, Channels: 2, BitDepth: 16})
			stage, _ := StageOf(err)
			So(stage, ShouldEqual, StageRender)
			So(errors.Is(err, engine.ErrRender), ShouldBeTrue)
		})

		Convey("an unsupported bit depth fails in the encode stage", func() {
			_, err := p.RenderOne(ctx, good, "builtin:sine", model.RenderOptions{SampleRate: 8000, Channels: 1, BitDepth: 20})
			stage, _ := StageOf(err)
			So(stage, ShouldEqual, StageEncode)
			So(errors.Is(err, wav.ErrUnsupportedBitDepth), ShouldBeTrue)
		})

		Convey("a failing sink is reported as a write error in the encode stage", func() {
			sink.err = errors.New("disk full")
			_, err := p.RenderOne(ctx, good, "builtin:sine", model.RenderOptions{SampleRate: 8000, Channels: 1, BitDepth: 16})
			stage, _ := StageOf(err)
			So(stage, ShouldEqual, StageEncode)
			So(errors.Is(err, wav.ErrWrite), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "disk full")
		})

		Convey("errors without a stage report none", func() {
			_, ok := StageOf(errors.New("plain"))
			So(ok, ShouldBeFalse)
		})
	})
}

type countingPlugin struct{ releases int }

func (p *countingPlugin) Name() string                              { return "counting" }
func (p *countingPlugin) Prepare(float64, int, int) error           { return nil }
func (p *countingPlugin) Process([][]float32, []engine.Event) error { return nil }
func (p *countingPlugin) Release()                                  { p.releases++ }

type countingHost struct{ plugin *countingPlugin }

func (h countingHost) CanOpen(string) bool                { return true }
func (h countingHost) Open(string) (engine.Plugin, error) { return h.plugin, nil }

type pluginFactory struct{ host engine.Host }

func (f pluginFactory) New(string) engine.Engine { return engine.NewHostPlugin(f.host) }

func TestRunReleasesPlugin(t *testing.T) {
	Convey("Given a pipeline whose engine hosts a counting plugin", t, func() {
		good := testsupport.WriteFile(t, "good.mid", testsupport.MinimalFile())
		plugin := &countingPlugin{}
		p := New(pluginFactory{host: countingHost{plugin: plugin}}, newMemSink())
		ctx := context.Background()

		Convey("a render rejected before it starts still releases the plugin", func() {
			_, err := p.RenderOne(ctx, good, "counting", model.RenderOptions{SampleRate: 0.5, Channels: 1, BitDepth: 16})
			stage, _ := StageOf(err)
			So(stage, ShouldEqual, StageRender)
			So(plugin.releases, ShouldEqual, 1)
		})

		Convey("a successful render releases the plugin exactly once", func() {
			_, err := p.RenderOne(ctx, good, "counting", model.RenderOptions{SampleRate: 1000, Channels: 1, BitDepth: 16})
			So(err, ShouldBeNil)
			So(plugin.releases, ShouldEqual, 1)
		})
	})
}
