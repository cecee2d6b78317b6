package model

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestRenderOptions(t *testing.T) {
	Convey("Given render options", t, func() {
		Convey("When using the defaults", func() {
			opts := DefaultRenderOptions()
			So(opts.Validate(), ShouldBeNil)
			So(opts.SampleRate, ShouldEqual, 44100.0)
			So(opts.Channels, ShouldEqual, 2)
			So(opts.BitDepth, ShouldEqual, 16)
		})

		Convey("When the sample rate is not positive", func() {
			err := RenderOptions{SampleRate: 0, Channels: 2, BitDepth: 16}.Validate()
			So(errors.Is(err, ErrInvalidOptions), ShouldBeTrue)
		})

		Convey("When the sample rate is below 1 Hz", func() {
			err := RenderOptions{SampleRate: 0.5, Channels: 2, BitDepth: 16}.Validate()
			So(errors.Is(err, ErrInvalidOptions), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "sample rate")
			So(RenderOptions{SampleRate: 1, Channels: 1, BitDepth: 16}.Validate(), ShouldBeNil)
		})

		Convey("When the sample rate does not fit the container", func() {
			err := RenderOptions{SampleRate: 1 << 33, Channels: 2, BitDepth: 16}.Validate()
			So(errors.Is(err, ErrInvalidOptions), ShouldBeTrue)
		})

		Convey("When channels is zero", func() {
			err := RenderOptions{SampleRate: 8000, Channels: 0, BitDepth: 16}.Validate()
			So(errors.Is(err, ErrInvalidOptions), ShouldBeTrue)
		})
	})
}

func TestSupportedBitDepths(t *testing.T) {
	Convey("Given the supported bit depths", t, func() {
		for _, d := range []int{16, 24, 32} {
			So(IsSupportedBitDepth(d), ShouldBeTrue)
		}
		for _, d := range []int{0, 8, 20, 64} {
			So(IsSupportedBitDepth(d), ShouldBeFalse)
		}
	})
}

func TestSampleBufferFrames(t *testing.T) {
	Convey("Given a stereo buffer of six samples", t, func() {
		buf := SampleBuffer{Samples: make([]float32, 6), Channels: 2}
		So(buf.Frames(), ShouldEqual, 3)
		So(SampleBuffer{}.Frames(), ShouldEqual, 0)
	})
}
