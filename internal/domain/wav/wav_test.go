package wav_test

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/midiverse/internal/domain/wav"
)

type shortWriter struct{}

func (shortWriter) Write(p []byte) (int, error) { return len(p) / 2, nil }

func TestEncodeErrors(t *testing.T) {
	Convey("Given invalid encode inputs", t, func() {
		Convey("When the buffer is empty", func() {
			_, err := wav.Encode(nil, 44100, 2, 16)
			So(errors.Is(err, wav.ErrEncode), ShouldBeTrue)
			So(errors.Is(err, wav.ErrEmptyBuffer), ShouldBeTrue)
		})

		Convey("When the bit depth is 20", func() {
			_, err := wav.Encode([]float32{0, 0}, 44100, 2, 20)
			So(errors.Is(err, wav.ErrUnsupportedBitDepth), ShouldBeTrue)
		})

		Convey("When the channel count is zero", func() {
			_, err := wav.Encode([]float32{0}, 44100, 0, 16)
			So(errors.Is(err, wav.ErrInvalidFormat), ShouldBeTrue)
		})
	})
}

func TestEncodeSizeAndHeader(t *testing.T) {
	Convey("Given a buffer of frames", t, func() {
		for _, depth := range []int{16, 24, 32} {
			for _, channels := range []int{1, 2, 6} {
				frames := 37
				samples := make([]float32, frames*channels)
				for i := range samples {
					samples[i] = float32(math.Sin(float64(i)))
				}

				out, err := wav.Encode(samples, 48000, channels, depth)
				So(err, ShouldBeNil)
				So(len(out), ShouldEqual, 44+frames*channels*(depth/8))
				So(len(out), ShouldEqual, wav.EncodedSize(frames, channels, depth))

				h, err := wav.DecodeHeader(out)
				So(err, ShouldBeNil)
				So(h.AudioFormat, ShouldEqual, uint16(1))
				So(h.SampleRate, ShouldEqual, uint32(48000))
				So(int(h.Channels), ShouldEqual, channels)
				So(int(h.BitsPerSample), ShouldEqual, depth)
				So(h.ByteRate, ShouldEqual, uint32(48000*channels*depth/8))
				So(int(h.BlockAlign), ShouldEqual, channels*depth/8)
				So(int(h.DataSize), ShouldEqual, frames*channels*depth/8)
				So(binary.LittleEndian.Uint32(out[4:8]), ShouldEqual, uint32(len(out)-8))
			}
		}
	})
}

func TestQuantization(t *testing.T) {
	Convey("Given samples at and beyond full scale", t, func() {
		Convey("When encoding 16-bit", func() {
			out, err := wav.Encode([]float32{1, -1, 2, -3, 0.5, 0}, 8000, 1, 16)
			So(err, ShouldBeNil)
			vals := make([]int16, 6)
			for i := range vals {
				vals[i] = int16(binary.LittleEndian.Uint16(out[44+i*2:]))
			}
			So(vals, ShouldResemble, []int16{32767, -32767, 32767, -32767, 16384, 0})
		})

		Convey("When encoding 24-bit", func() {
			out, err := wav.Encode([]float32{-1, 1}, 8000, 1, 24)
			So(err, ShouldBeNil)
			So(out[44:47], ShouldResemble, []byte{0x01, 0x00, 0x80})
			So(out[47:50], ShouldResemble, []byte{0xFF, 0xFF, 0x7F})
		})

		Convey("When encoding 32-bit", func() {
			out, err := wav.Encode([]float32{-5, 5}, 8000, 1, 32)
			So(err, ShouldBeNil)
			So(int32(binary.LittleEndian.Uint32(out[44:])), ShouldEqual, int32(-2147483647))
			So(int32(binary.LittleEndian.Uint32(out[48:])), ShouldEqual, int32(2147483647))
		})
	})

	Convey("Given arbitrary samples", t, func() {
		inputs := []float32{
			-1e9, -1.0000001, -1, -0.99999, -0.5, -1e-9, 0, 1e-9, 0.5, 0.99999, 1, 1.0000001, 1e9,
			float32(math.Inf(1)), float32(math.Inf(-1)), float32(math.NaN()),
		}
		for _, s := range inputs {
			c := wav.Clamp(s)
			So(c, ShouldBeBetweenOrEqual, -1.0, 1.0)

			So(int64(wav.Quantize16(s)), ShouldBeBetweenOrEqual, int64(-32767), int64(32767))
			So(int64(wav.Quantize24(s)), ShouldBeBetweenOrEqual, int64(-8388607), int64(8388607))
			So(int64(wav.Quantize32(s)), ShouldBeBetweenOrEqual, int64(-2147483647), int64(2147483647))
		}
	})
}

func TestWrite(t *testing.T) {
	Convey("Given an encoded container", t, func() {
		data, err := wav.Encode([]float32{0.1, 0.2}, 44100, 2, 16)
		So(err, ShouldBeNil)

		Convey("When the writer accepts fewer bytes than computed", func() {
			err := wav.Write(shortWriter{}, data)
			So(errors.Is(err, wav.ErrWrite), ShouldBeTrue)
		})

		Convey("When the destination directory does not exist", func() {
			err := wav.WriteFile(filepath.Join(t.TempDir(), "missing", "out.wav"), data)
			So(errors.Is(err, wav.ErrWrite), ShouldBeTrue)
		})

		Convey("When writing to a file", func() {
			path := filepath.Join(t.TempDir(), "out.wav")
			So(wav.WriteFile(path, data), ShouldBeNil)
			got, err := os.ReadFile(path)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, data)
		})
	})
}

func TestDecodeHeaderRejectsGarbage(t *testing.T) {
	Convey("Given bytes that are not a wav header", t, func() {
		_, err := wav.DecodeHeader([]byte("RIFF"))
		So(errors.Is(err, wav.ErrInvalidHeader), ShouldBeTrue)

		junk := make([]byte, 44)
		copy(junk, "MThd")
		_, err = wav.DecodeHeader(junk)
		So(errors.Is(err, wav.ErrInvalidHeader), ShouldBeTrue)
	})
}
