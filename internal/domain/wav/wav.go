// Package wav quantizes float samples and packages them as uncompressed PCM
// WAV containers with the canonical 44-byte header.
package wav

import (
	"encoding/binary"
	"fmt"
	"math"
)

// HeaderSize is the size of the canonical RIFF/fmt/data header.
const HeaderSize = 44

const (
	formatPCM    = 1
	fmtChunkSize = 16

	maxInt16 = 32767
	maxInt24 = 8388607
	maxInt32 = 2147483647
)

// Header mirrors the fields of a canonical PCM WAV header.
type Header struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	DataSize      uint32
}

// Encode returns a complete WAV container for the interleaved samples.
// Samples outside [-1, 1] are saturated. Byte rate and block align are
// derived from the other arguments.
func Encode(samples []float32, sampleRate float64, channels, bitDepth int) ([]byte, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrEncode, ErrEmptyBuffer)
	}
	bytesPerSample, err := bytesPer(bitDepth)
	if err != nil {
		return nil, err
	}
	if channels < 1 || channels > math.MaxUint16 || sampleRate < 1 || sampleRate > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %w: channels=%d rate=%v", ErrEncode, ErrInvalidFormat, channels, sampleRate)
	}

	dataSize := uint64(len(samples)) * uint64(bytesPerSample)
	if dataSize > math.MaxUint32-(HeaderSize-8) {
		return nil, fmt.Errorf("%w: %w: %d bytes", ErrEncode, ErrTooLarge, dataSize)
	}

	rate := uint32(sampleRate)
	h := Header{
		AudioFormat:   formatPCM,
		Channels:      uint16(channels),
		SampleRate:    rate,
		ByteRate:      rate * uint32(channels) * uint32(bytesPerSample),
		BlockAlign:    uint16(channels * bytesPerSample),
		BitsPerSample: uint16(bitDepth),
		DataSize:      uint32(dataSize),
	}

	out := make([]byte, HeaderSize+int(dataSize))
	putHeader(out, h)

	payload := out[HeaderSize:]
	switch bitDepth {
	case 16:
		for i, s := range samples {
			binary.LittleEndian.PutUint16(payload[i*2:], uint16(Quantize16(s)))
		}
	case 24:
		for i, s := range samples {
			v := Quantize24(s)
			payload[i*3] = byte(v)
			payload[i*3+1] = byte(v >> 8)
			payload[i*3+2] = byte(v >> 16)
		}
	case 32:
		for i, s := range samples {
			binary.LittleEndian.PutUint32(payload[i*4:], uint32(Quantize32(s)))
		}
	}
	return out, nil
}

// EncodedSize returns the container size for the given shape without encoding.
func EncodedSize(frames, channels, bitDepth int) int {
	return HeaderSize + frames*channels*(bitDepth/8)
}

func bytesPer(bitDepth int) (int, error) {
	switch bitDepth {
	case 16, 24, 32:
		return bitDepth / 8, nil
	default:
		return 0, fmt.Errorf("%w: %w: %d", ErrEncode, ErrUnsupportedBitDepth, bitDepth)
	}
}

func putHeader(out []byte, h Header) {
	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], HeaderSize-8+h.DataSize)
	copy(out[8:12], "WAVE")
	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], fmtChunkSize)
	binary.LittleEndian.PutUint16(out[20:22], h.AudioFormat)
	binary.LittleEndian.PutUint16(out[22:24], h.Channels)
	binary.LittleEndian.PutUint32(out[24:28], h.SampleRate)
	binary.LittleEndian.PutUint32(out[28:32], h.ByteRate)
	binary.LittleEndian.PutUint16(out[32:34], h.BlockAlign)
	binary.LittleEndian.PutUint16(out[34:36], h.BitsPerSample)
	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], h.DataSize)
}

// DecodeHeader reads the canonical 44-byte header back out of data.
func DecodeHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes", ErrInvalidHeader, len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return Header{}, fmt.Errorf("%w: not a RIFF/WAVE container", ErrInvalidHeader)
	}
	if string(data[12:16]) != "fmt " {
		return Header{}, fmt.Errorf("%w: fmt chunk id %q", ErrInvalidHeader, data[12:16])
	}
	if string(data[36:40]) != "data" {
		return Header{}, fmt.Errorf("%w: data chunk id %q", ErrInvalidHeader, data[36:40])
	}
	return Header{
		AudioFormat:   binary.LittleEndian.Uint16(data[20:22]),
		Channels:      binary.LittleEndian.Uint16(data[22:24]),
		SampleRate:    binary.LittleEndian.Uint32(data[24:28]),
		ByteRate:      binary.LittleEndian.Uint32(data[28:32]),
		BlockAlign:    binary.LittleEndian.Uint16(data[32:34]),
		BitsPerSample: binary.LittleEndian.Uint16(data[34:36]),
		DataSize:      binary.LittleEndian.Uint32(data[40:44]),
	}, nil
}
