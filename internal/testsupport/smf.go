// Package testsupport builds Standard MIDI File fixtures for tests.
package testsupport

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// Header returns an MThd chunk with the standard 6-byte length.
func Header(format, tracks, division uint16) []byte {
	return HeaderWithLength(6, format, tracks, division)
}

// HeaderWithLength returns an MThd chunk declaring headerLen.
func HeaderWithLength(headerLen uint32, format, tracks, division uint16) []byte {
	var buf bytes.Buffer
	buf.WriteString("MThd")
	_ = binary.Write(&buf, binary.BigEndian, headerLen)
	_ = binary.Write(&buf, binary.BigEndian, format)
	_ = binary.Write(&buf, binary.BigEndian, tracks)
	_ = binary.Write(&buf, binary.BigEndian, division)
	return buf.Bytes()
}

// Chunk returns id + big-endian length + payload.
func Chunk(id string, payload []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString(id)
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(payload)))
	buf.Write(payload)
	return buf.Bytes()
}

// Track returns an MTrk chunk around events.
func Track(events ...[]byte) []byte {
	return Chunk("MTrk", bytes.Join(events, nil))
}

// EndOfTrack is the meta event that terminates every track, at delta 0.
var EndOfTrack = []byte{0x00, 0xFF, 0x2F, 0x00}

// NoteOn returns a delta-prefixed note-on event on channel 0.
func NoteOn(delta uint32, key, velocity byte) []byte {
	return append(VLQ(delta), 0x90, key, velocity)
}

// NoteOff returns a delta-prefixed note-off event on channel 0.
func NoteOff(delta uint32, key byte) []byte {
	return append(VLQ(delta), 0x80, key, 0x40)
}

// VLQ encodes n as a MIDI variable-length quantity.
func VLQ(n uint32) []byte {
	out := []byte{byte(n & 0x7F)}
	for n >>= 7; n > 0; n >>= 7 {
		out = append([]byte{byte(n&0x7F) | 0x80}, out...)
	}
	return out
}

// MinimalFile is a format 0, 96 ticks-per-quarter file with one note that
// lasts a quarter note (0.5s at the default tempo).
func MinimalFile() []byte {
	return append(Header(0, 1, 96), Track(NoteOn(0, 60, 100), NoteOff(96, 60), EndOfTrack)...)
}

// WriteFile writes data under t.TempDir() and returns the path.
func WriteFile(t testing.TB, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}
