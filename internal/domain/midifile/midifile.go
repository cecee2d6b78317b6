// Package midifile validates Standard MIDI Files and splits them into header
// metadata and track chunks. Event bytes are left undecoded.
package midifile

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/okian/midiverse/internal/domain/model"
)

const (
	// HeaderSize is the minimum size of a file: MThd + length + 3 words.
	HeaderSize = 14

	chunkHeaderSize    = 8
	standardHeaderSize = 6
	maxFormat          = 2
)

var (
	headerID = [4]byte{'M', 'T', 'h', 'd'}
	trackID  = [4]byte{'M', 'T', 'r', 'k'}
)

// Parse validates raw and returns the performance document. The returned
// document references raw; callers must not modify it afterwards.
func Parse(raw []byte) (*model.PerformanceDocument, error) {
	if len(raw) < HeaderSize {
		return nil, fmt.Errorf("%w: %w: %d bytes, need at least %d", ErrParse, ErrTooSmall, len(raw), HeaderSize)
	}
	if [4]byte(raw[0:4]) != headerID {
		return nil, fmt.Errorf("%w: %w: found %q", ErrParse, ErrBadMagic, raw[0:4])
	}

	doc := &model.PerformanceDocument{
		HeaderLength: binary.BigEndian.Uint32(raw[4:8]),
		Format:       model.Format(binary.BigEndian.Uint16(raw[8:10])),
		TrackCount:   binary.BigEndian.Uint16(raw[10:12]),
		TicksPerBeat: binary.BigEndian.Uint16(raw[12:14]),
		Raw:          raw,
	}

	if doc.HeaderLength != standardHeaderSize {
		doc.Warnings = append(doc.Warnings, model.Warning{
			Kind:    model.WarnHeaderLength,
			Offset:  4,
			Message: fmt.Sprintf("unusual header length %d", doc.HeaderLength),
		})
	}
	if doc.Format > maxFormat {
		return nil, fmt.Errorf("%w: %w: %d", ErrParse, ErrBadFormat, doc.Format)
	}
	if doc.Format == model.FormatSingleTrack && doc.TrackCount != 1 {
		doc.Warnings = append(doc.Warnings, model.Warning{
			Kind:    model.WarnTrackCount,
			Offset:  10,
			Message: fmt.Sprintf("format 0 should have exactly 1 track, header declares %d", doc.TrackCount),
		})
	}

	scanChunks(doc, raw)

	if len(doc.Tracks) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrParse, ErrNoTracks)
	}
	return doc, nil
}

// scanChunks walks the chunk list after the fixed header. Any chunk that is
// not MTrk is skipped by its declared length. Scanning stops at the first
// chunk whose length runs past the end of the file, and when fewer than eight
// bytes remain.
func scanChunks(doc *model.PerformanceDocument, raw []byte) {
	pos := HeaderSize

	for pos+chunkHeaderSize <= len(raw) {
		id := [4]byte(raw[pos : pos+4])
		length := binary.BigEndian.Uint32(raw[pos+4 : pos+8])
		payloadStart := pos + chunkHeaderSize
		remaining := len(raw) - payloadStart

		if id == trackID {
			track := model.TrackChunk{Offset: pos, Length: length}
			if uint64(length) > uint64(remaining) {
				track.Events = raw[payloadStart:]
				track.Truncated = true
				doc.Warnings = append(doc.Warnings, model.Warning{
					Kind:    model.WarnTruncatedChunk,
					Offset:  pos,
					Message: fmt.Sprintf("track declares %d bytes, only %d present", length, remaining),
				})
				doc.Tracks = append(doc.Tracks, track)
				return
			}
			track.Events = raw[payloadStart : payloadStart+int(length)]
			doc.Tracks = append(doc.Tracks, track)
			pos = payloadStart + int(length)
			continue
		}

		if uint64(length) > uint64(remaining) {
			doc.Warnings = append(doc.Warnings, model.Warning{
				Kind:    model.WarnTruncatedChunk,
				Offset:  pos,
				Message: fmt.Sprintf("chunk %q declares %d bytes, only %d present", id[:], length, remaining),
			})
			return
		}
		doc.Warnings = append(doc.Warnings, model.Warning{
			Kind:    model.WarnUnknownChunk,
			Offset:  pos,
			Message: fmt.Sprintf("skipping chunk %q of length %d", id[:], length),
		})
		pos = payloadStart + int(length)
	}

}

// ReadFile reads and parses the file at path.
func ReadFile(path string) (*model.PerformanceDocument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %w", ErrParse, ErrUnreadable, err)
	}
	return Parse(raw)
}
