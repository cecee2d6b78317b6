// Package model contains the value types passed between render stages.
package model

import "fmt"

// Format is the SMF header format type.
type Format uint16

// Header format types.
const (
	FormatSingleTrack Format = 0 // one multi-channel track
	FormatSynchronous Format = 1 // simultaneous tracks
	FormatSequential  Format = 2 // independent single-track patterns
)

// PerformanceDocument is a structurally validated symbolic performance file.
// Track chunks reference Raw; neither is copied nor mutated after parsing.
type PerformanceDocument struct {
	Format       Format
	TrackCount   uint16 // declared in the header, not necessarily len(Tracks)
	TicksPerBeat uint16
	HeaderLength uint32
	Tracks       []TrackChunk
	Warnings     []Warning

	// Raw is the full source buffer.
	Raw []byte
}

// TrackChunk is one MTrk chunk. Events is a sub-slice of the source buffer.
type TrackChunk struct {
	Offset    int    // offset of the chunk ID in the source buffer
	Length    uint32 // declared payload length
	Events    []byte // payload, possibly shorter than Length if truncated
	Truncated bool
}

// WarningKind classifies a non-fatal parse finding.
type WarningKind string

// Warning kinds.
const (
	WarnHeaderLength   WarningKind = "header_length"
	WarnTrackCount     WarningKind = "track_count"
	WarnUnknownChunk   WarningKind = "unknown_chunk"
	WarnTruncatedChunk WarningKind = "truncated_chunk"
)

// Warning is a diagnostic that never aborts a render.
type Warning struct {
	Kind    WarningKind
	Offset  int
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s at offset %d: %s", w.Kind, w.Offset, w.Message)
}
