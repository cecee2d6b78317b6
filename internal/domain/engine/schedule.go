package engine

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/okian/midiverse/internal/domain/model"
)

var endOfTrack = []byte{0x00, 0xFF, 0x2F, 0x00}

// timeline is the flat, frame-ordered event queue for one render.
type timeline struct {
	events      []Event
	endSeconds  float64
	totalFrames int
}

// buildTimeline decodes every event of every track, converting each
// timestamp to an absolute frame at sampleRate. The total length is the
// latest event time plus tail. Only the track spans accepted by the parser
// are decoded; foreign chunks and garbage in Raw never reach the decoder.
func buildTimeline(doc *model.PerformanceDocument, sampleRate, tailSeconds float64) (tl *timeline, err error) {
	defer func() {
		if r := recover(); r != nil {
			tl, err = nil, fmt.Errorf("decode events: %v", r)
		}
	}()

	tl = &timeline{}
	rd := smf.ReadTracksFrom(bytes.NewReader(trackStream(doc)))
	rd.Do(func(te smf.TrackEvent) {
		seconds := float64(te.AbsMicroSeconds) / 1e6
		if seconds > tl.endSeconds {
			tl.endSeconds = seconds
		}
		data := make([]byte, len(te.Message))
		copy(data, te.Message)
		tl.events = append(tl.events, Event{
			Frame: int(seconds * sampleRate),
			Data:  data,
		})
	})
	if err := rd.Error(); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}

	sort.SliceStable(tl.events, func(i, j int) bool {
		return tl.events[i].Frame < tl.events[j].Frame
	})
	tl.totalFrames = int(math.Floor((tl.endSeconds + tailSeconds) * sampleRate))
	return tl, nil
}

// trackStream rebuilds a standard file from the parsed tracks: a six-byte
// header whose track count matches len(doc.Tracks), followed by one MTrk
// chunk per track. Truncated tracks are closed with an end-of-track meta.
func trackStream(doc *model.PerformanceDocument) []byte {
	format := doc.Format
	if format == model.FormatSingleTrack && len(doc.Tracks) > 1 {
		format = model.FormatSynchronous
	}

	var buf bytes.Buffer
	buf.WriteString("MThd")
	_ = binary.Write(&buf, binary.BigEndian, uint32(6))
	_ = binary.Write(&buf, binary.BigEndian, uint16(format))
	_ = binary.Write(&buf, binary.BigEndian, uint16(len(doc.Tracks)))
	_ = binary.Write(&buf, binary.BigEndian, doc.TicksPerBeat)

	for _, tr := range doc.Tracks {
		events := tr.Events
		if tr.Truncated {
			events = append(append([]byte(nil), events...), endOfTrack...)
		}
		buf.WriteString("MTrk")
		_ = binary.Write(&buf, binary.BigEndian, uint32(len(events)))
		buf.Write(events)
	}
	return buf.Bytes()
}

// take returns the events with Frame in [start, end) starting at index next,
// offset to be block-relative, and the index of the first event not taken.
func (tl *timeline) take(next, start, end int, dst []Event) ([]Event, int) {
	dst = dst[:0]
	for next < len(tl.events) && tl.events[next].Frame < end {
		ev := tl.events[next]
		if ev.Frame >= start {
			dst = append(dst, Event{Frame: ev.Frame - start, Data: ev.Data})
		}
		next++
	}
	return dst, next
}
