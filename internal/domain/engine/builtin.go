package engine

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gitlab.com/gomidi/midi/v2"
)

// BuiltinPrefix marks identifiers served by BuiltinHost.
const BuiltinPrefix = "builtin:"

// ErrUnknownPlugin is returned by BuiltinHost.Open for unknown identifiers.
var ErrUnknownPlugin = errors.New("unknown builtin plugin")

type waveform func(phase float64) float64

var builtinWaveforms = map[string]waveform{
	"sine": func(p float64) float64 { return math.Sin(2 * math.Pi * p) },
	"square": func(p float64) float64 {
		if p < 0.5 {
			return 1
		}
		return -1
	},
	"saw": func(p float64) float64 { return 2*p - 1 },
}

// BuiltinHost opens small in-process oscillator instruments named
// "builtin:sine", "builtin:square" and "builtin:saw".
type BuiltinHost struct{}

// CanOpen reports whether identifier names a builtin instrument.
func (BuiltinHost) CanOpen(identifier string) bool {
	_, ok := builtinWaveforms[strings.TrimPrefix(identifier, BuiltinPrefix)]
	return ok && strings.HasPrefix(identifier, BuiltinPrefix)
}

// Open instantiates the builtin instrument named by identifier.
func (h BuiltinHost) Open(identifier string) (Plugin, error) {
	if !h.CanOpen(identifier) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlugin, identifier)
	}
	name := strings.TrimPrefix(identifier, BuiltinPrefix)
	return &oscillator{name: name, wave: builtinWaveforms[name]}, nil
}

// Oscillator envelope and level.
const (
	oscAttackSeconds  = 0.005
	oscReleaseSeconds = 0.05
	oscVoiceGain      = 0.2
)

type voice struct {
	freq      float64
	phase     float64
	gain      float64
	env       float64
	releasing bool
}

// oscillator is a polyphonic instrument keyed by channel and note.
type oscillator struct {
	name       string
	wave       waveform
	sampleRate float64
	attackStep float64
	releaseStp float64
	voices     map[uint16]*voice
}

func (o *oscillator) Name() string { return BuiltinPrefix + o.name }

func (o *oscillator) Prepare(sampleRate float64, _ int, _ int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %v", sampleRate)
	}
	o.sampleRate = sampleRate
	o.attackStep = 1 / (oscAttackSeconds * sampleRate)
	o.releaseStp = 1 / (oscReleaseSeconds * sampleRate)
	o.voices = make(map[uint16]*voice)
	return nil
}

func (o *oscillator) Process(out [][]float32, events []Event) error {
	if o.voices == nil {
		return errors.New("oscillator not prepared")
	}
	if len(out) == 0 {
		return nil
	}
	frames := len(out[0])
	next := 0
	for f := 0; f < frames; f++ {
		for next < len(events) && events[next].Frame <= f {
			o.apply(events[next].Data)
			next++
		}
		s := float32(o.tick())
		for c := range out {
			out[c][f] += s
		}
	}
	return nil
}

func (o *oscillator) Release() {
	o.voices = nil
}

func (o *oscillator) apply(data []byte) {
	var ch, key, vel uint8
	msg := midi.Message(data)
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		o.voices[voiceKey(ch, key)] = &voice{
			freq: 440 * math.Pow(2, (float64(key)-69)/12),
			gain: oscVoiceGain * float64(vel) / 127,
		}
	case msg.GetNoteEnd(&ch, &key):
		if v, ok := o.voices[voiceKey(ch, key)]; ok {
			v.releasing = true
		}
	}
}

// tick advances every voice by one frame and returns the mix.
func (o *oscillator) tick() float64 {
	var sum float64
	for k, v := range o.voices {
		if v.releasing {
			v.env -= o.releaseStp
			if v.env <= 0 {
				delete(o.voices, k)
				continue
			}
		} else if v.env < 1 {
			v.env = math.Min(1, v.env+o.attackStep)
		}
		sum += v.gain * v.env * o.wave(v.phase)
		v.phase += v.freq / o.sampleRate
		v.phase -= math.Floor(v.phase)
	}
	return sum
}

func voiceKey(ch, key uint8) uint16 {
	return uint16(ch)<<8 | uint16(key)
}
