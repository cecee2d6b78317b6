// Package loadtest drives a running render service with concurrent
// requests and verifies every artifact it produces.
package loadtest

import "time"

// Worker and reporting constants.
const (
	WorkerChannelMultiplier = 2
	PercentageMultiplier    = 100
	progressInterval        = time.Second
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Requests   int           // Number of render requests to submit
	Workers    int           // Number of concurrent submitters
	Timeout    time.Duration // HTTP request timeout
	WorkDir    string        // Where generated MIDI files are written; must be readable by the service
	Engine     string        // vstPath sent with every request
	SampleRate float64
	Channels   int
	BitDepth   int
	Verbose    bool
}

// renderRequest mirrors the POST /render body.
type renderRequest struct {
	MidiFile    string  `json:"midiFile"`
	VSTPath     string  `json:"vstPath"`
	SampleRate  float64 `json:"sampleRate,omitempty"`
	NumChannels int     `json:"numChannels,omitempty"`
	BitDepth    int     `json:"bitDepth,omitempty"`
}

// renderResponse covers both the success and error bodies.
type renderResponse struct {
	Status     string `json:"status"`
	OutputFile string `json:"outputFile"`
	JobID      string `json:"jobId"`
	Engine     string `json:"engine"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

// Stats holds run statistics.
type Stats struct {
	Generated  int
	Submitted  int
	Successful int
	Rejected   int // 429 backpressure
	Failed     int
	Verified   int
	AudioBytes int64
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
}
