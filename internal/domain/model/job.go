package model

import "time"

// RenderJob is one queued render request. Result is buffered by the
// producer so the consumer never blocks on delivery.
type RenderJob struct {
	ID              string
	PerformancePath string
	EngineID        string
	Options         RenderOptions
	EnqueuedAt      time.Time

	// Abandoned is closed when the requester stopped waiting. A job that is
	// abandoned before a worker picks it up is not rendered.
	Abandoned <-chan struct{}
	Result    chan<- RenderResult
}

// RenderResult is delivered once per job.
type RenderResult struct {
	JobID    string
	Artifact RenderedArtifact
	Engine   string
	Err      error
}
