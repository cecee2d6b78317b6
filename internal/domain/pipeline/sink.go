package pipeline

import (
	"github.com/okian/midiverse/internal/domain/wav"
)

// Sink persists an encoded container under name and returns the artifact path.
type Sink interface {
	Persist(name string, data []byte) (string, error)
}

// FileSink writes name as a file path, relative to the working directory.
type FileSink struct{}

// Persist writes data to name.
func (FileSink) Persist(name string, data []byte) (string, error) {
	if err := wav.WriteFile(name, data); err != nil {
		return "", err
	}
	return name, nil
}
