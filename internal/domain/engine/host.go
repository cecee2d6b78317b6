package engine

// Event is a raw MIDI message scheduled at a frame offset. Within a block
// passed to Plugin.Process, Frame is relative to the block start.
type Event struct {
	Frame int
	Data  []byte
}

// Host resolves identifiers to plugin instances. Hosting real plugin
// formats is the job of an external implementation of this interface.
type Host interface {
	// CanOpen reports whether identifier names something this host can open.
	CanOpen(identifier string) bool
	// Open instantiates the plugin named by identifier.
	Open(identifier string) (Plugin, error)
}

// Plugin is a block-processing instrument. Implementations are not required
// to be safe for concurrent use.
type Plugin interface {
	Name() string
	// Prepare is called once before the first block.
	Prepare(sampleRate float64, maxBlockSize, channels int) error
	// Process fills out, one slice per channel, each len(out[c]) frames long,
	// applying events at their block-relative frames. out arrives zeroed.
	Process(out [][]float32, events []Event) error
	// Release frees resources after the last block.
	Release()
}
