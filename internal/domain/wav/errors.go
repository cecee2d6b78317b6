package wav

import "errors"

// ErrEncode is wrapped by every error returned from Encode and WriteFile.
var ErrEncode = errors.New("encode wav")

// Sentinel kinds for encode failures.
var (
	ErrEmptyBuffer         = errors.New("empty sample buffer")
	ErrUnsupportedBitDepth = errors.New("unsupported bit depth")
	ErrInvalidFormat       = errors.New("invalid channel count or sample rate")
	ErrTooLarge            = errors.New("payload exceeds 4 GiB container limit")
	ErrWrite               = errors.New("write failed")
)

// ErrInvalidHeader is returned by DecodeHeader.
var ErrInvalidHeader = errors.New("invalid wav header")
