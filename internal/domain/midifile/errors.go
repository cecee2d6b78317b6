package midifile

import "errors"

// ErrParse is wrapped by every error returned from Parse and ReadFile.
var ErrParse = errors.New("parse performance")

// Sentinel kinds for parse failures.
var (
	ErrTooSmall   = errors.New("input too small")
	ErrBadMagic   = errors.New("missing MThd header")
	ErrBadFormat  = errors.New("invalid format type")
	ErrNoTracks   = errors.New("no track chunks found")
	ErrUnreadable = errors.New("cannot read performance file")
)
