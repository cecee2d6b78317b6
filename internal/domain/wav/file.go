package wav

import (
	"fmt"
	"io"
	"os"
)

// Write copies data to w and fails with ErrWrite on a short write.
func Write(w io.Writer, data []byte) error {
	n, err := w.Write(data)
	if err != nil {
		return fmt.Errorf("%w: %w: %w", ErrEncode, ErrWrite, err)
	}
	if n != len(data) {
		return fmt.Errorf("%w: %w: wrote %d of %d bytes", ErrEncode, ErrWrite, n, len(data))
	}
	return nil
}

// WriteFile creates or truncates path and writes data to it.
func WriteFile(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %w: %w", ErrEncode, ErrWrite, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: %w: %w", ErrEncode, ErrWrite, cerr)
		}
	}()
	return Write(f, data)
}
