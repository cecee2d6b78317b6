// Package artifact stores rendered containers in a single output directory.
// Writes go to a temporary file that is renamed over the final name while an
// advisory lock for that name is held, so readers never see partial files.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/okian/midiverse/internal/domain/wav"
	"github.com/okian/midiverse/pkg/logger"
	"github.com/okian/midiverse/pkg/metrics"
)

const (
	lockDirName        = ".locks"
	defaultLockTimeout = 10 * time.Second
	lockRetryDelay     = 20 * time.Millisecond
)

// Option configures a Store.
type Option func(*Store)

// WithLockTimeout bounds how long Persist waits for a name's lock.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Store persists and serves artifacts from one directory.
type Store struct {
	dir         string
	lockTimeout time.Duration
	logger      logger.Logger
}

// NewStore creates dir if needed and returns a Store rooted there.
func NewStore(dir string, opts ...Option) (*Store, error) {
	s := &Store{dir: filepath.Clean(dir), lockTimeout: defaultLockTimeout, logger: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	if err := os.MkdirAll(filepath.Join(s.dir, lockDirName), 0o755); err != nil {
		return nil, fmt.Errorf("create output directory %s: %w", s.dir, err)
	}
	return s, nil
}

// Dir returns the output directory.
func (s *Store) Dir() string { return s.dir }

// Resolve maps a bare file name to its path inside the store. Names with
// separators, parent references or a leading dot are rejected.
func (s *Store) Resolve(name string) (string, error) {
	switch {
	case name == "",
		strings.ContainsAny(name, `/\`),
		strings.HasPrefix(name, "."),
		strings.Contains(name, ".."),
		name != filepath.Base(name):
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.dir, name), nil
}

// Persist atomically writes data under name and returns the final path.
func (s *Store) Persist(name string, data []byte) (string, error) {
	path, err := s.Resolve(name)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.lockTimeout)
	defer cancel()

	lock := flock.New(filepath.Join(s.dir, lockDirName, name+".lock"))
	ok, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil || !ok {
		metrics.RecordArtifactLockError()
		if err == nil {
			err = ErrLocked
		}
		return "", fmt.Errorf("lock %s: %w", name, err)
	}
	defer func() {
		if uerr := lock.Unlock(); uerr != nil {
			s.logger.Warn(ctx, "failed to release artifact lock", logger.String("name", name), logger.Error(uerr))
		}
	}()

	tmp, err := os.CreateTemp(s.dir, "."+name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("%w: %w: %w", wav.ErrEncode, wav.ErrWrite, err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := wav.Write(tmp, data); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("%w: %w: %w", wav.ErrEncode, wav.ErrWrite, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return "", fmt.Errorf("%w: %w: %w", wav.ErrEncode, wav.ErrWrite, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return "", fmt.Errorf("%w: %w: %w", wav.ErrEncode, wav.ErrWrite, err)
	}
	committed = true

	metrics.RecordArtifactWrite()
	s.logger.Debug(ctx, "artifact persisted", logger.String("path", path), logger.Int("bytes", len(data)))
	return path, nil
}

// Open returns the named artifact for reading.
func (s *Store) Open(name string) (*os.File, fs.FileInfo, error) {
	path, err := s.Resolve(name)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, nil, fmt.Errorf("open artifact %s: %w", name, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("stat artifact %s: %w", name, err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return f, info, nil
}

// List returns the names of stored artifacts.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
