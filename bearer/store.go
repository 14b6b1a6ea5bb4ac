package bearer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultCacheFile is the cache location used when none is configured.
const DefaultCacheFile = "token_cache.bin"

// ErrCacheNotFound is returned by Store.Load when nothing has been persisted yet.
var ErrCacheNotFound = errors.New("token cache not found")

// Store persists the serialized credential cache. The blob is opaque: it is
// read fully before use and written fully after each change.
type Store interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	// Location describes where the cache lives, for display only.
	Location() string
}

// FileStore keeps the cache in a single file.
type FileStore struct {
	path string
}

// NewFileStore returns a store for path. The path must have an extension
// and be longer than four characters, which rules out directories and
// obvious typos such as "." or "~".
func NewFileStore(path string) (*FileStore, error) {
	if len(path) <= 4 || filepath.Ext(path) == "" {
		return nil, fmt.Errorf("%w: invalid cache location %q", ErrInvalidConfig, path)
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) Location() string {
	return s.path
}

// Load returns ErrCacheNotFound when the file does not exist.
func (s *FileStore) Load(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrCacheNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}
	return data, nil
}

// Save replaces the file atomically under a cross-process lock.
func (s *FileStore) Save(_ context.Context, data []byte) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create cache dir: %w", err)
		}
	}

	lock, err := acquireFileLock(s.path)
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer func() {
		if releaseErr := lock.release(); releaseErr != nil {
			fmt.Fprintf(os.Stderr, "failed to release lock: %v\n", releaseErr)
		}
	}()

	tempFile := s.path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tempFile, s.path); err != nil {
		if removeErr := os.Remove(tempFile); removeErr != nil {
			return fmt.Errorf(
				"failed to rename temp file: %v; additionally failed to remove temp file: %w",
				err,
				removeErr,
			)
		}
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

var _ Store = (*FileStore)(nil)
