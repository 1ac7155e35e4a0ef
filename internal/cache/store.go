package cache

import (
	"errors"
	"fmt"

	"github.com/spf13/afero"
)

// Store persists one encoded snapshot. Save replaces the previous snapshot
// as a whole; a reader never observes a partial write.
// Implementations must be safe for concurrent use by multiple goroutines.
type Store interface {
	// Load returns the last saved snapshot, or ErrNotFound if there is none.
	Load() ([]byte, error)
	Save(snapshot []byte) error
	Close() error
}

var (
	ErrNotFound       = errors.New("cache: snapshot not found")
	ErrUnknownBackend = errors.New("cache: unknown backend")
)

// Backend names accepted by OpenStore.
const (
	BackendFile = "file"
	BackendBolt = "bolt"
)

// OpenStore opens the snapshot store for backend at path.
func OpenStore(backend, path string) (Store, error) {
	switch backend {
	case "", BackendFile:
		return NewFileStore(afero.NewOsFs(), path), nil
	case BackendBolt:
		return OpenBolt(path, BoltOptions{})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}
