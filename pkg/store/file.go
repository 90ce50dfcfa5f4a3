package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"github.com/promptpool/fpo/pkg/core"
	"github.com/promptpool/fpo/pkg/errors"
)

// FileStore persists the registry as a JSON document. Saves go through a
// temporary file, an fsync, and a rename, so readers observe either the
// previous registry or the new one, never a torn write. A mutex serializes
// writers in this process and a flock on a sibling lock file guards against
// writers in other processes.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a file store rooted at the given path. The file does
// not have to exist yet; the first Load on a missing file reports
// ResourceNotFound.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the registry file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads and validates the committed registry.
func (s *FileStore) Load(ctx context.Context) (*core.Population, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := errors.CheckContext(ctx); err != nil {
		return nil, err
	}

	fileLock, err := s.lockRegistry(true)
	if err != nil {
		return nil, err
	}
	defer fileLock.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, errors.WithFields(
			errors.New(errors.ResourceNotFound, "no registry file committed yet"),
			errors.Fields{"path": s.path})
	}
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.StoreFailed, "failed to read registry file"),
			errors.Fields{"path": s.path})
	}

	var doc registryDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.StoreCorrupt, "registry file is not valid json"),
			errors.Fields{"path": s.path})
	}
	return decodeRegistry(&doc)
}

// Save writes the population atomically: marshal, write a sibling temp file,
// fsync it, rename over the registry.
func (s *FileStore) Save(ctx context.Context, pop *core.Population) error {
	if pop == nil {
		return errors.New(errors.InvalidInput, "cannot save a nil population")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := errors.CheckContext(ctx); err != nil {
		return err
	}

	fileLock, err := s.lockRegistry(false)
	if err != nil {
		return err
	}
	defer fileLock.Unlock()

	data, err := json.MarshalIndent(encodeRegistry(pop), "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.StoreFailed, "failed to marshal registry")
	}

	tmpPath := s.path + ".tmp"
	if err := writeFileSynced(tmpPath, data); err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.StoreFailed, "failed to write registry temp file"),
			errors.Fields{"path": tmpPath})
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return errors.WithFields(
			errors.Wrap(err, errors.StoreFailed, "failed to replace registry file"),
			errors.Fields{"path": s.path})
	}
	return nil
}

// writeFileSynced writes data and flushes it to stable storage before
// returning. Without the fsync a crash after the rename could commit the name
// with empty data blocks behind it.
func writeFileSynced(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}

// lockRegistry takes a flock on a sibling lock file, shared for readers and
// exclusive for writers. The caller releases it with Unlock.
func (s *FileStore) lockRegistry(shared bool) (*flock.Flock, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.StoreFailed, "failed to create registry directory"),
			errors.Fields{"path": s.path})
	}

	fileLock := flock.New(s.path + ".lock")
	var err error
	if shared {
		err = fileLock.RLock()
	} else {
		err = fileLock.Lock()
	}
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.StoreFailed, "failed to lock registry"),
			errors.Fields{"path": fileLock.Path()})
	}
	return fileLock, nil
}
