package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

var _ Store = (*FileStore)(nil)

// FileStore persists session fields to a single JSON file. Every write
// rewrites the whole file through a temp-file rename, so a crash mid-write
// never leaves a partially updated session on disk.
type FileStore struct {
	path   string
	values map[string]string
	lock   sync.RWMutex
}

// NewFileStore loads (or creates) the store backed by path. The parent
// directory is created if missing.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Wrap(err, "[NewFileStore] create data folder")
	}

	fs := &FileStore{path: path, values: make(map[string]string)}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return fs, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "[NewFileStore] read store file")
	}
	if len(raw) == 0 {
		return fs, nil
	}
	if err := json.Unmarshal(raw, &fs.values); err != nil {
		return nil, errors.Wrap(err, "[NewFileStore] decode store file")
	}
	return fs, nil
}

func (fs *FileStore) Get(key string) (string, bool) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()

	value, ok := fs.values[key]
	return value, ok
}

func (fs *FileStore) Set(key, value string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	fs.values[key] = value
	return fs.flushLocked()
}

func (fs *FileStore) Delete(key string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	delete(fs.values, key)
	return fs.flushLocked()
}

func (fs *FileStore) Clear() error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	fs.values = make(map[string]string)
	return fs.flushLocked()
}

func (fs *FileStore) flushLocked() error {
	raw, err := json.MarshalIndent(fs.values, "", "  ")
	if err != nil {
		return errors.Wrap(err, "[FileStore.flush] encode values")
	}

	tmp := fs.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return errors.Wrap(err, "[FileStore.flush] write temp file")
	}
	if err := os.Rename(tmp, fs.path); err != nil {
		return errors.Wrap(err, "[FileStore.flush] rename temp file")
	}
	return nil
}
