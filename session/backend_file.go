package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileBackend keeps all keys in one JSON object on disk. Writes go to a
// temporary file that is renamed over the original, so a crash leaves either
// the old or the new contents.
type FileBackend struct {
	path string
	mu   sync.Mutex
}

// NewFileBackend returns a backend writing to path. The parent directory is
// created on first write.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Path returns the backing file.
func (b *FileBackend) Path() string { return b.path }

// Get returns the requested keys. An unreadable JSON document yields the
// corrupt literal for every requested key so the store heals it.
func (b *FileBackend) Get(_ context.Context, keys ...string) (map[string]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := b.readLocked()
	out := make(map[string]string, len(keys))
	if errors.Is(err, ErrCorrupt) {
		for _, k := range keys {
			out[k] = "undefined"
		}
		return out, nil
	}
	if err != nil {
		return nil, err
	}

	for _, k := range keys {
		if v, ok := data[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

// Put merges entries into the document.
func (b *FileBackend) Put(_ context.Context, entries map[string]string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := b.readLocked()
	if err != nil && !errors.Is(err, ErrCorrupt) {
		return err
	}
	if data == nil {
		data = make(map[string]string, len(entries))
	}
	for k, v := range entries {
		data[k] = v
	}
	return b.writeLocked(data)
}

// Delete removes keys. A corrupt document is replaced by an empty one.
func (b *FileBackend) Delete(_ context.Context, keys ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := b.readLocked()
	switch {
	case errors.Is(err, ErrCorrupt):
		return b.writeLocked(map[string]string{})
	case err != nil:
		return err
	}

	changed := false
	for _, k := range keys {
		if _, ok := data[k]; ok {
			delete(data, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return b.writeLocked(data)
}

// Durable is true.
func (b *FileBackend) Durable() bool { return true }

func (b *FileBackend) readLocked() (map[string]string, error) {
	raw, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(raw) == 0 {
		return map[string]string{}, nil
	}

	var data map[string]string
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if data == nil {
		data = map[string]string{}
	}
	return data, nil
}

func (b *FileBackend) writeLocked(data map[string]string) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	tmp, err := os.CreateTemp(dir, ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := os.Rename(tmpName, b.path); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
