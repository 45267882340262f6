package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// File stores each key as a JSON envelope in a directory.
// Entries are written to a temporary file and renamed into place, so a
// crash mid-save leaves the previous blob intact.
type File struct {
	dir string
}

// NewFile creates a file backend rooted at dir.
// The directory will be created if it doesn't exist.
func NewFile(dir string) (Backend, error) {
	if dir == "" {
		return nil, errors.New("file backend requires a directory")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &File{dir: dir}, nil
}

// fileEntry wraps a stored blob with metadata.
type fileEntry struct {
	Key       string    `json:"key"`
	Data      []byte    `json:"data"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Load reads the blob stored under key.
func (f *File) Load(ctx context.Context, key string) ([]byte, bool, error) {
	path := f.path(key)

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var entry fileEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", path, err)
	}
	return entry.Data, true, nil
}

// Save writes data under key, replacing any previous blob.
func (f *File) Save(ctx context.Context, key string, data []byte) error {
	raw, err := json.Marshal(fileEntry{Key: key, Data: data, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return err
	}

	path := f.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Delete removes the blob stored under key.
func (f *File) Delete(ctx context.Context, key string) error {
	err := os.Remove(f.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Close does nothing for the file backend.
func (f *File) Close() error {
	return nil
}

// path converts a key to a file path. Keys may contain characters that are
// not valid in file names, so the path is derived from the key hash with
// the first two hex digits as a subdirectory.
func (f *File) path(key string) string {
	hash := Hash([]byte(key))
	return filepath.Join(f.dir, hash[:2], hash[2:]+".json")
}

var _ Backend = (*File)(nil)
