package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/maauso/audiobook-skill/internal/session"
)

// Compile-time check that LocalStorage implements AttributeStore.
var _ AttributeStore = (*LocalStorage)(nil)

// LocalStorage keeps one JSON file per device in a directory. File names
// are the sha256 of the device id; writes go through a temporary file and a
// rename so a reader never sees a partial document.
type LocalStorage struct {
	dir string
}

// NewLocalStorage creates a LocalStorage rooted at dir.
// If dir is empty, a directory under os.TempDir() is used.
// The directory is created if it doesn't exist.
func NewLocalStorage(dir string) (*LocalStorage, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "audiobook-skill")
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	return &LocalStorage{dir: dir}, nil
}

// Dir returns the data directory path.
func (s *LocalStorage) Dir() string {
	return s.dir
}

func (s *LocalStorage) path(deviceID string) string {
	return filepath.Join(s.dir, deviceKey(deviceID)+".json")
}

// Load reads the attributes file of deviceID.
func (s *LocalStorage) Load(ctx context.Context, deviceID string) (session.Attributes, error) {
	var attrs session.Attributes
	if deviceID == "" {
		return attrs, ErrDeviceIDRequired
	}
	select {
	case <-ctx.Done():
		return attrs, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	data, err := os.ReadFile(s.path(deviceID))
	if errors.Is(err, os.ErrNotExist) {
		return attrs, nil
	}
	if err != nil {
		return attrs, fmt.Errorf("read attributes: %w", err)
	}
	if err := json.Unmarshal(data, &attrs); err != nil {
		return session.Attributes{}, fmt.Errorf("decode attributes: %w", err)
	}
	return attrs, nil
}

// Save writes the attributes file of deviceID.
func (s *LocalStorage) Save(ctx context.Context, deviceID string, attrs session.Attributes) error {
	if deviceID == "" {
		return ErrDeviceIDRequired
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	data, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("encode attributes: %w", err)
	}

	f, err := os.CreateTemp(s.dir, "attrs_*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path(deviceID)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace attributes: %w", err)
	}
	return nil
}
