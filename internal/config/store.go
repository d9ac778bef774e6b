package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

var (
	// ErrNotFound is returned by Store.Load when nothing has been persisted yet
	ErrNotFound = errors.New("settings not found")
	// ErrMalformed is returned by Store.Load when persisted settings cannot be decoded
	ErrMalformed = errors.New("malformed settings")
	// ErrConfigIO wraps read/write failures of the backing store
	ErrConfigIO = errors.New("settings store i/o")
)

// Store persists Settings
type Store interface {
	Load(ctx context.Context) (Settings, error)
	Save(ctx context.Context, s Settings) error
}

// FileStore keeps settings in a JSON file
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by the file at path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the file. Keys missing from the file keep their default values.
func (f *FileStore) Load(_ context.Context) (Settings, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return Settings{}, ErrNotFound
	}
	if err != nil {
		return Settings{}, fmt.Errorf("%w: read %s: %v", ErrConfigIO, f.path, err)
	}

	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject() {
		return Settings{}, fmt.Errorf("%w: %s is not a JSON object", ErrMalformed, f.path)
	}

	s := DefaultSettings()
	if err := json.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := Validate(s); err != nil {
		return Settings{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return s.normalize(), nil
}

// Save writes the settings atomically through a temp file
func (f *FileStore) Save(_ context.Context, s Settings) error {
	data, err := json.MarshalIndent(s.normalize(), "", "    ")
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrConfigIO, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfigIO, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write %s: %v", ErrConfigIO, tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", ErrConfigIO, tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("%w: rename to %s: %v", ErrConfigIO, f.path, err)
	}
	return nil
}
