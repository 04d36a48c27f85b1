package persist

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// SaveFile is a JSON key/value file backing the script save capability.
// With autoSave every change is written through; otherwise Flush writes.
type SaveFile struct {
	path     string
	autoSave bool
	log      *zap.Logger

	mu   sync.Mutex
	data map[string]any
}

// OpenSaveFile creates the parent directory and loads path if it exists.
func OpenSaveFile(path string, autoSave bool, log *zap.Logger) (*SaveFile, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("save dir: %w", err)
	}
	f := &SaveFile{path: path, autoSave: autoSave, log: log, data: make(map[string]any)}
	if err := f.Reload(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return f, nil
}

func (f *SaveFile) Get(key string) (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	return v, ok
}

func (f *SaveFile) Set(key string, value any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	return f.changed()
}

func (f *SaveFile) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; !ok {
		return nil
	}
	delete(f.data, key)
	return f.changed()
}

func (f *SaveFile) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clear(f.data)
	return f.changed()
}

func (f *SaveFile) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.write()
}

// Reload replaces the in-memory data with the file's contents.
func (f *SaveFile) Reload() error {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("read save file: %w", err)
	}
	data := make(map[string]any)
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("parse save file %s: %w", f.path, err)
	}
	f.mu.Lock()
	f.data = data
	f.mu.Unlock()
	f.log.Debug("save data loaded", zap.String("path", f.path), zap.Int("keys", len(data)))
	return nil
}

func (f *SaveFile) changed() error {
	if !f.autoSave {
		return nil
	}
	return f.write()
}

// write replaces the file atomically. Caller holds mu.
func (f *SaveFile) write() error {
	raw, err := json.MarshalIndent(f.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode save data: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write save file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("write save file: %w", err)
	}
	return nil
}
