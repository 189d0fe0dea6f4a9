// Package registry is the persistent settings store: named integers with
// caller supplied defaults, kept in a YAML file.
package registry

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"
)

// Registry holds settings in memory. Changes become durable with Save. It is
// safe for concurrent use.
type Registry struct {
	mu     sync.Mutex
	path   string
	values map[string]int
	saved  map[string]int // last saved state of an in-memory registry
}

// Open loads the settings at path. A missing file yields an empty registry
// that is created on the first Save. An empty path keeps settings in memory
// only.
func Open(path string) (*Registry, error) {
	r := &Registry{path: path, values: make(map[string]int), saved: make(map[string]int)}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Int returns the value stored under name, or dfl if there is none.
func (r *Registry) Int(name string, dfl int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.values[name]; ok {
		return v
	}
	return dfl
}

func (r *Registry) SetInt(name string, v int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[name] = v
}

// Names returns the names of all stored settings in sorted order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Sorted(maps.Keys(r.values))
}

// Reload replaces the in-memory settings with the ones on disk, discarding
// unsaved changes. Without a file it goes back to the last saved state.
func (r *Registry) Reload() error {
	if r.path == "" {
		r.mu.Lock()
		r.values = maps.Clone(r.saved)
		r.mu.Unlock()
		return nil
	}
	values, err := load(r.path)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.values = values
	r.mu.Unlock()
	slog.Debug("registry: loaded settings", "path", r.path, "count", len(values))
	return nil
}

// Save writes all settings to disk. The file is replaced atomically.
func (r *Registry) Save() error {
	if r.path == "" {
		r.mu.Lock()
		r.saved = maps.Clone(r.values)
		r.mu.Unlock()
		return nil
	}
	r.mu.Lock()
	data, err := yaml.Marshal(r.values)
	r.mu.Unlock()
	if err != nil {
		return fmt.Errorf("registry: encode: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), filepath.Base(r.path)+".*")
	if err != nil {
		return fmt.Errorf("registry: save %q: %w", r.path, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("registry: save %q: %w", r.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("registry: save %q: %w", r.path, err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("registry: save %q: %w", r.path, err)
	}
	slog.Info("registry: saved settings", "path", r.path)
	return nil
}

func load(path string) (map[string]int, error) {
	values := make(map[string]int)
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("registry: open %q: %w", path, err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&values); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("registry: parse %q: %w", path, err)
	}
	if values == nil {
		values = make(map[string]int)
	}
	return values, nil
}
