package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	herrors "github.com/matzehuels/halftone/pkg/errors"
)

// FileStore is a file-based preset store for CLI applications.
// Presets are stored as indented JSON files named <name>.json.
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
	now     func() time.Time
}

// NewFileStore creates a new file-based preset store.
// If baseDir is empty, defaults to ~/.config/halftone/presets/
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		baseDir = filepath.Join(home, ".config", "halftone", "presets")
	}
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("create preset dir: %w", err)
	}
	return &FileStore{baseDir: baseDir, now: time.Now}, nil
}

func (s *FileStore) presetPath(name string) string {
	return filepath.Join(s.baseDir, name+".json")
}

func (s *FileStore) Get(ctx context.Context, name string) (*Preset, error) {
	if err := herrors.ValidateName(name); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read(name)
}

func (s *FileStore) read(name string) (*Preset, error) {
	data, err := os.ReadFile(s.presetPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, notFound(name)
		}
		return nil, fmt.Errorf("read preset file: %w", err)
	}
	return decodePreset(data)
}

func decodePreset(data []byte) (*Preset, error) {
	var p Preset
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("parse preset: %w", err)
	}
	return &p, nil
}

func (s *FileStore) Put(ctx context.Context, p *Preset) error {
	if err := p.prepare(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	p.UpdatedAt = now
	if old, err := s.read(p.Name); err == nil {
		p.CreatedAt = old.CreatedAt
	} else {
		p.CreatedAt = now
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal preset: %w", err)
	}

	tmp, err := os.CreateTemp(s.baseDir, ".preset-*")
	if err != nil {
		return fmt.Errorf("write preset file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write preset file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write preset file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.presetPath(p.Name)); err != nil {
		return fmt.Errorf("write preset file: %w", err)
	}
	return nil
}

func (s *FileStore) Delete(ctx context.Context, name string) error {
	if err := herrors.ValidateName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.presetPath(name)); err != nil {
		if os.IsNotExist(err) {
			return notFound(name)
		}
		return fmt.Errorf("remove preset file: %w", err)
	}
	return nil
}

// List reads every preset file. Files that fail to parse are skipped.
func (s *FileStore) List(ctx context.Context, opts ListOptions) ([]*Preset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read preset dir: %w", err)
	}

	var out []*Preset
	for _, entry := range entries {
		name, ok := strings.CutSuffix(entry.Name(), ".json")
		if entry.IsDir() || !ok || strings.HasPrefix(name, ".") {
			continue
		}
		p, err := s.read(name)
		if err != nil {
			continue
		}
		if opts.match(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (s *FileStore) Close() error { return nil }

// Path returns the base directory for preset files.
func (s *FileStore) Path() string {
	return s.baseDir
}

var _ Store = (*FileStore)(nil)
