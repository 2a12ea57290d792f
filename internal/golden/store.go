package golden

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultDir is where DirStore keeps snapshots unless told otherwise.
const DefaultDir = ".golden"

// Store persists snapshots by name. Save overwrites.
type Store interface {
	Save(ctx context.Context, name string, s Snapshot) error
	Load(ctx context.Context, name string) (Snapshot, error)
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]string, error)
}

func checkName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func encode(s Snapshot) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

func decode(name string, data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("golden: decode %s: %w", name, err)
	}
	if err := s.validate(); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

// DirStore keeps one JSON file per snapshot in a directory.
type DirStore struct {
	dir string
}

func NewDirStore(dir string) *DirStore {
	if dir == "" {
		dir = DefaultDir
	}
	return &DirStore{dir: dir}
}

func (d *DirStore) Dir() string { return d.dir }

func (d *DirStore) path(name string) string {
	return filepath.Join(d.dir, name+".json")
}

func (d *DirStore) Save(_ context.Context, name string, s Snapshot) error {
	if err := checkName(name); err != nil {
		return err
	}
	s.Name = name
	data, err := encode(s)
	if err != nil {
		return fmt.Errorf("golden: encode %s: %w", name, err)
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return err
	}
	tmp := d.path(name) + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, d.path(name))
}

func (d *DirStore) Load(_ context.Context, name string) (Snapshot, error) {
	if err := checkName(name); err != nil {
		return Snapshot{}, err
	}
	data, err := os.ReadFile(d.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return Snapshot{}, err
	}
	return decode(name, data)
}

func (d *DirStore) Delete(_ context.Context, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	err := os.Remove(d.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return err
}

func (d *DirStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(d.dir)
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

// Backends accepted by Open.
const (
	BackendDir    = "dir"
	BackendBadger = "badger"
)

var ErrUnknownBackend = errors.New("golden: unknown store backend")

// Open returns the store for backend rooted at path, plus a function that
// releases it. An empty backend means BackendDir.
func Open(backend, path string, logger *slog.Logger) (Store, func() error, error) {
	switch strings.ToLower(backend) {
	case "", BackendDir:
		return NewDirStore(path), func() error { return nil }, nil
	case BackendBadger:
		if path == "" {
			path = DefaultDir
		}
		db, err := OpenBadger(BadgerConfig{Path: path, SyncWrites: true, Logger: logger})
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	}
	return nil, nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
}
