package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ahrav/go-concord/internal/ports"
)

const fileBackend = "file"

// FileStore keeps each summary as a JSON file in a directory.
type FileStore struct {
	dir string
}

var _ ports.ResultStore = (*FileStore)(nil)

// NewFileStore returns a store rooted at dir. The directory is created by
// Ensure, not here.
func NewFileStore(dir string) *FileStore { return &FileStore{dir: dir} }

// Dir returns the root directory.
func (s *FileStore) Dir() string { return s.dir }

// Ensure creates the directory and its parents if they are missing.
func (s *FileStore) Ensure(context.Context) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return ports.NewStoreError(fileBackend, "ensure", s.dir, err)
	}
	return nil
}

// Save writes data to a temporary file and renames it into place so readers
// never observe a partial summary.
func (s *FileStore) Save(_ context.Context, name string, data []byte) error {
	if err := ValidateName(name); err != nil {
		return ports.NewStoreError(fileBackend, "save", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+name+".*")
	if err != nil {
		return ports.NewStoreError(fileBackend, "save", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return ports.NewStoreError(fileBackend, "save", name, err)
	}
	if err := tmp.Close(); err != nil {
		return ports.NewStoreError(fileBackend, "save", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return ports.NewStoreError(fileBackend, "save", name, err)
	}
	return nil
}

// List returns the .json files in the directory, newest first.
func (s *FileStore) List(context.Context) ([]ports.StoredResult, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []ports.StoredResult{}, nil
		}
		return nil, ports.NewStoreError(fileBackend, "list", "", err)
	}

	out := make([]ports.StoredResult, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), resultExt) || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, ports.StoredResult{Name: e.Name(), ModifiedAt: info.ModTime()})
	}
	sortNewestFirst(out)
	return out, nil
}

// Load reads one summary.
func (s *FileStore) Load(_ context.Context, name string) ([]byte, error) {
	if err := ValidateName(name); err != nil {
		return nil, ports.NewStoreError(fileBackend, "load", name, err)
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ports.NewStoreError(fileBackend, "load", name, ports.ErrResultNotFound)
		}
		return nil, ports.NewStoreError(fileBackend, "load", name, err)
	}
	return data, nil
}

// sortNewestFirst orders by modification time, then by name descending so
// results written within the same clock tick still sort deterministically.
func sortNewestFirst(rs []ports.StoredResult) {
	sort.SliceStable(rs, func(i, j int) bool {
		if !rs[i].ModifiedAt.Equal(rs[j].ModifiedAt) {
			return rs[i].ModifiedAt.After(rs[j].ModifiedAt)
		}
		return rs[i].Name > rs[j].Name
	})
}
