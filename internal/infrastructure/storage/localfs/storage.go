package localfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kirillkom/bafoeg-assistant/internal/core/domain"
)

// Storage keeps objects as files below basePath. Writes go to a temporary
// file first so readers never observe a partial object.
type Storage struct {
	basePath string
	fileMode os.FileMode
}

func New(basePath string) (*Storage, error) {
	return NewWithMode(basePath, 0o644)
}

// NewWithMode creates the directory with owner-only access when fileMode
// grants nothing to group and others.
func NewWithMode(basePath string, fileMode os.FileMode) (*Storage, error) {
	if basePath == "" {
		basePath = "./knowledge_base"
	}
	dirMode := os.FileMode(0o755)
	if fileMode&0o077 == 0 {
		dirMode = 0o700
	}
	if err := os.MkdirAll(basePath, dirMode); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Storage{basePath: basePath, fileMode: fileMode}, nil
}

func (s *Storage) BasePath() string {
	return s.basePath
}

func (s *Storage) Path(key string) string {
	return filepath.Join(s.basePath, filepath.Clean("/"+key))
}

func (s *Storage) Save(_ context.Context, key string, data io.Reader) error {
	path := s.Path(key)
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := io.Copy(tmp, data); err != nil {
		tmp.Close()
		return fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Chmod(s.fileMode); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace file: %w", err)
	}
	return nil
}

func (s *Storage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(s.Path(key))
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}

// Delete removes key. Deleting a missing object is not an error.
func (s *Storage) Delete(_ context.Context, key string) error {
	if err := os.Remove(s.Path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

// List returns the regular files directly below the base path whose
// extension matches ext (case-insensitive), sorted by key. An empty ext
// lists every file.
func (s *Storage) List(_ context.Context, ext string) ([]domain.StoredObject, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("read storage dir: %w", err)
	}

	out := make([]domain.StoredObject, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if ext != "" && !strings.EqualFold(filepath.Ext(entry.Name()), ext) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", entry.Name(), err)
		}
		out = append(out, domain.StoredObject{Key: entry.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
