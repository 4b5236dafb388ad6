// Package sources fetches archive bytes from the places a job can name.
package sources

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/infracollect/untar/internal/engine"
	"github.com/spf13/afero"
)

const FileKind = "file"

type FileSource struct {
	fs   afero.Fs
	path string
}

func NewFileSource(fs afero.Fs, path string) (engine.Source, error) {
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	return &FileSource{fs: fs, path: filepath.Clean(path)}, nil
}

func (s *FileSource) Name() string {
	return fmt.Sprintf("%s(%s)", FileKind, s.path)
}

func (s *FileSource) Kind() string {
	return FileKind
}

func (s *FileSource) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive %s: %w", s.path, err)
	}
	return data, nil
}
