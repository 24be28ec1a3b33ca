package upload

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStorage writes uploads into a directory served under urlPrefix.
type LocalStorage struct {
	dir       string
	urlPrefix string
}

func NewLocalStorage(dir, urlPrefix string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStorage{dir: dir, urlPrefix: urlPrefix}, nil
}

func (s *LocalStorage) Dir() string {
	return s.dir
}

func (s *LocalStorage) Save(_ context.Context, name, _ string, r io.Reader) (string, error) {
	path := filepath.Join(s.dir, filepath.Base(name))

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return s.urlPrefix + "/" + filepath.Base(name), nil
}
