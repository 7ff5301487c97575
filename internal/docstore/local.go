package docstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Local keeps each document as a file in dir.
type Local struct {
	dir string
}

func NewLocal(dir string) *Local {
	return &Local{dir: dir}
}

func (l *Local) Get(_ context.Context, name string) ([]byte, error) {
	const op = "docstore.Local.Get"

	if err := validName(name); err != nil {
		return nil, err
	}

	b, err := os.ReadFile(filepath.Join(l.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	}

	return b, nil
}

// Put writes through a temp file and a rename so readers never see a
// partially written document.
func (l *Local) Put(_ context.Context, name string, data []byte) error {
	const op = "docstore.Local.Put"

	if err := validName(name); err != nil {
		return err
	}

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	}

	tmp, err := os.CreateTemp(l.dir, "."+name+".*.tmp")
	if err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	}

	if err := os.Rename(tmpName, filepath.Join(l.dir, name)); err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	}

	return nil
}
