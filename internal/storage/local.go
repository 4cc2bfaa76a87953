package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Local writes files under Dir. References are slash-separated relative paths
// such as "uploads/images/<uuid>.png".
type Local struct {
	Dir string
}

func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Local{Dir: dir}, nil
}

func (l *Local) Save(ctx context.Context, contentType string, r io.Reader) (string, error) {
	name, err := newName(contentType)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(l.Dir, name)
	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(dst)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(dst)
		return "", err
	}
	return path.Join(filepath.ToSlash(l.Dir), name), nil
}

func (l *Local) Delete(ctx context.Context, ref string) error {
	p := filepath.FromSlash(ref)
	if filepath.Dir(p) != filepath.Clean(l.Dir) || strings.Contains(ref, "..") {
		return fmt.Errorf("reference %q is outside %s", ref, l.Dir)
	}
	err := os.Remove(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

var _ Files = (*Local)(nil)
