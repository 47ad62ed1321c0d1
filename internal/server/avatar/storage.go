package avatar

import (
	"context"
	"path/filepath"

	"github.com/dmitrijs2005/gophauth/internal/filex"
)

// Dir is the avatars subdirectory of the public root, and the URL prefix.
const Dir = "avatars"

// Storage publishes a processed avatar file under name and returns the URL
// to store on the account. On success the source file is gone.
type Storage interface {
	Publish(ctx context.Context, srcPath, name string) (string, error)
}

// LocalStorage moves avatars into <public-root>/avatars, served statically.
type LocalStorage struct {
	dir string
}

// NewLocalStorage ensures <publicRoot>/avatars exists.
func NewLocalStorage(publicRoot string) (*LocalStorage, error) {
	dir, err := filex.EnsureDir(filepath.Join(publicRoot, Dir))
	if err != nil {
		return nil, err
	}
	return &LocalStorage{dir: dir}, nil
}

// Dir returns the absolute avatars directory.
func (s *LocalStorage) Dir() string {
	return s.dir
}

// Publish atomically replaces <dir>/<name> with srcPath.
func (s *LocalStorage) Publish(_ context.Context, srcPath, name string) (string, error) {
	if err := filex.MoveFile(srcPath, filepath.Join(s.dir, name)); err != nil {
		return "", err
	}
	return "/" + Dir + "/" + name, nil
}
