package storage

import (
	"context"
	"os"
	"path/filepath"

	vberrors "github.com/viewbench/viewbench/internal/errors"
)

// LocalStore implements ArtifactStore on the local filesystem. It is the
// default publish target and doubles as the test implementation.
type LocalStore struct {
	basePath string
}

// NewLocalStore creates a filesystem-backed store rooted at basePath.
func NewLocalStore(basePath string) (*LocalStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, vberrors.NewPublishError(vberrors.CodeWriteFailed,
			"failed to create publish directory", err)
	}
	return &LocalStore{basePath: basePath}, nil
}

// Put writes data to objectPath under the base directory.
func (l *LocalStore) Put(ctx context.Context, objectPath string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	destPath := l.fullPath(objectPath)
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return vberrors.NewPublishError(vberrors.CodeWriteFailed,
			"failed to create parent directory for "+objectPath, err)
	}
	if err := os.WriteFile(destPath, data, 0644); err != nil {
		return vberrors.NewPublishError(vberrors.CodeWriteFailed,
			"failed to write "+objectPath, err)
	}
	return nil
}

// Get reads the object at objectPath.
func (l *LocalStore) Get(ctx context.Context, objectPath string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(l.fullPath(objectPath))
	if os.IsNotExist(err) {
		return nil, vberrors.NewPublishError(vberrors.CodeObjectNotFound,
			"object "+objectPath+" does not exist", nil)
	}
	if err != nil {
		return nil, vberrors.NewPublishError(vberrors.CodeWriteFailed,
			"failed to read "+objectPath, err)
	}
	return data, nil
}

// Exists reports whether objectPath exists.
func (l *LocalStore) Exists(ctx context.Context, objectPath string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	_, err := os.Stat(l.fullPath(objectPath))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// List returns all object paths under prefix, relative to the base directory.
func (l *LocalStore) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var objects []string
	err := filepath.Walk(l.fullPath(prefix), func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !info.IsDir() {
			rel, err := filepath.Rel(l.basePath, path)
			if err != nil {
				return err
			}
			objects = append(objects, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return nil, vberrors.NewPublishError(vberrors.CodeWriteFailed,
			"failed to list objects under "+prefix, err)
	}
	return objects, nil
}

// Delete removes objectPath. Missing objects are ignored.
func (l *LocalStore) Delete(ctx context.Context, objectPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Remove(l.fullPath(objectPath)); err != nil && !os.IsNotExist(err) {
		return vberrors.NewPublishError(vberrors.CodeWriteFailed,
			"failed to delete "+objectPath, err)
	}
	return nil
}

func (l *LocalStore) fullPath(objectPath string) string {
	return filepath.Join(l.basePath, filepath.FromSlash(objectPath))
}
