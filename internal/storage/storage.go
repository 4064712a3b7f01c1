// Package storage provides artifact storage for published benchmark reports.
package storage

import (
	"context"
)

// ArtifactStore abstracts the destination reports are published to.
// Implementations include S3-compatible object storage and the local
// filesystem.
type ArtifactStore interface {
	// Put writes data to objectPath, overwriting any existing object.
	Put(ctx context.Context, objectPath string, data []byte) error

	// Get reads the object at objectPath.
	Get(ctx context.Context, objectPath string) ([]byte, error)

	// Exists reports whether an object exists at objectPath.
	Exists(ctx context.Context, objectPath string) (bool, error)

	// List returns all object paths under the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the object at objectPath. Deleting a missing
	// object is not an error.
	Delete(ctx context.Context, objectPath string) error
}
