// Package blob provides the object-store backends the catalog writes score
// uploads, manifests and derivatives to. The catalog only handles locators;
// bytes live here.
package blob

import (
	"context"
	"errors"

	"ourtextscores/internal/domain/catalog"
)

// ErrNotFound is returned by Get/Delete for a locator with no object behind it.
var ErrNotFound = errors.New("blob: object not found")

// Store is implemented by every driver (memory, filesystem, s3).
type Store interface {
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) (catalog.StorageLocator, error)
	Get(ctx context.Context, loc catalog.StorageLocator) ([]byte, error)
	Delete(ctx context.Context, loc catalog.StorageLocator) error
	Exists(ctx context.Context, loc catalog.StorageLocator) (bool, error)
}
