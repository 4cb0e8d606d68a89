// Package storage stores attachment blobs by key.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when no blob exists under a key.
var ErrNotFound = errors.New("blob not found")

// Storage is a flat key-addressed blob store. Keys use forward slashes.
type Storage interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// Open returns the blob and its size, or ErrNotFound.
	Open(ctx context.Context, key string) (io.ReadCloser, int64, error)
	Exists(ctx context.Context, key string) (bool, error)
	// Delete removes the blob. A missing blob is not an error.
	Delete(ctx context.Context, key string) error
}
