package core

import (
	"context"
	"errors"
	"io"
)

var ErrFileNotFound = errors.New("file not found")

// FileStore keeps uploaded media objects (videos, thumbnails) under slash separated paths.
type FileStore interface {
	Put(ctx context.Context, path string, r io.Reader) error
	Delete(ctx context.Context, paths ...string) error
	Exists(ctx context.Context, path string) (bool, error)
	// URL returns the public URL the object is served from.
	URL(path string) string
}
