package storage

import (
	"context"
	"io"
)

// Object is a stored blob: the public URL handed to the transcription
// service, and the bucket path kept for deletion.
type Object struct {
	URL  string `json:"url"`
	Path string `json:"path"`
}

// ObjectStore is an opaque durable blob store. Any implementation honoring
// this contract works: cloud bucket, self-hosted, or in-memory for tests.
type ObjectStore interface {
	Upload(ctx context.Context, path string, body io.Reader, contentType string) (Object, error)
	Delete(ctx context.Context, paths []string) error
}
