// Package storage resolves caller-supplied assets into provider storage
// references and persists generated outputs. It defines the ports used by the
// orchestrator (AssetResolver, Sink) with implementations for the Magic Hour
// upload flow, the local disk and an optional S3 mirror.
package storage

import (
	"context"
	"io"
)

// AssetResolver turns an Asset into a reference usable in a create payload.
type AssetResolver interface {
	// Resolve returns a URL or provider storage path. Local files and
	// byte streams are uploaded first.
	Resolve(ctx context.Context, asset Asset) (ref string, err error)
}

// UploadURLCreator requests upload slots from the API.
type UploadURLCreator interface {
	// CreateUploadURLs returns one slot per descriptor, in order.
	CreateUploadURLs(ctx context.Context, items []UploadDescriptor) ([]UploadSlot, error)
}

// Sink persists downloaded outputs.
type Sink interface {
	// Save writes data to dir/name, overwriting any existing file, and
	// returns the written path. An empty dir means the working directory.
	Save(ctx context.Context, dir, name string, data io.Reader) (path string, err error)
}

// Mirror copies local files to durable object storage.
type Mirror interface {
	// UploadFile uploads the file at path under key and returns its URL.
	UploadFile(ctx context.Context, key, path string) (url string, err error)
}

// UploadSlot is a presigned upload target returned by the API.
type UploadSlot struct {
	// UploadURL receives the raw bytes via PUT.
	UploadURL string `json:"upload_url"`
	// FilePath is the storage reference to use in create payloads.
	FilePath string `json:"file_path"`
}
