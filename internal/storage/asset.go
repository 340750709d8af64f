package storage

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Static errors for asset resolution.
var (
	// ErrNotFound is returned when a local asset path does not exist or is not a regular file.
	ErrNotFound = errors.New("storage: file not found")
	// ErrInvalidInput is returned when a byte stream has no usable name or extension.
	ErrInvalidInput = errors.New("storage: invalid input")
	// ErrUnsupportedType is returned when an extension maps to no known media type.
	ErrUnsupportedType = errors.New("storage: unsupported file type")
	// ErrNoUploadURL is returned when the API answers an upload request with no slot.
	ErrNoUploadURL = errors.New("storage: no upload url returned")
	// ErrUploadFailed is returned when the PUT to an upload URL does not succeed.
	ErrUploadFailed = errors.New("storage: upload failed")
)

// UploadedPrefix marks a storage path that already lives on the provider.
const UploadedPrefix = "api-assets"

// MediaType is the provider-side category of an upload.
type MediaType string

// Media types accepted by the upload endpoint.
const (
	MediaImage MediaType = "image"
	MediaAudio MediaType = "audio"
	MediaVideo MediaType = "video"
)

var extensionTypes = map[string]MediaType{
	"mp4":  MediaVideo,
	"m4v":  MediaVideo,
	"mov":  MediaVideo,
	"webm": MediaVideo,
	"mp3":  MediaAudio,
	"mpeg": MediaAudio,
	"wav":  MediaAudio,
	"aac":  MediaAudio,
	"aiff": MediaAudio,
	"flac": MediaAudio,
	"png":  MediaImage,
	"jpg":  MediaImage,
	"jpeg": MediaImage,
	"webp": MediaImage,
	"avif": MediaImage,
	"jp2":  MediaImage,
	"tiff": MediaImage,
	"tif":  MediaImage,
	"bmp":  MediaImage,
}

// UploadDescriptor describes one file in an upload-URL request.
type UploadDescriptor struct {
	MediaType MediaType `json:"type"`
	Extension string    `json:"extension"`
}

// Describe derives the descriptor of a file name from its extension.
func Describe(name string) (UploadDescriptor, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext == "" {
		return UploadDescriptor{}, fmt.Errorf("%w: %q has no extension", ErrUnsupportedType, name)
	}
	mt, ok := extensionTypes[ext]
	if !ok {
		return UploadDescriptor{}, fmt.Errorf("%w: .%s", ErrUnsupportedType, ext)
	}
	return UploadDescriptor{MediaType: mt, Extension: ext}, nil
}

// Asset is an input file handed to a generate call: either a reference
// string (local path, URL or uploaded storage path) or a named byte stream.
// The zero value means "not provided".
type Asset struct {
	ref  string
	name string
	body io.Reader
}

// FromPath wraps a local path, URL or already-uploaded storage path.
func FromPath(ref string) Asset {
	return Asset{ref: ref}
}

// FromReader wraps an in-memory stream. name supplies the extension; it is
// typically the original file name.
func FromReader(name string, r io.Reader) Asset {
	return Asset{name: name, body: r}
}

// IsZero reports whether the asset was not provided.
func (a Asset) IsZero() bool {
	return a.ref == "" && a.body == nil
}

// IsStream reports whether the asset is a byte stream.
func (a Asset) IsStream() bool {
	return a.body != nil
}

// Ref returns the reference string of a path asset.
func (a Asset) Ref() string {
	return a.ref
}

// Name returns the path of a path asset or the name of a stream.
func (a Asset) Name() string {
	if a.body != nil {
		return a.name
	}
	return a.ref
}

// IsRemote reports whether ref is an http(s) URL.
func IsRemote(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// IsUploaded reports whether ref is already a provider storage path.
func IsUploaded(ref string) bool {
	return strings.HasPrefix(ref, UploadedPrefix)
}
