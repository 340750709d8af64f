package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Compile-time check that Resolver implements AssetResolver.
var _ AssetResolver = (*Resolver)(nil)

// DefaultProgressThreshold is how long an upload runs before progress is logged.
const DefaultProgressThreshold = 3 * time.Second

// Resolver uploads local assets through presigned URLs and passes remote
// and already-uploaded references through untouched.
type Resolver struct {
	uploads           UploadURLCreator
	httpClient        *http.Client
	logger            *slog.Logger
	progressThreshold time.Duration
	now               func() time.Time
}

// ResolverOption is a function that configures a Resolver.
type ResolverOption func(*Resolver)

// WithUploadHTTPClient sets the HTTP client used for the raw PUT.
// The API client is not reused: upload URLs are presigned and must not
// carry the API key.
func WithUploadHTTPClient(c *http.Client) ResolverOption {
	return func(r *Resolver) {
		r.httpClient = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = l
	}
}

// WithProgressThreshold sets how long an upload runs before progress is logged.
func WithProgressThreshold(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.progressThreshold = d
	}
}

// NewResolver creates a Resolver that requests upload slots from uploads.
func NewResolver(uploads UploadURLCreator, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		uploads:           uploads,
		httpClient:        &http.Client{},
		logger:            slog.Default(),
		progressThreshold: DefaultProgressThreshold,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Resolve returns a reference usable in a create payload. URLs and paths
// starting with UploadedPrefix are returned unchanged without any network
// call. Local files and streams are uploaded: one upload-URL request, then
// one PUT. Failures are returned as-is, never retried.
func (r *Resolver) Resolve(ctx context.Context, asset Asset) (string, error) {
	if asset.IsZero() {
		return "", fmt.Errorf("%w: empty asset", ErrInvalidInput)
	}

	if !asset.IsStream() {
		ref := asset.Ref()
		if IsRemote(ref) || IsUploaded(ref) {
			r.logger.Debug("asset already resolved", slog.String("ref", ref))
			return ref, nil
		}
		return r.uploadFile(ctx, ref)
	}
	return r.uploadStream(ctx, asset.Name(), asset.body)
}

func (r *Resolver) uploadFile(ctx context.Context, path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s: %w", ErrNotFound, path, err)
		}
		return "", fmt.Errorf("storage: stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s is not a regular file", ErrNotFound, path)
	}

	desc, err := Describe(path)
	if err != nil {
		return "", err
	}

	slot, err := r.requestSlot(ctx, desc)
	if err != nil {
		return "", err
	}

	f, err := os.Open(path) // #nosec G304 - path is provided by the caller
	if err != nil {
		return "", fmt.Errorf("storage: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	if err := r.put(ctx, slot.UploadURL, path, f, info.Size()); err != nil {
		return "", err
	}

	r.logger.Info("asset uploaded",
		slog.String("path", path),
		slog.String("file_path", slot.FilePath),
		slog.Int64("bytes", info.Size()),
	)
	return slot.FilePath, nil
}

func (r *Resolver) uploadStream(ctx context.Context, name string, body io.Reader) (string, error) {
	if filepath.Ext(name) == "" {
		return "", fmt.Errorf("%w: cannot determine extension of stream %q", ErrInvalidInput, name)
	}
	desc, err := Describe(name)
	if err != nil {
		return "", err
	}

	slot, err := r.requestSlot(ctx, desc)
	if err != nil {
		return "", err
	}

	content, size, restore, err := rewind(body)
	if err != nil {
		return "", err
	}
	defer restore()

	if err := r.put(ctx, slot.UploadURL, name, content, size); err != nil {
		return "", err
	}

	r.logger.Info("stream uploaded",
		slog.String("name", name),
		slog.String("file_path", slot.FilePath),
		slog.Int64("bytes", size),
	)
	return slot.FilePath, nil
}

func (r *Resolver) requestSlot(ctx context.Context, desc UploadDescriptor) (UploadSlot, error) {
	slots, err := r.uploads.CreateUploadURLs(ctx, []UploadDescriptor{desc})
	if err != nil {
		return UploadSlot{}, fmt.Errorf("storage: request upload url: %w", err)
	}
	if len(slots) == 0 || slots[0].UploadURL == "" {
		return UploadSlot{}, ErrNoUploadURL
	}
	return slots[0], nil
}

// put sends body as raw bytes. size must be the exact body length.
func (r *Resolver) put(ctx context.Context, uploadURL, name string, body io.Reader, size int64) error {
	var reqBody io.Reader = http.NoBody
	if size > 0 {
		reqBody = newProgressReader(body, size, name, r.logger, r.progressThreshold, r.now)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, reqBody)
	if err != nil {
		return fmt.Errorf("storage: create upload request: %w", err)
	}
	req.ContentLength = size

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrUploadFailed, resp.StatusCode)
	}
	return nil
}

// rewind prepares a stream for upload. Seekable streams are read from the
// start and restored to their previous offset by the returned func. Other
// streams are read into memory because presigned PUTs need a Content-Length.
func rewind(body io.Reader) (io.Reader, int64, func(), error) {
	noop := func() {}

	s, ok := body.(io.Seeker)
	if !ok {
		b, err := io.ReadAll(body)
		if err != nil {
			return nil, 0, noop, fmt.Errorf("%w: read stream: %w", ErrInvalidInput, err)
		}
		return bytes.NewReader(b), int64(len(b)), noop, nil
	}

	pos, err := s.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, 0, noop, fmt.Errorf("%w: seek stream: %w", ErrInvalidInput, err)
	}
	end, err := s.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, 0, noop, fmt.Errorf("%w: seek stream: %w", ErrInvalidInput, err)
	}
	if _, err := s.Seek(0, io.SeekStart); err != nil {
		return nil, 0, noop, fmt.Errorf("%w: seek stream: %w", ErrInvalidInput, err)
	}
	restore := func() { _, _ = s.Seek(pos, io.SeekStart) }
	return body, end, restore, nil
}
