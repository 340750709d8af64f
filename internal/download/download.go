// Package download fetches the outputs of a completed job to the local disk.
//
// Downloads run one after the other in Job.Downloads order. A failure stops
// the sequence; files already written stay on disk.
package download

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/maauso/magichour-go/internal/job"
	"github.com/maauso/magichour-go/internal/job/id"
	"github.com/maauso/magichour-go/internal/storage"
)

// ErrDownloadFailed is returned when a download URL answers with a non-2xx status.
var ErrDownloadFailed = errors.New("download: request failed")

// sniffLen is how many leading bytes are inspected to guess an extension.
const sniffLen = 3072

// Artifact is one downloaded output.
type Artifact struct {
	SourceURL string `json:"source_url"`
	LocalPath string `json:"local_path"`
}

// Paths returns the local paths of artifacts, in order.
func Paths(artifacts []Artifact) []string {
	paths := make([]string, len(artifacts))
	for i, a := range artifacts {
		paths[i] = a.LocalPath
	}
	return paths
}

// Downloader writes job outputs through a storage.Sink.
type Downloader struct {
	httpClient *http.Client
	sink       storage.Sink
	logger     *slog.Logger
}

// Option is a function that configures a Downloader.
type Option func(*Downloader)

// WithHTTPClient sets the HTTP client used for the GETs.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Downloader) {
		d.httpClient = c
	}
}

// WithSink sets where outputs are written.
func WithSink(s storage.Sink) Option {
	return func(d *Downloader) {
		d.sink = s
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Downloader) {
		d.logger = l
	}
}

// New creates a Downloader writing to the local disk by default.
func New(opts ...Option) *Downloader {
	d := &Downloader{
		httpClient: &http.Client{},
		sink:       storage.NewLocalSink(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

// Download saves every output of j into dir (the working directory when
// dir is empty) and returns them in Job.Downloads order. Nothing is
// downloaded unless j is complete. Existing files are overwritten.
func (d *Downloader) Download(ctx context.Context, j job.Job, dir string) ([]Artifact, error) {
	if j.Status != job.StatusComplete {
		return nil, nil
	}

	artifacts := make([]Artifact, 0, len(j.Downloads))
	for _, dl := range j.Downloads {
		local, err := d.fetch(ctx, dl.URL, dir)
		if err != nil {
			return nil, err
		}
		d.logger.Info("output downloaded",
			slog.String("id", j.ID),
			slog.String("path", local),
		)
		artifacts = append(artifacts, Artifact{SourceURL: dl.URL, LocalPath: local})
	}
	return artifacts, nil
}

func (d *Downloader) fetch(ctx context.Context, rawURL, dir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("download: create request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download: get %s: %w", redact(rawURL), err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: %s: status %d", ErrDownloadFailed, redact(rawURL), resp.StatusCode)
	}

	var body io.Reader = resp.Body
	name := FilenameFromURL(rawURL)
	if name == "" {
		head := make([]byte, sniffLen)
		n, err := io.ReadFull(resp.Body, head)
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("download: read %s: %w", redact(rawURL), err)
		}
		head = head[:n]
		name = id.Filename(mimetype.Detect(head).Extension())
		body = io.MultiReader(bytes.NewReader(head), resp.Body)
	}

	return d.sink.Save(ctx, dir, name, body)
}

// FilenameFromURL returns the last path segment of rawURL, unescaped, or ""
// when the URL has no usable file name.
func FilenameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	if u.Path == "" || strings.HasSuffix(u.Path, "/") {
		return ""
	}
	base := path.Base(u.Path)
	if base == "." || base == ".." {
		return ""
	}
	return base
}

// redact drops the query string, which carries the URL signature.
func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.RawQuery = ""
	return u.String()
}
