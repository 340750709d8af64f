// Package magichour is an HTTP client for the Magic Hour API: job creation
// per resource, project status fetches and upload URL requests.
//
// The client performs exactly one attempt per call. Non-2xx responses are
// returned as *APIError; nothing is retried.
package magichour

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/magichour-go/internal/job"
)

// DefaultBaseURL is the production API endpoint.
const DefaultBaseURL = "https://api.magichour.ai"

// Client is the Magic Hour API client. Resource clients are exposed as
// fields and share the underlying *http.Client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	validate   *validator.Validate

	Files         *FilesClient
	ImageProjects *ProjectsClient
	VideoProjects *ProjectsClient
	AudioProjects *ProjectsClient

	AIImageGenerator *AIImageGeneratorClient
	PhotoColorizer   *PhotoColorizerClient
	ImageToVideo     *ImageToVideoClient
	LipSync          *LipSyncClient
	FaceSwap         *FaceSwapClient
	AIVoiceCloner    *AIVoiceClonerClient
}

// ClientOption is a function that configures a Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL, e.g. a mock server.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient = &http.Client{Timeout: d}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a new API client authenticated with apiKey.
func NewClient(apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyRequired
	}

	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     slog.Default(),
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	c.Files = &FilesClient{client: c}
	c.ImageProjects = &ProjectsClient{client: c, kind: job.KindImage}
	c.VideoProjects = &ProjectsClient{client: c, kind: job.KindVideo}
	c.AudioProjects = &ProjectsClient{client: c, kind: job.KindAudio}

	c.AIImageGenerator = newResource[AIImageGeneratorCreateParams](c, "/v1/ai-image-generator", job.KindImage)
	c.PhotoColorizer = newResource[PhotoColorizerCreateParams](c, "/v1/photo-colorizer", job.KindImage)
	c.ImageToVideo = newResource[ImageToVideoCreateParams](c, "/v1/image-to-video", job.KindVideo)
	c.LipSync = newResource[LipSyncCreateParams](c, "/v1/lip-sync", job.KindVideo)
	c.FaceSwap = newResource[FaceSwapCreateParams](c, "/v1/face-swap", job.KindVideo)
	c.AIVoiceCloner = newResource[AIVoiceClonerCreateParams](c, "/v1/ai-voice-cloner", job.KindAudio)

	return c, nil
}

// Projects returns the status client for kind.
func (c *Client) Projects(kind job.Kind) (*ProjectsClient, error) {
	switch kind {
	case job.KindImage:
		return c.ImageProjects, nil
	case job.KindVideo:
		return c.VideoProjects, nil
	case job.KindAudio:
		return c.AudioProjects, nil
	default:
		return nil, fmt.Errorf("%w: %q", job.ErrUnknownKind, kind)
	}
}

// RequestOption adjusts a single API call.
type RequestOption func(*requestOptions)

type requestOptions struct {
	headers http.Header
	timeout time.Duration
}

// WithHeader adds a header to the request.
func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) {
		o.headers.Set(key, value)
	}
}

// WithRequestTimeout bounds a single call, on top of any ctx deadline.
func WithRequestTimeout(d time.Duration) RequestOption {
	return func(o *requestOptions) {
		o.timeout = d
	}
}

// do performs one request and decodes a 2xx JSON body into result.
func (c *Client) do(ctx context.Context, method, path string, body, result any, opts []RequestOption) error {
	ro := requestOptions{headers: http.Header{}}
	for _, opt := range opts {
		opt(&ro)
	}
	if ro.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ro.timeout)
		defer cancel()
	}

	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("magichour: marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("magichour: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range ro.headers {
		req.Header[k] = v
	}

	c.logger.Debug("api request", slog.String("method", method), slog.String("path", path))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("magichour: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}

	if result == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("magichour: decode response: %w", err)
	}
	return nil
}
