package magichour

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/maauso/magichour-go/internal/job"
)

// ResourceClient creates jobs on one generation endpoint. C is the create
// params type of that endpoint.
type ResourceClient[C any] struct {
	client *Client
	path   string
	kind   job.Kind
}

func newResource[C any](c *Client, path string, kind job.Kind) *ResourceClient[C] {
	return &ResourceClient[C]{client: c, path: path, kind: kind}
}

// Kind returns the project kind whose endpoint reports the job status.
func (r *ResourceClient[C]) Kind() job.Kind {
	return r.kind
}

// Path returns the create endpoint path.
func (r *ResourceClient[C]) Path() string {
	return r.path
}

// Create validates params and submits the job. Asset fields must already
// be URLs or uploaded storage paths.
func (r *ResourceClient[C]) Create(ctx context.Context, params C, opts ...RequestOption) (*job.Created, error) {
	if err := r.client.validate.StructCtx(ctx, params); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}

	var created job.Created
	if err := r.client.do(ctx, http.MethodPost, r.path, params, &created, opts); err != nil {
		return nil, err
	}
	if created.ID == "" {
		return nil, ErrNoIDReturned
	}

	r.client.logger.Info("job created",
		slog.String("id", created.ID),
		slog.String("path", r.path),
		slog.Int("credits_charged", created.CreditsCharged),
	)
	return &created, nil
}

// Resource clients, one per generation endpoint.
type (
	AIImageGeneratorClient = ResourceClient[AIImageGeneratorCreateParams]
	PhotoColorizerClient   = ResourceClient[PhotoColorizerCreateParams]
	ImageToVideoClient     = ResourceClient[ImageToVideoCreateParams]
	LipSyncClient          = ResourceClient[LipSyncCreateParams]
	FaceSwapClient         = ResourceClient[FaceSwapCreateParams]
	AIVoiceClonerClient    = ResourceClient[AIVoiceClonerCreateParams]
)
