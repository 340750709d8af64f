package magichour

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/maauso/magichour-go/internal/job"
)

// ProjectsClient fetches project snapshots of one kind.
type ProjectsClient struct {
	client *Client
	kind   job.Kind
}

// Kind returns the project kind served by this client.
func (p *ProjectsClient) Kind() job.Kind {
	return p.kind
}

// Get calls GET /v1/<kind>-projects/{id}. Each call decodes a fresh snapshot.
func (p *ProjectsClient) Get(ctx context.Context, id string, opts ...RequestOption) (job.Job, error) {
	if id == "" {
		return job.Job{}, ErrIDRequired
	}

	path := fmt.Sprintf("/v1/%s-projects/%s", p.kind, url.PathEscape(id))

	var j job.Job
	if err := p.client.do(ctx, http.MethodGet, path, nil, &j, opts); err != nil {
		return job.Job{}, err
	}
	return j, nil
}
