package magichour

import (
	"context"
	"fmt"
	"net/http"

	"github.com/maauso/magichour-go/internal/storage"
)

// Compile-time check that FilesClient can request upload slots for the resolver.
var _ storage.UploadURLCreator = (*FilesClient)(nil)

// FilesClient requests presigned upload URLs.
type FilesClient struct {
	client *Client
}

type uploadURLsRequest struct {
	Items []storage.UploadDescriptor `json:"items"`
}

type uploadURLsResponse struct {
	Items []storage.UploadSlot `json:"items"`
}

// CreateUploadURLs calls POST /v1/files/upload-urls and returns one slot per
// descriptor, in request order.
func (f *FilesClient) CreateUploadURLs(ctx context.Context, items []storage.UploadDescriptor) ([]storage.UploadSlot, error) {
	var resp uploadURLsResponse
	if err := f.client.do(ctx, http.MethodPost, "/v1/files/upload-urls", uploadURLsRequest{Items: items}, &resp, nil); err != nil {
		return nil, err
	}
	if len(resp.Items) != len(items) {
		return nil, fmt.Errorf("magichour: requested %d upload urls, got %d", len(items), len(resp.Items))
	}
	return resp.Items, nil
}
