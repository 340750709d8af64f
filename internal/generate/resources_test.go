package generate

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/magichour-go/internal/job"
	"github.com/maauso/magichour-go/internal/magichour"
	"github.com/maauso/magichour-go/internal/storage"
)

// fakeAPI serves the upload, create, project and download endpoints of one
// image-to-video job that is queued twice before completing.
type fakeAPI struct {
	*httptest.Server
	mu        sync.Mutex
	uploaded  []byte
	created   map[string]any
	polls     int
	downloads int
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	api := &fakeAPI{}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/files/upload-urls", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"items": []map[string]string{{
			"upload_url": api.URL + "/upload/photo.png",
			"file_path":  "api-assets/id/photo.png",
		}}})
	})
	mux.HandleFunc("PUT /upload/photo.png", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		api.mu.Lock()
		api.uploaded = body
		api.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /v1/image-to-video", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		api.mu.Lock()
		api.created = body
		api.mu.Unlock()
		writeJSON(w, map[string]any{"id": "cuid-video", "estimated_frame_cost": 120, "credits_charged": 120})
	})
	mux.HandleFunc("GET /v1/video-projects/cuid-video", func(w http.ResponseWriter, _ *http.Request) {
		api.mu.Lock()
		api.polls++
		n := api.polls
		api.mu.Unlock()

		if n < 3 {
			writeJSON(w, map[string]any{"id": "cuid-video", "status": "queued", "downloads": []any{}})
			return
		}
		writeJSON(w, map[string]any{
			"id":        "cuid-video",
			"status":    "complete",
			"downloads": []map[string]string{{"url": api.URL + "/cdn/video.mp4", "expires_at": "2030-01-01T00:00:00Z"}},
		})
	})
	mux.HandleFunc("GET /cdn/video.mp4", func(w http.ResponseWriter, _ *http.Request) {
		api.mu.Lock()
		api.downloads++
		api.mu.Unlock()
		_, _ = w.Write([]byte("rendered video"))
	})

	api.Server = httptest.NewServer(mux)
	t.Cleanup(api.Close)
	return api
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestResources_ImageToVideoEndToEnd(t *testing.T) {
	api := newFakeAPI(t)
	client, err := magichour.NewClient("test-key", magichour.WithBaseURL(api.URL))
	require.NoError(t, err)

	resources, err := NewResources(client, WithPollInterval(time.Millisecond))
	require.NoError(t, err)

	image := []byte("\x89PNG fake image bytes")
	src := filepath.Join(t.TempDir(), "photo.png")
	require.NoError(t, os.WriteFile(src, image, 0o600))
	outDir := t.TempDir()

	res, err := resources.ImageToVideo.Generate(context.Background(), magichour.ImageToVideoGenerateParams{
		Name:       "Animated photo",
		EndSeconds: 5,
		Assets:     magichour.ImageToVideoGenerateAssets{ImageFilePath: storage.FromPath(src)},
	}, Options{WaitForCompletion: true, DownloadOutputs: true, DownloadDirectory: outDir})
	require.NoError(t, err)

	assert.Equal(t, job.StatusComplete, res.Status)
	assert.Equal(t, []string{filepath.Join(outDir, "video.mp4")}, res.DownloadedPaths)

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Equal(t, image, api.uploaded)
	assert.Equal(t, 3, api.polls)
	assert.Equal(t, 1, api.downloads)
	assert.Equal(t, "Animated photo", api.created["name"])
	assets, _ := api.created["assets"].(map[string]any)
	assert.Equal(t, "api-assets/id/photo.png", assets["image_file_path"])

	content, err := os.ReadFile(filepath.Join(outDir, "video.mp4"))
	require.NoError(t, err)
	assert.Equal(t, "rendered video", string(content))
}

func TestNewResources_AllWired(t *testing.T) {
	client, err := magichour.NewClient("test-key")
	require.NoError(t, err)

	r, err := NewResources(client)
	require.NoError(t, err)

	assert.NotNil(t, r.AIImageGenerator)
	assert.NotNil(t, r.PhotoColorizer)
	assert.NotNil(t, r.ImageToVideo)
	assert.NotNil(t, r.LipSync)
	assert.NotNil(t, r.FaceSwap)
	assert.NotNil(t, r.AIVoiceCloner)
	assert.NotNil(t, r.LipSync.poller)
	assert.NotNil(t, r.AIVoiceCloner.resolver)
}

func TestNewResources_InvalidInterval(t *testing.T) {
	client, err := magichour.NewClient("test-key")
	require.NoError(t, err)

	_, err = NewResources(client, WithPollInterval(-time.Second))
	assert.Error(t, err)
}
