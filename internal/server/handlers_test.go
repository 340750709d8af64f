package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maauso/magichour-go/internal/job"
	"github.com/maauso/magichour-go/internal/webhook"
)

const testSecret = "whsec_test"

// mockRepository implements job.Repository for testing.
type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) Save(ctx context.Context, ev job.EventRecord) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

func (m *mockRepository) Latest(ctx context.Context, projectID string) (job.EventRecord, error) {
	args := m.Called(ctx, projectID)
	return args.Get(0).(job.EventRecord), args.Error(1)
}

func (m *mockRepository) List(ctx context.Context) ([]job.EventRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]job.EventRecord), args.Error(1)
}

func (m *mockRepository) Delete(ctx context.Context, projectID string) error {
	args := m.Called(ctx, projectID)
	return args.Error(0)
}

// mockArchiver implements Archiver for testing.
type mockArchiver struct {
	mock.Mock
}

func (m *mockArchiver) Upload(ctx context.Context, key string, data io.Reader) (string, error) {
	args := m.Called(ctx, key, data)
	return args.String(0), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestRouter(t *testing.T, repo job.Repository, opts ...HandlerOption) http.Handler {
	t.Helper()
	verifier, err := webhook.NewVerifier(testSecret)
	require.NoError(t, err)
	h := NewHandlers(verifier, repo, testLogger(), opts...)
	return NewRouter(h, testLogger())
}

// signedRequest builds a webhook delivery signed with secret at the current time.
func signedRequest(t *testing.T, secret, body string) *http.Request {
	t.Helper()
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	req := httptest.NewRequest(http.MethodPost, WebhookPath, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(webhook.TimestampHeader, ts)
	req.Header.Set(webhook.SignatureHeader, webhook.ComputeSignature([]byte(body), secret, ts))
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t, job.NewMemoryRepository())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestReceiveWebhook_Success(t *testing.T) {
	repo := job.NewMemoryRepository()
	router := newTestRouter(t, repo)

	body := `{"type":"video.completed","payload":{"id":"cuid-1","status":"complete","z":1,"a":2}}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, signedRequest(t, testSecret, body))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp WebhookResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Received)
	assert.Equal(t, "video.completed", resp.Type)
	assert.Equal(t, "cuid-1", resp.ProjectID)

	saved, err := repo.Latest(context.Background(), "cuid-1")
	require.NoError(t, err)
	assert.Equal(t, "video.completed", saved.Type)
	assert.Equal(t, job.StatusComplete, saved.Status)
	assert.Equal(t, `{"id":"cuid-1","status":"complete","z":1,"a":2}`, string(saved.Payload))
	assert.False(t, saved.ReceivedAt.IsZero())
}

func TestReceiveWebhook_RequestIDEchoed(t *testing.T) {
	router := newTestRouter(t, job.NewMemoryRepository())

	t.Run("generated when absent", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, signedRequest(t, testSecret, `{"type":"image.started","payload":{"id":"p"}}`))
		assert.Len(t, rec.Header().Get(RequestIDHeader), 36)
	})

	t.Run("kept when provided", func(t *testing.T) {
		req := signedRequest(t, testSecret, `{"type":"image.started","payload":{"id":"p"}}`)
		req.Header.Set(RequestIDHeader, "req-123")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))
	})
}

func TestReceiveWebhook_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		modify func(r *http.Request)
		secret string
		body   string
	}{
		{
			name:   "wrong secret",
			secret: "whsec_other",
			body:   `{"type":"video.completed","payload":{"id":"cuid-1"}}`,
		},
		{
			name:   "missing signature header",
			secret: testSecret,
			body:   `{"type":"video.completed","payload":{"id":"cuid-1"}}`,
			modify: func(r *http.Request) { r.Header.Del(webhook.SignatureHeader) },
		},
		{
			name:   "stale timestamp",
			secret: testSecret,
			body:   `{"type":"video.completed","payload":{"id":"cuid-1"}}`,
			modify: func(r *http.Request) {
				ts := strconv.FormatInt(time.Now().Add(-10*time.Minute).Unix(), 10)
				r.Header.Set(webhook.TimestampHeader, ts)
				r.Header.Set(webhook.SignatureHeader, webhook.ComputeSignature(
					[]byte(`{"type":"video.completed","payload":{"id":"cuid-1"}}`), testSecret, ts))
			},
		},
		{
			name:   "valid signature over invalid JSON",
			secret: testSecret,
			body:   `not json`,
		},
		{
			name:   "missing type",
			secret: testSecret,
			body:   `{"payload":{"id":"cuid-1"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := job.NewMemoryRepository()
			router := newTestRouter(t, repo)

			req := signedRequest(t, tt.secret, tt.body)
			if tt.modify != nil {
				tt.modify(req)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, "INVALID_WEBHOOK", resp.Code)
			assert.Equal(t, "invalid webhook", resp.Error)

			list, err := repo.List(context.Background())
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

func TestReceiveWebhook_NoProjectID(t *testing.T) {
	repo := &mockRepository{}
	router := newTestRouter(t, repo)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, signedRequest(t, testSecret, `{"type":"ping"}`))

	assert.Equal(t, http.StatusOK, rec.Code)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestReceiveWebhook_SaveFails(t *testing.T) {
	repo := &mockRepository{}
	repo.On("Save", mock.Anything, mock.MatchedBy(func(ev job.EventRecord) bool {
		return ev.ProjectID == "cuid-1"
	})).Return(errors.New("redis down"))
	router := newTestRouter(t, repo)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, signedRequest(t, testSecret, `{"type":"video.errored","payload":{"id":"cuid-1","status":"error"}}`))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "EVENT_SAVE_FAILED", decodeError(t, rec).Code)
	repo.AssertExpectations(t)
}

func TestReceiveWebhook_Archive(t *testing.T) {
	t.Run("payload uploaded under the project", func(t *testing.T) {
		archiver := &mockArchiver{}
		var uploaded []byte
		archiver.On("Upload", mock.Anything, mock.MatchedBy(func(key string) bool {
			return strings.HasPrefix(key, "events/cuid-1/") && strings.HasSuffix(key, ".json")
		}), mock.Anything).Run(func(args mock.Arguments) {
			uploaded, _ = io.ReadAll(args.Get(2).(io.Reader))
		}).Return("https://bucket.s3.region.amazonaws.com/events/cuid-1/x.json", nil)

		router := newTestRouter(t, job.NewMemoryRepository(), WithArchiver(archiver))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, signedRequest(t, testSecret, `{"type":"audio.completed","payload":{"id":"cuid-1"}}`))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, `{"id":"cuid-1"}`, string(uploaded))
		archiver.AssertExpectations(t)
	})

	t.Run("archive failure does not fail the delivery", func(t *testing.T) {
		archiver := &mockArchiver{}
		archiver.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("s3 down"))

		repo := job.NewMemoryRepository()
		router := newTestRouter(t, repo, WithArchiver(archiver))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, signedRequest(t, testSecret, `{"type":"audio.completed","payload":{"id":"cuid-1"}}`))

		assert.Equal(t, http.StatusOK, rec.Code)
		_, err := repo.Latest(context.Background(), "cuid-1")
		assert.NoError(t, err)
	})
}

func TestLatestEvent(t *testing.T) {
	repo := job.NewMemoryRepository()
	router := newTestRouter(t, repo)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, signedRequest(t, testSecret, `{"type":"video.started","payload":{"id":"cuid-1","status":"rendering"}}`))
	require.Equal(t, http.StatusOK, rec.Code)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, signedRequest(t, testSecret, `{"type":"video.completed","payload":{"id":"cuid-1","status":"complete"}}`))
	require.Equal(t, http.StatusOK, rec.Code)

	t.Run("returns the most recent event", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/projects/cuid-1/events/latest", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp EventResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "cuid-1", resp.ProjectID)
		assert.Equal(t, "video.completed", resp.Type)
		assert.Equal(t, "complete", resp.Status)
		assert.JSONEq(t, `{"id":"cuid-1","status":"complete"}`, string(resp.Payload))
	})

	t.Run("unknown project", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/projects/unknown/events/latest", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "EVENT_NOT_FOUND", decodeError(t, rec).Code)
	})

	t.Run("id too long", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/projects/"+strings.Repeat("x", 129)+"/events/latest", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_PROJECT_ID", decodeError(t, rec).Code)
	})
}

func TestLatestEvent_RepositoryError(t *testing.T) {
	repo := &mockRepository{}
	repo.On("Latest", mock.Anything, "cuid-1").Return(job.EventRecord{}, errors.New("redis down"))
	router := newTestRouter(t, repo)

	req := httptest.NewRequest(http.MethodGet, "/projects/cuid-1/events/latest", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "EVENT_FETCH_FAILED", decodeError(t, rec).Code)
}

func TestListAndDeleteEvents(t *testing.T) {
	repo := job.NewMemoryRepository()
	router := newTestRouter(t, repo)

	for _, id := range []string{"first", "second"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, signedRequest(t, testSecret, `{"type":"image.completed","payload":{"id":"`+id+`"}}`))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var list EventListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	assert.Len(t, list.Events, 2)

	req = httptest.NewRequest(http.MethodDelete, "/projects/first/events", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodDelete, "/projects/first/events", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, err := repo.Latest(context.Background(), "second")
	assert.NoError(t, err)
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	router := newTestRouter(t, job.NewMemoryRepository())

	req := httptest.NewRequest(http.MethodGet, WebhookPath, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	// Create a handler that panics
	panicHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	})

	handler := RecoveryMiddleware(testLogger())(panicHandler)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()

	// Should not panic
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", decodeError(t, rec).Code)
}

func TestLoggingMiddleware_CapturesStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/teapot", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Contains(t, buf.String(), `"status":418`)
	assert.Contains(t, buf.String(), `"path":"/teapot"`)
}
