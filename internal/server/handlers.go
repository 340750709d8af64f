package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/maauso/magichour-go/internal/job"
	"github.com/maauso/magichour-go/internal/webhook"
)

// EventParser verifies an incoming request and returns its event.
type EventParser interface {
	ParseRequest(r *http.Request) (webhook.Event, error)
}

// Archiver stores a copy of every accepted notification body.
type Archiver interface {
	Upload(ctx context.Context, key string, data io.Reader) (string, error)
}

// Handlers contains the HTTP handlers for the webhook receiver.
type Handlers struct {
	parser    EventParser
	repo      job.Repository
	archiver  Archiver
	validator *validator.Validate
	logger    *slog.Logger
	now       func() time.Time
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithArchiver uploads each accepted payload under events/<project id>/.
// Archive failures are logged and never change the response.
func WithArchiver(a Archiver) HandlerOption {
	return func(h *Handlers) {
		h.archiver = a
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(parser EventParser, repo job.Repository, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		parser:    parser,
		repo:      repo,
		validator: validator.New(validator.WithRequiredStructEnabled()),
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// ReceiveWebhook handles POST /webhooks/magic-hour requests.
func (h *Handlers) ReceiveWebhook(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	ev, err := h.parser.ParseRequest(r)
	if err != nil {
		// The reason stays in the log; the caller gets a generic body.
		h.logger.Warn("webhook rejected",
			slog.String("request_id", reqID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid webhook", "INVALID_WEBHOOK")
		return
	}

	projectID := ev.ProjectID()
	if err := h.validator.Struct(eventRecord{ProjectID: projectID, Type: ev.Type}); err != nil {
		h.logger.Warn("webhook event validation failed",
			slog.String("request_id", reqID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid webhook", "INVALID_WEBHOOK")
		return
	}

	h.logger.Info("webhook received",
		slog.String("request_id", reqID),
		slog.String("event", ev.String()),
	)

	if projectID == "" {
		// Nothing to key the record on.
		writeJSON(w, http.StatusOK, WebhookResponse{Received: true, Type: ev.Type})
		return
	}

	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		h.logger.Error("failed to encode webhook payload",
			slog.String("project_id", projectID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to record event", "EVENT_SAVE_FAILED")
		return
	}

	rec := job.EventRecord{
		ProjectID:  projectID,
		Type:       ev.Type,
		Status:     job.Status(ev.Payload.GetString("status")),
		Payload:    payload,
		ReceivedAt: h.now().UTC(),
	}
	if err := h.repo.Save(r.Context(), rec); err != nil {
		h.logger.Error("failed to save webhook event",
			slog.String("project_id", projectID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to record event", "EVENT_SAVE_FAILED")
		return
	}

	h.archive(r.Context(), rec)

	writeJSON(w, http.StatusOK, WebhookResponse{
		Received:  true,
		Type:      ev.Type,
		ProjectID: projectID,
	})
}

// archive uploads rec's payload when an archiver is configured.
func (h *Handlers) archive(ctx context.Context, rec job.EventRecord) {
	if h.archiver == nil {
		return
	}
	key := fmt.Sprintf("events/%s/%s.json", rec.ProjectID, uuid.NewString())
	url, err := h.archiver.Upload(ctx, key, bytes.NewReader(rec.Payload))
	if err != nil {
		h.logger.Warn("failed to archive webhook event",
			slog.String("project_id", rec.ProjectID),
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return
	}
	h.logger.Debug("webhook event archived",
		slog.String("project_id", rec.ProjectID),
		slog.String("url", url),
	)
}

// LatestEvent handles GET /projects/{id}/events/latest requests.
func (h *Handlers) LatestEvent(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.projectID(w, r)
	if !ok {
		return
	}

	rec, err := h.repo.Latest(r.Context(), projectID)
	if err != nil {
		if errors.Is(err, job.ErrEventNotFound) {
			writeError(w, http.StatusNotFound, "no event recorded for project", "EVENT_NOT_FOUND")
			return
		}
		h.logger.Error("failed to load webhook event",
			slog.String("project_id", projectID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load event", "EVENT_FETCH_FAILED")
		return
	}

	writeJSON(w, http.StatusOK, newEventResponse(rec))
}

// DeleteEvent handles DELETE /projects/{id}/events requests.
func (h *Handlers) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.projectID(w, r)
	if !ok {
		return
	}

	if err := h.repo.Delete(r.Context(), projectID); err != nil {
		if errors.Is(err, job.ErrEventNotFound) {
			writeError(w, http.StatusNotFound, "no event recorded for project", "EVENT_NOT_FOUND")
			return
		}
		h.logger.Error("failed to delete webhook event",
			slog.String("project_id", projectID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to delete event", "EVENT_DELETE_FAILED")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListEvents handles GET /events requests.
func (h *Handlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	recs, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list webhook events",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list events", "EVENT_LIST_FAILED")
		return
	}

	resp := EventListResponse{Events: make([]EventResponse, 0, len(recs))}
	for _, rec := range recs {
		resp.Events = append(resp.Events, newEventResponse(rec))
	}
	writeJSON(w, http.StatusOK, resp)
}

// projectID validates the {id} route parameter, writing a 400 when it is unusable.
func (h *Handlers) projectID(w http.ResponseWriter, r *http.Request) (string, bool) {
	p := projectPath{ID: chi.URLParam(r, "id")}
	if err := h.validator.Struct(p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid project id", "INVALID_PROJECT_ID")
		return "", false
	}
	return p.ID, true
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
