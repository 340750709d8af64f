// Package server provides the HTTP webhook receiver for Magic Hour notifications.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import (
	"encoding/json"
	"time"

	"github.com/maauso/magichour-go/internal/job"
)

// WebhookResponse acknowledges an accepted notification.
type WebhookResponse struct {
	// Received is always true on a 200 response.
	Received bool `json:"received"`
	// Type is the verified event type.
	Type string `json:"type"`
	// ProjectID is the payload id, empty when the payload has none.
	ProjectID string `json:"project_id,omitempty"`
}

// EventResponse is the HTTP representation of a recorded notification.
type EventResponse struct {
	ProjectID  string          `json:"project_id"`
	Type       string          `json:"type"`
	Status     string          `json:"status,omitempty"`
	Payload    json.RawMessage `json:"payload"`
	ReceivedAt time.Time       `json:"received_at"`
}

// EventListResponse is the HTTP response for listing recorded notifications.
type EventListResponse struct {
	Events []EventResponse `json:"events"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}

// projectPath is the validated form of the {id} route parameter.
type projectPath struct {
	ID string `validate:"required,max=128,printascii"`
}

// eventRecord is validated before a notification is stored.
type eventRecord struct {
	ProjectID string `validate:"max=128,printascii"`
	Type      string `validate:"required,max=128"`
}

func newEventResponse(rec job.EventRecord) EventResponse {
	return EventResponse{
		ProjectID:  rec.ProjectID,
		Type:       rec.Type,
		Status:     string(rec.Status),
		Payload:    rec.Payload,
		ReceivedAt: rec.ReceivedAt,
	}
}
