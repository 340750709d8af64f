package job

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrEventNotFound is returned when no notification was recorded for a project.
var ErrEventNotFound = errors.New("job: event not found")

// EventRecord is a verified webhook notification stored against a project id.
type EventRecord struct {
	// ProjectID is the id of the project the notification is about.
	ProjectID string `json:"project_id"`
	// Type is the webhook event type, e.g. "video.completed".
	Type string `json:"type"`
	// Status is the project status carried by the payload, if any.
	Status Status `json:"status,omitempty"`
	// Payload is the raw payload object in its original key order.
	Payload json.RawMessage `json:"payload"`
	// ReceivedAt is when the receiver accepted the notification.
	ReceivedAt time.Time `json:"received_at"`
}

// Repository stores the latest webhook notification per project.
type Repository interface {
	// Save records ev, replacing any earlier record for the same project.
	Save(ctx context.Context, ev EventRecord) error

	// Latest returns the most recent record for a project.
	// Returns ErrEventNotFound if none was saved.
	Latest(ctx context.Context, projectID string) (EventRecord, error)

	// List returns all records, most recent first.
	List(ctx context.Context) ([]EventRecord, error)

	// Delete removes the record of a project.
	// Returns ErrEventNotFound if none was saved.
	Delete(ctx context.Context, projectID string) error
}
