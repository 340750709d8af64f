// Package job provides the project snapshot types returned by the Magic Hour API.
// A Job is a value: every fetch produces a fresh snapshot and the client never
// changes a status locally. The package also holds the repository used to
// remember webhook notifications per project.
package job

import (
	"errors"
	"fmt"
)

// Kind identifies which project endpoint reports the status of a job.
type Kind string

const (
	// KindImage jobs are fetched from /v1/image-projects/{id}.
	KindImage Kind = "image"
	// KindVideo jobs are fetched from /v1/video-projects/{id}.
	KindVideo Kind = "video"
	// KindAudio jobs are fetched from /v1/audio-projects/{id}.
	KindAudio Kind = "audio"
)

// ErrUnknownKind is returned when a project kind is not image, video or audio.
var ErrUnknownKind = errors.New("job: unknown project kind")

// ParseKind converts a string into a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindImage, KindVideo, KindAudio:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Status represents the render state of a project.
type Status string

// Project statuses as reported by the API.
const (
	// StatusDraft is not currently used by the API but may be returned.
	StatusDraft Status = "draft"
	// StatusQueued indicates the job is waiting for a GPU.
	StatusQueued Status = "queued"
	// StatusRendering indicates the generation is in progress.
	StatusRendering Status = "rendering"
	// StatusComplete indicates the outputs are ready to download.
	StatusComplete Status = "complete"
	// StatusError indicates an error occurred during rendering.
	StatusError Status = "error"
	// StatusCanceled indicates the render was canceled by the user.
	StatusCanceled Status = "canceled"
)

// IsTerminal returns true if no further transition can happen from s.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusComplete, StatusError, StatusCanceled:
		return true
	default:
		return false
	}
}

// IsValid returns true if s is one of the known statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusQueued, StatusRendering, StatusComplete, StatusError, StatusCanceled:
		return true
	default:
		return false
	}
}

// Download is a time-limited output URL of a completed job.
type Download struct {
	URL       string `json:"url"`
	ExpiresAt string `json:"expires_at"`
}

// ErrorDetail describes why a render failed.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e ErrorDetail) String() string {
	if e.Code == "" {
		return e.Message
	}
	return e.Code + ": " + e.Message
}

// Job is one snapshot of a server-side generation task.
type Job struct {
	ID             string       `json:"id"`
	Name           string       `json:"name,omitempty"`
	Type           string       `json:"type,omitempty"`
	Status         Status       `json:"status"`
	Error          *ErrorDetail `json:"error,omitempty"`
	Downloads      []Download   `json:"downloads"`
	TotalFrameCost int          `json:"total_frame_cost"`
	CreditsCharged int          `json:"credits_charged"`
	CreatedAt      string       `json:"created_at,omitempty"`
}

// IsTerminal reports whether the snapshot is in a terminal state.
func (j Job) IsTerminal() bool {
	return j.Status.IsTerminal()
}

// Clone returns a deep copy of the snapshot.
func (j Job) Clone() Job {
	out := j
	if j.Error != nil {
		detail := *j.Error
		out.Error = &detail
	}
	if j.Downloads != nil {
		out.Downloads = make([]Download, len(j.Downloads))
		copy(out.Downloads, j.Downloads)
	}
	return out
}

// Created is the response of a create call.
type Created struct {
	// ID is the project id to poll.
	ID string `json:"id"`
	// EstimatedFrameCost is the cost estimate returned by video endpoints.
	EstimatedFrameCost float64 `json:"estimated_frame_cost,omitempty"`
	// CreditsCharged is the number of credits reserved for the job.
	CreditsCharged int `json:"credits_charged,omitempty"`
}

// Result is a Job snapshot extended with the local paths of downloaded outputs.
// DownloadedPaths is nil when downloads were not requested or not available.
type Result struct {
	Job
	DownloadedPaths []string `json:"downloaded_paths,omitempty"`
}
