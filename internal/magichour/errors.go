package magichour

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Static errors for client operations.
var (
	// ErrAPIKeyRequired is returned when the client is built without an API key.
	ErrAPIKeyRequired = errors.New("magichour: API key is required")
	// ErrIDRequired is returned when a project id is empty.
	ErrIDRequired = errors.New("magichour: project id is required")
	// ErrNoIDReturned is returned when a create response carries no project id.
	ErrNoIDReturned = errors.New("magichour: create returned no project id")
	// ErrInvalidParams is returned when create params fail validation.
	ErrInvalidParams = errors.New("magichour: invalid params")
	// ErrRequestFailed is matched by every *APIError.
	ErrRequestFailed = errors.New("magichour: request failed")
)

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int
	Code    string
	Message string
	Body    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("magichour: %d %s: %s", e.Status, e.Code, msg)
	}
	return fmt.Sprintf("magichour: %d: %s", e.Status, msg)
}

// Unwrap lets errors.Is(err, ErrRequestFailed) match.
func (e *APIError) Unwrap() error {
	return ErrRequestFailed
}

// decodeAPIError builds an *APIError from resp. The body may be
// {"message": ...}, {"error": {"code": ..., "message": ...}} or plain text.
func decodeAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{Status: resp.StatusCode, Body: string(data)}
	if len(data) == 0 {
		apiErr.Message = resp.Status
		return apiErr
	}

	var payload struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		apiErr.Message = strings.TrimSpace(string(data))
		return apiErr
	}
	apiErr.Code = payload.Code
	apiErr.Message = payload.Message

	if len(payload.Error) > 0 {
		var nested struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		var text string
		switch {
		case json.Unmarshal(payload.Error, &nested) == nil:
			if apiErr.Code == "" {
				apiErr.Code = nested.Code
			}
			if apiErr.Message == "" {
				apiErr.Message = nested.Message
			}
		case json.Unmarshal(payload.Error, &text) == nil:
			if apiErr.Message == "" {
				apiErr.Message = text
			}
		}
	}

	if apiErr.Message == "" {
		apiErr.Message = resp.Status
	}
	return apiErr
}
