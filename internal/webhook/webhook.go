// Package webhook verifies and parses Magic Hour webhook notifications.
//
// A notification carries two headers: magic-hour-event-signature, the hex
// HMAC-SHA256 of "<timestamp>.<body>" keyed with the webhook secret, and
// magic-hour-event-timestamp, the Unix time it was signed. Only timestamps
// older than the tolerance are rejected; a timestamp in the future passes.
//
// Verification is pure and safe for concurrent use.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// Header names set by Magic Hour on every notification.
const (
	SignatureHeader = "magic-hour-event-signature"
	TimestampHeader = "magic-hour-event-timestamp"
)

// DefaultTolerance is the maximum accepted age of a notification.
const DefaultTolerance = 5 * time.Minute

// MaxBodyBytes caps the body read by ParseRequest.
const MaxBodyBytes = 1 << 20

// Event is a verified notification.
type Event struct {
	// Type is the event type, e.g. "video.completed".
	Type string
	// Payload is the "payload" object in its original key order. It is
	// empty, never nil, when the body has no payload.
	Payload *OrderedMap
}

// ProjectID returns the "id" of the payload, if any.
func (e Event) ProjectID() string {
	return e.Payload.GetString("id")
}

func (e Event) String() string {
	id := e.ProjectID()
	if id == "" {
		id = "unknown"
	}
	return fmt.Sprintf("Event(type=%q, payload_id=%q)", e.Type, id)
}

// ComputeSignature returns the hex HMAC-SHA256 of timestamp + "." + payload.
func ComputeSignature(payload []byte, secret, timestamp string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte{'.'})
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Tolerance returns a pointer to d, for use as a tolerance argument.
func Tolerance(d time.Duration) *time.Duration {
	return &d
}

// VerifyHeader checks the signature and timestamp headers of payload.
// A nil tolerance, or a non-positive one, accepts any age.
// Failures are *SignatureVerificationError.
func VerifyHeader(payload []byte, sigHeader, tsHeader, secret string, tolerance *time.Duration) error {
	return verifyAt(time.Now(), payload, sigHeader, tsHeader, secret, tolerance)
}

// ConstructEvent verifies payload and parses it into an Event. It never
// parses a body whose signature did not verify.
func ConstructEvent(payload []byte, sigHeader, tsHeader, secret string, tolerance *time.Duration) (Event, error) {
	return constructAt(time.Now(), payload, sigHeader, tsHeader, secret, tolerance)
}

func verifyAt(now time.Time, payload []byte, sigHeader, tsHeader, secret string, tolerance *time.Duration) error {
	if secret == "" {
		return ErrSecretRequired
	}
	if sigHeader == "" {
		return newVerificationError(ErrMissingHeader, sigHeader, payload, "%s", SignatureHeader)
	}
	if tsHeader == "" {
		return newVerificationError(ErrMissingHeader, sigHeader, payload, "%s", TimestampHeader)
	}

	ts, err := strconv.ParseInt(tsHeader, 10, 64)
	if err != nil {
		return newVerificationError(ErrInvalidTimestamp, sigHeader, payload, "%q", tsHeader)
	}

	if tolerance != nil && *tolerance > 0 {
		oldest := now.Unix() - int64(tolerance.Seconds())
		if ts < oldest {
			return newVerificationError(ErrTimestampTooOld, sigHeader, payload,
				"timestamp %d, now %d, tolerance %s", ts, now.Unix(), *tolerance)
		}
	}

	expected := ComputeSignature(payload, secret, tsHeader)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(sigHeader)) != 1 {
		return newVerificationError(ErrSignatureMismatch, sigHeader, payload, "")
	}
	return nil
}

func constructAt(now time.Time, payload []byte, sigHeader, tsHeader, secret string, tolerance *time.Duration) (Event, error) {
	if err := verifyAt(now, payload, sigHeader, tsHeader, secret, tolerance); err != nil {
		return Event{}, err
	}
	return parseEvent(payload)
}

func parseEvent(payload []byte) (Event, error) {
	v, err := decodeJSON(payload)
	if err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	body, ok := v.(*OrderedMap)
	if !ok {
		return Event{}, fmt.Errorf("%w: expected an object", ErrInvalidPayload)
	}

	eventType := body.GetString("type")
	if eventType == "" {
		return Event{}, ErrMissingType
	}

	ev := Event{Type: eventType, Payload: NewOrderedMap()}
	raw, _ := body.Get("payload")
	switch p := raw.(type) {
	case nil:
	case *OrderedMap:
		ev.Payload = p
	default:
		return Event{}, fmt.Errorf("%w: payload is %T, want object", ErrInvalidPayload, p)
	}
	return ev, nil
}

// Verifier holds the signature context of one webhook endpoint.
type Verifier struct {
	secret    string
	tolerance *time.Duration
	now       func() time.Time
}

// VerifierOption is a function that configures a Verifier.
type VerifierOption func(*Verifier)

// WithTolerance sets the maximum accepted age; nil disables the check.
func WithTolerance(d *time.Duration) VerifierOption {
	return func(v *Verifier) {
		v.tolerance = d
	}
}

// NewVerifier creates a Verifier for secret with DefaultTolerance.
func NewVerifier(secret string, opts ...VerifierOption) (*Verifier, error) {
	if secret == "" {
		return nil, ErrSecretRequired
	}
	v := &Verifier{
		secret:    secret,
		tolerance: Tolerance(DefaultTolerance),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// ConstructEvent verifies payload with the Verifier's secret and tolerance.
func (v *Verifier) ConstructEvent(payload []byte, sigHeader, tsHeader string) (Event, error) {
	return constructAt(v.now(), payload, sigHeader, tsHeader, v.secret, v.tolerance)
}

// ParseRequest reads the body and the two signature headers of r and
// returns the verified event.
func (v *Verifier) ParseRequest(r *http.Request) (Event, error) {
	if r.Body == nil {
		return Event{}, fmt.Errorf("%w: request has no body", ErrInvalidPayload)
	}
	payload, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
	if err != nil {
		return Event{}, fmt.Errorf("webhook: read body: %w", err)
	}
	if len(payload) > MaxBodyBytes {
		return Event{}, fmt.Errorf("%w: body exceeds %d bytes", ErrInvalidPayload, MaxBodyBytes)
	}
	return v.ConstructEvent(payload, r.Header.Get(SignatureHeader), r.Header.Get(TimestampHeader))
}
