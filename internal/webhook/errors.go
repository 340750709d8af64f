package webhook

import (
	"errors"
	"fmt"
)

// Static errors for webhook verification.
var (
	// ErrSignatureVerification is matched by every *SignatureVerificationError.
	ErrSignatureVerification = errors.New("webhook: signature verification failed")
	// ErrMissingHeader is the cause when a signature or timestamp header is empty.
	ErrMissingHeader = errors.New("webhook: missing header")
	// ErrInvalidTimestamp is the cause when the timestamp header is not an integer.
	ErrInvalidTimestamp = errors.New("webhook: invalid timestamp")
	// ErrTimestampTooOld is the cause when the timestamp is older than the tolerance.
	ErrTimestampTooOld = errors.New("webhook: timestamp outside the tolerance zone")
	// ErrSignatureMismatch is the cause when the signature does not match the payload.
	ErrSignatureMismatch = errors.New("webhook: signature mismatch")

	// ErrSecretRequired is returned when no webhook secret is configured.
	ErrSecretRequired = errors.New("webhook: secret is required")
	// ErrInvalidPayload is returned when a verified body is not a JSON object.
	ErrInvalidPayload = errors.New("webhook: invalid JSON payload")
	// ErrMissingType is returned when a verified body has no "type" field.
	ErrMissingType = errors.New("webhook: missing type field")
)

// SignatureVerificationError reports a webhook that could not be
// authenticated. Callers should answer with a 4xx and no details.
type SignatureVerificationError struct {
	// Reason is one of ErrMissingHeader, ErrInvalidTimestamp,
	// ErrTimestampTooOld or ErrSignatureMismatch.
	Reason    error
	Detail    string
	SigHeader string
	Payload   []byte
}

func newVerificationError(reason error, sigHeader string, payload []byte, format string, args ...any) *SignatureVerificationError {
	return &SignatureVerificationError{
		Reason:    reason,
		Detail:    fmt.Sprintf(format, args...),
		SigHeader: sigHeader,
		Payload:   payload,
	}
}

// Error implements the error interface.
func (e *SignatureVerificationError) Error() string {
	if e.Detail == "" {
		return e.Reason.Error()
	}
	return e.Reason.Error() + ": " + e.Detail
}

// Is reports whether target is ErrSignatureVerification.
func (e *SignatureVerificationError) Is(target error) bool {
	return target == ErrSignatureVerification
}

// Unwrap returns the reason.
func (e *SignatureVerificationError) Unwrap() error {
	return e.Reason
}
