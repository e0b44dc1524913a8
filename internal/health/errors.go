package health

import (
	"errors"
	"fmt"
)

// Outcome classifies the result of a single health check.
type Outcome string

const (
	OutcomeOK        Outcome = "ok"
	OutcomeTransport Outcome = "transport"
	OutcomeProtocol  Outcome = "protocol"
	OutcomeDecode    Outcome = "decode"
	OutcomeUnknown   Outcome = "unknown"
)

const (
	connectFailedMessage = "Failed to connect"
	decodeFailedMessage  = "invalid health response"
)

// TransportError means no HTTP response was received: connection refused,
// DNS failure, timeout or cancellation.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("health request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError means the endpoint answered with a status outside 2xx.
type ProtocolError struct {
	StatusCode int
	Status     string
}

func (e *ProtocolError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("unexpected status: %s", e.Status)
	}
	return fmt.Sprintf("unexpected status: %d", e.StatusCode)
}

// DecodeError means the response body did not match the HealthStatus shape.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode health response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Classify maps an error returned by a check to its outcome.
func Classify(err error) Outcome {
	if err == nil {
		return OutcomeOK
	}
	var transportErr *TransportError
	var protocolErr *ProtocolError
	var decodeErr *DecodeError
	switch {
	case errors.As(err, &protocolErr):
		return OutcomeProtocol
	case errors.As(err, &decodeErr):
		return OutcomeDecode
	case errors.As(err, &transportErr):
		return OutcomeTransport
	default:
		return OutcomeUnknown
	}
}

// DisplayMessage returns the human-readable message for a failed check.
func DisplayMessage(err error) string {
	if err == nil {
		return FallbackMessage
	}
	var protocolErr *ProtocolError
	if errors.As(err, &protocolErr) {
		return fmt.Sprintf("HTTP %d", protocolErr.StatusCode)
	}
	switch Classify(err) {
	case OutcomeTransport:
		return connectFailedMessage
	case OutcomeDecode:
		return decodeFailedMessage
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return FallbackMessage
}
