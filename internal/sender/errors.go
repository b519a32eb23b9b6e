package sender

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies delivery failures. The queue processor deliberately
// treats every kind the same for retry bookkeeping; the classification exists
// for logs, metrics, and the attempt audit trail.
type ErrorKind string

const (
	KindDisabled           ErrorKind = "channel_disabled"
	KindInvalidRecipient   ErrorKind = "invalid_recipient"
	KindTransport          ErrorKind = "transport_error"
	KindRemoteRejected     ErrorKind = "remote_rejected"
	KindUnsupportedChannel ErrorKind = "unsupported_channel"
)

// SendError is the typed failure outcome of a channel send.
type SendError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Cause      error
}

func (e *SendError) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 4)
	parts = append(parts, string(e.Kind))

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, ": ")
}

func (e *SendError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// KindOf extracts the failure classification from an error chain; unknown
// errors map to KindTransport.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}

	var sendErr *SendError
	if errors.As(err, &sendErr) {
		return sendErr.Kind
	}

	return KindTransport
}
