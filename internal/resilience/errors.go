package resilience

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// TransientError marks a failure that is safe to retry: throttling, a 5xx
// response, a dropped connection.
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps err as transient. statusCode is 0 for
// non-HTTP failures.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// transientMessages are substrings of network errors that lost their type
// on the way up through an HTTP client.
var transientMessages = []string{
	"connection reset by peer",
	"broken pipe",
	"temporary failure in name resolution",
	"no such host",
	"tls handshake timeout",
	"i/o timeout",
	"server closed idle connection",
	"unexpected eof",
}

// IsTransient reports whether err, or anything it wraps, is worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range transientMessages {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsTransientHTTPStatus reports whether an HTTP status is a throttling or
// server-side condition that may clear on its own.
func IsTransientHTTPStatus(code int) bool {
	switch code {
	case 408, 425, 429, 500, 502, 503, 504:
		return true
	}
	return false
}

// StatusError builds the error for an unexpected HTTP response. It is
// transient when the status is.
func StatusError(service string, code int, body string) error {
	if len(body) > 512 {
		body = body[:512]
	}
	err := fmt.Errorf("%s: unexpected status %d: %s", service, code, strings.TrimSpace(body))
	if IsTransientHTTPStatus(code) {
		return NewTransientError(err, code)
	}
	return err
}

// Error classes recorded on ingest failures.
const (
	ErrorTypeTransient = "transient"
	ErrorTypePermanent = "permanent"
)

// ClassifyError returns ErrorTypeTransient or ErrorTypePermanent.
func ClassifyError(err error) string {
	if IsTransient(err) {
		return ErrorTypeTransient
	}
	return ErrorTypePermanent
}
