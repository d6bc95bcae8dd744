package daemon

import (
	"errors"
	"fmt"
)

// Kind classifies failures talking to the daemon.
type Kind string

const (
	KindConnection  Kind = "connection_unavailable"
	KindTimeout     Kind = "timeout"
	KindUnavailable Kind = "service_unavailable"
	KindServer      Kind = "server_error"
	KindMalformed   Kind = "malformed_response"
	KindValidation  Kind = "validation_error"
	KindCanceled    Kind = "canceled"
)

// Error is the only error type returned by Transport and Gateway.
type Error struct {
	Kind    Kind
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of err, or "" when err is not a daemon error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsValidation reports whether err was raised before reaching the daemon
// because the caller omitted required input.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsUnavailable reports whether err means the daemon could not be reached or
// is not ready to serve (connection refused, timeout, 503).
func IsUnavailable(err error) bool {
	switch KindOf(err) {
	case KindConnection, KindTimeout, KindUnavailable:
		return true
	}
	return false
}

func errValidation(op, msg string) error {
	return &Error{Kind: KindValidation, Op: op, Message: msg}
}

func errConnection(op string, err error) *Error {
	return &Error{Kind: KindConnection, Op: op, Message: "unable to connect to Ollama server", Err: err}
}

func errTimeout(op string, err error) *Error {
	return &Error{Kind: KindTimeout, Op: op, Message: "connection to Ollama server timed out", Err: err}
}

func errUnavailable(op string) *Error {
	return &Error{Kind: KindUnavailable, Op: op, Status: 503, Message: "Ollama server is not running"}
}

func errServer(op string, status int, detail string) *Error {
	msg := fmt.Sprintf("server error: %d", status)
	if detail != "" {
		msg += ": " + detail
	}
	return &Error{Kind: KindServer, Op: op, Status: status, Message: msg}
}

func errMalformed(op string, err error) *Error {
	return &Error{Kind: KindMalformed, Op: op, Message: "malformed response from Ollama server", Err: err}
}
