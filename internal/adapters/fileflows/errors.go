package fileflows

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every failure the client can return.
type ErrorKind int

const (
	// KindConnection covers unreachable hosts, refused connections and timeouts.
	KindConnection ErrorKind = iota + 1
	// KindAuth covers 401/403 responses and rejected logins.
	KindAuth
	// KindProtocol covers any other non-2xx status and malformed bodies.
	KindProtocol
)

func (k ErrorKind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindAuth:
		return "auth"
	case KindProtocol:
		return "protocol"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by Client.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Op      string    `json:"op"`
	Status  int       `json:"status,omitempty"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("fileflows %s %s failure", e.Op, e.Kind)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

var (
	// ErrLoginRejected is wrapped when the server refuses the submitted credentials.
	ErrLoginRejected = errors.New("login rejected")
	// ErrEmptyToken is wrapped when a login succeeds but returns no token.
	ErrEmptyToken = errors.New("login returned an empty token")
	// ErrInvalidCommand is returned for control commands with missing or bad arguments.
	ErrInvalidCommand = errors.New("invalid command")
)

func newConnectionError(op string, err error) *Error {
	return &Error{Kind: KindConnection, Op: op, Message: "request failed", Err: err}
}

func newAuthError(op string, status int, err error) *Error {
	return &Error{Kind: KindAuth, Op: op, Status: status, Message: "authentication failed", Err: err}
}

func newProtocolError(op string, status int, message string) *Error {
	return &Error{Kind: KindProtocol, Op: op, Status: status, Message: message}
}

// KindOf returns the failure kind of err, or 0 when err did not come from the client.
func KindOf(err error) ErrorKind {
	var ffErr *Error
	if errors.As(err, &ffErr) {
		return ffErr.Kind
	}
	return 0
}

// IsConnectionError reports whether err is a connection failure.
func IsConnectionError(err error) bool {
	return KindOf(err) == KindConnection
}

// IsAuthError reports whether err is an authentication failure.
func IsAuthError(err error) bool {
	return KindOf(err) == KindAuth
}

// IsProtocolError reports whether err is a protocol failure.
func IsProtocolError(err error) bool {
	return KindOf(err) == KindProtocol
}
