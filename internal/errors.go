package internal

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSession is returned when a send targets a thread without a remote session.
	ErrNoSession = errors.New("no active chat session")
	// ErrSendInFlight is returned when a thread already has an outstanding send.
	ErrSendInFlight = errors.New("a message is already being sent for this conversation")
	// ErrSendFailed wraps remote failures during a send. The optimistic message was rolled back.
	ErrSendFailed = errors.New("send message failed")
	// ErrSessionStart wraps remote failures while creating a session.
	ErrSessionStart = errors.New("start session failed")
	// ErrSuperseded is returned when a response arrives after its chat was closed or reopened.
	ErrSuperseded = errors.New("response discarded: chat was closed or reopened")
)

// StorageError represents errors accessing the durable key-value store
type StorageError struct {
	Backend string // "sqlite", "redis", "memory"
	Op      string // "open", "get", "set", "delete"
	Key     string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s %s %s: %v", e.Backend, e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ParseError represents errors parsing data
type ParseError struct {
	Source string // "persisted", "remote"
	Key    string // storage key or endpoint
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error [%s] %s: %v", e.Source, e.Key, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// RemoteError represents a failed call to the AI chat service, either at the
// transport level or a non-success status code inside the response envelope.
type RemoteError struct {
	Op         string // "start_session", "get_session", "send_message"
	StatusCode string // envelope status code, empty on transport failure
	HTTPStatus int
	Message    string
	Err        error
}

func (e *RemoteError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != "" {
		return fmt.Sprintf("remote error [%s] status %s: %s", e.Op, e.StatusCode, msg)
	}
	if e.HTTPStatus != 0 {
		return fmt.Sprintf("remote error [%s] http %d: %s", e.Op, e.HTTPStatus, msg)
	}
	return fmt.Sprintf("remote error [%s]: %s", e.Op, msg)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Reason returns the most useful human-readable cause.
func (e *RemoteError) Reason() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// ExportError represents errors during export
type ExportError struct {
	Format string
	Path   string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [%s] %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}
