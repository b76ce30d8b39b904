// Package kinds defines the typed error vocabulary shared by every
// gitdocdb subsystem.
//
// Every error that crosses a package boundary carries a Kind so that
// callers can branch on "what kind of thing happened" with errors.Is
// instead of parsing message text, in the same spirit as the sentinel
// errors beads' internal/vcs package exposes (ErrRefExists,
// ErrDetached, ...).
package kinds

import (
	"errors"
	"fmt"
)

// Kind enumerates the error categories named in the design.
type Kind string

const (
	Closing                          Kind = "closing"
	CloseTimeout                     Kind = "close-timeout"
	TaskCancel                       Kind = "task-cancel"
	InvalidJSON                      Kind = "invalid-json"
	InvalidID                        Kind = "invalid-id"
	DocumentNotFound                 Kind = "document-not-found"
	CannotCreateDirectory             Kind = "cannot-create-directory"
	FileRemoveTimeout                Kind = "file-remove-timeout"
	InvalidURL                       Kind = "invalid-url"
	HTTPProtocolRequired              Kind = "http-protocol-required"
	HTTPNetwork                       Kind = "http-network"
	HTTPServerError                   Kind = "http-server-error"
	RequestTimeout                   Kind = "request-timeout"
	SocketTimeout                    Kind = "socket-timeout"
	CannotConnect                    Kind = "cannot-connect"
	UndefinedPersonalAccessToken      Kind = "undefined-personal-access-token"
	PersonalAccessTokenForAnotherAcct Kind = "personal-access-token-for-another-account"
	FetchPermissionDenied             Kind = "fetch-permission-denied"
	PushPermissionDenied              Kind = "push-permission-denied"
	PushConnectionFailed              Kind = "push-connection-failed"
	RemoteRepositoryNotFound          Kind = "remote-repository-not-found"
	AuthenticationTypeNotAllowCreate  Kind = "authentication-type-not-allow-create"
	NoMergeBaseFound                  Kind = "no-merge-base-found"
	SyncAlreadyRunning                Kind = "sync-already-running"
	CannotCreateRemote                Kind = "cannot-create-remote"
	NonFastForwardPush                Kind = "non-fast-forward-push"
	RequiresReopen                    Kind = "requires-reopen"
	DatabaseAlreadyOpen               Kind = "database-already-open"
)

// Error wraps an underlying cause with a Kind and the operation that
// produced it, e.g. Error{Kind: DocumentNotFound, Op: "Get", Err: ...}.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, kinds.New(SomeKind, "", nil)) match any
// *Error with the same Kind, regardless of Op/Err.
func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return te.Kind == e.Kind
}

// New builds an *Error. Err may be nil for a kind with no underlying cause.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Of reports the Kind carried by err, walking the unwrap chain. The
// second return is false if no *Error is found.
func Of(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Is reports whether err carries the given Kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	k, ok := Of(err)
	return ok && k == kind
}

// Retryable reports whether the retry layer should retry an operation
// that failed with this kind.
func Retryable(kind Kind) bool {
	switch kind {
	case HTTPNetwork, RequestTimeout, SocketTimeout, CannotConnect, HTTPServerError:
		return true
	default:
		return false
	}
}
