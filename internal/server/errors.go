package server

import "fmt"

// ValidationError indicates the client supplied malformed or missing
// required input. Maps to HTTP 400.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// ConflictError indicates a unique-key collision, e.g. registering an
// already-taken username. Maps to HTTP 400.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string {
	return e.Msg
}

// AuthError indicates a credential mismatch. Maps to HTTP 401.
type AuthError struct {
	Msg string
}

func (e *AuthError) Error() string {
	return e.Msg
}

// NotFoundError indicates a missing record. Reserved for future routes;
// maps to HTTP 404.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string {
	return e.Msg
}

// StorageError indicates the underlying storage was unavailable or an
// operation failed. Maps to HTTP 500; the wrapped cause is logged
// server-side and never exposed to the client.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
