package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredential indicates an unknown or malformed credential.
	// Callers surface it as the generic session failure, never the
	// underlying cause.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrDuplicate indicates a uniqueness conflict.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrForbidden indicates the caller lacks the required permission.
	ErrForbidden = errors.New("forbidden")
)
