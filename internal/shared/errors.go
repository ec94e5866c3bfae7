package shared

import "errors"

var (
	// ErrNoCredential indicates the session carries no bearer token.
	ErrNoCredential = errors.New("no credential in session")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)
