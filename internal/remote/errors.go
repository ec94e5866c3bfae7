package remote

import (
	"errors"
	"fmt"
)

// User facing messages taken over from the dashboard.
const (
	MessageConfigUnavailable = "Error: Could not load server configuration."
	MessageInvalidLogin      = "Invalid username or password."
	MessageInvalidResponse   = "Invalid server response."
	MessageSessionExpired    = "Session expired. Please log in again."
	MessageFetchFailed       = "Failed to fetch audit data."
	MessageFetchAllFailed    = "Failed to fetch all data."
)

var (
	// ErrConfig matches every ConfigError.
	ErrConfig = errors.New("remote: configuration unavailable")
	// ErrSessionExpired is returned for any 401 response on an authenticated call.
	ErrSessionExpired = errors.New("remote: session expired")

	errMissingBaseURL = errors.New("base url is not defined in server config")
)

// ConfigError means the base URL could not be resolved. It is fatal for the client.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("remote: failed to initialize api: %v", e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Is reports whether target is ErrConfig.
func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

// AuthError carries the message shown on the login form.
type AuthError struct {
	Status  int
	Message string
}

func (e *AuthError) Error() string { return e.Message }

// FetchError aborts an audit list aggregation.
type FetchError struct {
	Status  int
	Message string
	Err     error
}

func (e *FetchError) Error() string { return e.Message }

func (e *FetchError) Unwrap() error { return e.Err }

// DownloadError is scoped to a single document download.
type DownloadError struct {
	Status int
	Err    error
}

func (e *DownloadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("Download failed: %v", e.Err)
	}
	return fmt.Sprintf("Download failed. Status: %d", e.Status)
}

func (e *DownloadError) Unwrap() error { return e.Err }
