package domain

import "errors"

// Sentinel errors for domain operations
var (
	// ErrItemNotFound indicates the requested media item does not exist
	ErrItemNotFound = errors.New("media item not found")

	// ErrServerOffline indicates the media server is unreachable
	ErrServerOffline = errors.New("connection failed: media server is unreachable")

	// ErrConnectionFailed is the name used by connection verification for ErrServerOffline
	ErrConnectionFailed = ErrServerOffline

	// ErrAuthFailed indicates the server is reachable but rejected the credentials
	ErrAuthFailed = errors.New("authentication failed: credentials were rejected")

	// ErrLibraryNotFound indicates the requested library does not exist
	ErrLibraryNotFound = errors.New("library not found")

	// ErrSettingsAbsent indicates no media server settings have been saved
	ErrSettingsAbsent = errors.New("media server settings are not configured")

	// ErrMissingCredentials indicates settings exist but the url or api key is empty
	ErrMissingCredentials = errors.New("media server url or api key is missing")

	// ErrNotInitialized indicates the adapter has no live connection
	ErrNotInitialized = errors.New("media server adapter is not initialized")

	// ErrUnsupported indicates the backend has no equivalent for the operation
	ErrUnsupported = errors.New("operation not supported by this media server")
)
