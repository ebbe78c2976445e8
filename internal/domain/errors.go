package domain

import "errors"

var (
	// ErrEngineDisabled signals that no search engine is configured.
	// This is a recognized branch, not a failure: callers fall back to
	// the relational path or run work inline.
	ErrEngineDisabled = errors.New("search engine not configured")
	// ErrEngineUnavailable signals that the configured search engine could
	// not be reached for a whole operation.
	ErrEngineUnavailable = errors.New("search engine unavailable")
	// ErrUnknownTarget signals an unrecognized reindex target.
	ErrUnknownTarget = errors.New("unknown reindex target")
	// ErrUnauthorized signals a missing or invalid admin credential.
	ErrUnauthorized = errors.New("unauthorized")
)
