package analyzer

import "errors"

// ErrInvalidRepositoryURL is returned for submission URLs that are not
// HTTPS URLs on the accepted code-hosting host. This is the pipeline's
// SSRF guard: rejection is immediate and never retried.
var ErrInvalidRepositoryURL = errors.New("invalid repository url")

// ErrRepositoryUnavailable covers 404/403 responses and network failures
// from the repository host. Retryable with bounded attempts.
var ErrRepositoryUnavailable = errors.New("repository unavailable")
