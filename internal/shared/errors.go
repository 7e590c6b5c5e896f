package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailure = fmt.Errorf("authentication failed")

	// Catalog API errors
	ErrRateLimited   = fmt.Errorf("rate limited")
	ErrFetchFailure  = fmt.Errorf("fetch failed")
	ErrMissingResult = fmt.Errorf("missing from batch response")

	// Loader errors
	ErrUnresolvedReference = fmt.Errorf("unresolved reference")
	ErrStoreFailure        = fmt.Errorf("store operation failed")
	ErrUnknownTarget       = fmt.Errorf("unknown load target")

	// Cache errors
	ErrInvalidIdentifier = fmt.Errorf("invalid identifier")
	ErrArtifactNotFound  = fmt.Errorf("artifact not found")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
