// Package services talks to the catalog API and its client-credentials token endpoint.
//
// # Leases
//
// [LeaseManager] exchanges client credentials for a bearer token through
// [clientcredentials.Config] and persists it as JSON so separate CLI runs share
// one token. The file stores the absolute expiry as an RFC 3339 timestamp.
// A lease counts as expired [DefaultSafetyMargin] before its real expiry, and
// [LeaseManager.Authorization] refreshes it transparently; a failed exchange is
// reported as [shared.ErrAuthFailure].
//
// # Catalog Client
//
// [CatalogClient] implements [Catalog] with two operations: a single-item GET
// (/{entity}/{id}) and a multi-id GET (/{entity}?ids=a,b,c). Requests can be
// paced client side with a token bucket (golang.org/x/time/rate). A 429
// response is always honoured by sleeping for its Retry-After value and
// retrying, with no retry cap; the waits are reported on [APIResponse].
// Any other non-2xx status is returned as a [*StatusError] alongside the response.
//
// # Payloads
//
// The Spotify* types in this package mirror the fields of catalog objects that
// the parser reads; unknown fields are ignored.
package services
