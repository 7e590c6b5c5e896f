// Package server exposes run state over HTTP while the pipeline works.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first).
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Endpoints
//
//	GET /healthz        liveness probe
//	GET /status         ledger and cache counts per entity, as JSON
//	GET /status/{name}  counts for one entity
//	GET /metrics        Prometheus exposition of the pipeline counters
//
// [Run] serves a handler until its context is cancelled and then shuts down gracefully.
package server
