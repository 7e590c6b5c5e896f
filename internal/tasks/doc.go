// Package tasks runs the ingestion pipeline stages with real-time progress reporting.
//
// # Core Operations
//
// [Engine] exposes three stages:
//
//  1. [Engine.Fetch] : ledger ids to cached artifacts
//     - Per-item mode issues one request per uncached id and drops failed ids from the ledger
//     - Batch mode groups uncached ids up to the entity's batch limit and reports ids the API left out
//     - Rate-limited responses are waited out by the catalog client and never fail a run
//
//  2. [Engine.Load] : cached artifacts to relational rows
//     - Records are parsed by the target's strategy and deduplicated by natural key
//     - A fixed pool of workers drains a closed, buffered channel; each worker owns one connection
//     - Counts inserted, existing, unresolved and failed records, then the table total
//
//  3. Harvest : ledger expansion from cached artifacts
//     - [Engine.HarvestPlaylists] queues tracks, albums and artists referenced by playlists
//     - [Engine.HarvestArtists] queues artists credited on tracks and albums
//     - [Engine.HarvestChapters] splits cached audiobooks into chapter artifacts
//
// # Progress Reporting
//
// # All operations use non-blocking channels for progress updates
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data.
// Updates use select with default to prevent blocking.
//
// # Failure Policy
//
// Per-id and per-record failures are collected in the run summary and the run
// continues. Authorization failures, transport errors, cancellation and local
// I/O errors end the run and are returned alongside the partial summary.
package tasks
