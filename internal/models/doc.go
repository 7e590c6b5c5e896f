// Package models defines the catalog entities handled by the ingestion pipeline.
//
// [EntityType] names an entity kind and carries what the pipeline needs to know
// about it: whether the catalog API serves it, and how many ids one batch call may
// carry.
//
// Records are the parsed form of cached artifacts:
//   - [Genre], [Artist], [Album], [Playlist], [Chapter] : one row each
//   - [Track], [Audiobook] : an [Audio] base row plus an extension row sharing its key
//   - [Link] : a junction candidate joining two natural keys
//
// Every record implements [Record], whose Key is the natural key the loader
// deduplicates on and checks for before inserting.
package models
