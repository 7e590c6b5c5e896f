// Package cache implements the on-disk state shared by the fetcher and the loader.
//
// Layout under the data root:
//
//	{root}/{entity}/ids.csv          identifier ledger, one ID column
//	{root}/{entity}/items/{id}.json  cached artifact, the raw API object
//
// The [Ledger] lists the identifiers targeted for ingestion. The [Store] holds one
// write-once artifact per identifier; an artifact's presence is what marks an
// identifier as fetched. [Workspace] ties the two together and bootstraps the
// directories.
package cache
