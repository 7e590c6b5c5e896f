// Package repositories implements the relational writes performed by the loader.
//
// Each load target (an entity table or a junction table) is a registered
// [Strategy] pairing a parser for cached artifacts with a check-then-insert load
// of one record. The [Registry] replaces a growing switch over target names;
// [DefaultRegistry] holds every target in load order.
//
// Writes go through [Conn], which binds a connection to its SQL dialect. Every
// statement commits on its own. Existence checks come first; when two workers
// still race on the same key, the UNIQUE or PRIMARY KEY constraint rejects the
// second insert and the record counts as existing.
//
// Tracks and audiobooks are split across the shared audio table and their own
// extension table keyed by audio_id. A base row left without its extension (a
// crash between the two inserts) is completed on the next run.
package repositories
