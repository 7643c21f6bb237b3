// Package store provides SQLite-backed durable storage for Muse history.
//
// The store is the concrete implementation of the history.Storage port:
//   - Commits: append-only history DAG nodes
//   - Phrases: per-commit partial change streams, stored as JSON blobs
//   - Heads: one mutable HEAD pointer row per project
//
// # Critical Patterns
//
// Deterministic query results
//   - Every bulk read orders by: created_at ASC, id ASC COLLATE BINARY
//   - Ensures identical lineage walks and graph builds across replays
//
// Idempotent writes
//   - Commit inserts use ON CONFLICT(id) DO NOTHING; re-recording a
//     commit (and its phrases) is a no-op
//
// Atomic HEAD movement
//   - SetHead is a single-statement compare-and-swap, never a
//     clear-then-set pair; concurrent checkout/merge calls can lose the
//     race but can never observe zero or two HEADs
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
package store
