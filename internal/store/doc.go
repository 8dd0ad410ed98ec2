// Package store provides SQLite-backed storage for the ffgraph host.
//
// Two tables are kept:
//   - resolutions: the resolution cache. A requested resource identifier maps
//     to its resolved digest, the workspace it was fetched into and the
//     compiled option catalogue.
//   - recent_documents: documents opened or saved, for the recent list.
//
// # Ordering
//
// Rows carry a logical seq assigned on write, never a timestamp. Recent
// documents are listed by seq descending with path as tiebreaker, so the
// order is identical on every read.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
