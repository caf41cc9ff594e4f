// Package store provides SQLite-backed durable storage for frozen
// elaborations.
//
// Each row of the modules table is one ir.Module: its behavior tree and
// driver tables as canonical JSON, plus the invocation count and hashes.
// Instances are stored as separate module rows linked from their parent.
//
// # Identity
//
// A module row is keyed by ir.ModuleHash, which covers the tree and every
// instance. Writing the same elaboration twice keeps the first row and its
// ID; WriteModule reports inserted=false for the duplicate.
//
// # Ordering
//
// All listings use ORDER BY seq ASC, id ASC COLLATE BINARY, so results are
// identical across runs.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
