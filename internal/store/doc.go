// Package store persists compiler state between runs in SQLite.
//
// One database holds every store the compiler needs to compile
// incrementally:
//   - checksums: content and per-attribute digests of every object
//   - action_sequences: digests of the rules output per rep and layout
//   - dependency_vertices, dependencies: the dependency graph
//   - outdated: reps still known to be outdated
//   - compiled_content: the compiled-content cache, xz-compressed
//   - runs: one row per compilation run
//
// # Persistence Model
//
// State is loaded once at the start of a run and written once at the end,
// in a single transaction. An interrupted run never leaves a partial
// flush behind.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait on lock contention
//   - PRAGMA user_version tracks the schema version
package store
