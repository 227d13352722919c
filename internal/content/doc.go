// Package content holds compiled content.
//
// Repo is the live, mutable content of the current run: each rep's current
// bytes, the snapshots taken so far and how many actions have executed. A
// suspended rep resumes from that checkpoint instead of starting over.
//
// Cache is the persisted set of snapshots from earlier runs. A rep that is
// not outdated and whose cache key still matches is restored from it
// without running any filter.
package content
