// Package engine compiles the reps of a site incrementally.
//
// The engine receives a site whose reps and action sequences have been
// built by the rules, decides which reps are outdated, and compiles only
// those plus whatever they read.
//
// ARCHITECTURE:
//
// Pipeline (Compiler.Compile):
// 1. Load the previous run's state from the store
// 2. Compute checksums of every object
// 3. Determine outdatedness (basic rules, then propagation)
// 4. Forget the dependencies of outdated items
// 5. Compile reps through the selector and the phase stack
// 6. Persist every store in one transaction, even when step 5 failed
//
// Phase stack, outermost first:
//
//	notify -> mark_done -> write -> cache -> recalculate
//
// Suspension:
// A filter that reads a snapshot that does not exist yet gets an
// UnmetDependencyError. The executor turns it into a Suspended result
// naming the blocking rep. Actions already run stay done in the content
// repo, so retrying the rep resumes at the first pending action.
//
// CRITICAL PATTERNS:
//
// Single writer: every store is mutated from the goroutine running
// Compile. Nothing here is safe for concurrent use.
//
// Deterministic ordering: reps are selected in identifier order and
// events carry a monotonic seq from Clock.
package engine
