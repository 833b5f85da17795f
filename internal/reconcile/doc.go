// Package reconcile merges a local and a remote snapshot of one entity type
// into a single collection, and maintains the dense sort order of a
// collection when the user reorders it.
//
// Every function here is pure: inputs are never mutated and nothing blocks
// or performs I/O, so the functions are safe to call from any goroutine on
// snapshots the caller owns.
package reconcile
