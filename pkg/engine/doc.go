// Package engine interprets a declarative form for one editing session.
//
// An Engine owns the value snapshot, the current step pointer, the per-field
// error map and the set of completed steps. Visibility and validation are
// pulled: they are recomputed from the live snapshot whenever a step is
// validated, never cached. Navigation forward is guarded by validation of
// the current step, navigation backward never is.
//
// I/O is delegated to collaborators supplied through options: a
// StepPersister for best-effort per-step saves, a Submitter for draft and
// final submissions, an OptionSource for dynamic choice lists and a
// FileDeleter for removing previously uploaded files. An Engine is not safe
// for concurrent use; hosts that share one across goroutines must serialise
// access.
package engine
