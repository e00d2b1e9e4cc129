// Package realtime runs a graph registry in the background.
//
// A Runner owns one *botix.Botix. Runs execute on a single goroutine and
// hold the registry for their whole duration, so callers that need to edit
// the transition pool go through Runner.Do and never race a run.
//
// Cancelling the context passed to Start, or calling Stop, becomes the
// run-level stop predicate: the run ends after the current state's exit
// hooks and the report is marked stopped.
//
//	r := realtime.NewRunner(reg)
//	id, err := r.Start(ctx)
//	...
//	res, err := r.Stop()
package realtime
