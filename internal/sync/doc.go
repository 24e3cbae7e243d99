// Package sync keeps stored profiles up to date with the upstream portal.
//
// The package has two layers:
//
//   - Syncer performs one iteration for a token: device liveness check,
//     credential lookup, upstream fetch, diff against the stored snapshot,
//     atomic persist and notification dispatch.
//   - Scheduler owns one worker goroutine per token. A worker sleeps a random
//     delay between iterations and never runs two iterations at once.
//
// # Failure policy
//
// A failed iteration is logged and the worker carries on; the next iteration is
// the retry. Two outcomes are terminal: an inactive device, which purges the
// token, and a profile or credential that disappeared, which only stops the
// worker.
//
// # Concurrency
//
// Stored profiles are also written by API handlers. Every write goes through
// profile.Store.Update, an optimistic compare-and-swap, so a settings change and
// a sync landing at the same moment both survive.
package sync
