// Package syncq keeps local learning state converging with the remote
// row store. It provides three pieces: a durable, deduplicated queue of
// pending remote writes with debounced single-flight flushing and bounded
// retries; pure merge resolvers that reconcile local and remote snapshots
// of each record type; and a Reconciler that runs the one-time pull merge
// at login or reconnect. Nothing in this package ever propagates a
// failure into the session flow — errors are absorbed, retried, and at
// worst surfaced as a status flag.
package syncq
