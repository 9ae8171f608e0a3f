// Package store defines the persistence interfaces used throughout the
// engine: the synchronous device-local key/value store, the remote row
// store reached through the sync queue, and the durable queue of pending
// remote writes. Implementations live under internal/platform; this
// package holds only interfaces, sentinel errors, and key helpers so that
// domain and service packages do not depend on any concrete backend.
package store
