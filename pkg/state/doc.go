// Package state holds the persistence side of option overrides: the record
// codec shared by every adapter and an in-memory Store used for session
// scope and tests. Durable adapters live in subpackages (sqlitestore,
// redisstore, cqlstore).
//
// Stores only ever hold deviations from option defaults. Keys are written by
// the manager in canonical form; All reports keys exactly as persisted so the
// manager can find and migrate legacy spellings during Init.
package state
