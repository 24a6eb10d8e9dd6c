// Package storage groups the run-record store implementations: an
// in-memory store for single runs and tests, and a Redis-backed store
// for serve mode.
package storage
