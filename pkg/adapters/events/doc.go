// Package events groups the run-event bus implementations: an
// in-process bus for single runs and tests, and a Redis Streams bus
// for serve mode.
package events
