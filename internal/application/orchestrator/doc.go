// Package orchestrator manages asynchronous workflow runs in serve
// mode: submission, status lookup, cancellation and graceful shutdown.
package orchestrator
