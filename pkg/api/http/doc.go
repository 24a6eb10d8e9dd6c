// Package http exposes the serve-mode REST API: workflow listing, run
// submission, status and record retrieval, cancellation, health and
// Prometheus metrics.
package http
