// Package executors implements the per-kind node executors behind a
// common interface: generative nodes delegate to the external
// text-generation service under a shared concurrency budget with
// class-aware retries, computational nodes run the deterministic
// valuation engine, and passthrough nodes forward their context
// unchanged.
package executors
