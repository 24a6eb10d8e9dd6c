// Package scheduler drives workflow graph execution.
//
// Each iteration it takes the set of triggered nodes, fans them out as
// one parallel layer, waits for the whole layer at a barrier, then
// evaluates outgoing edge conditions against the fresh results to build
// the next layer. Nodes with multiple inbound edges run once per
// iteration however many of them fired. A run ends COMPLETE when work
// drains after a terminal node succeeded, DEADLOCK when it drains
// without one, FORCE_TERMINATED when the iteration cap is reached with
// work still pending, and CONFIG_ERROR when a definition defect
// surfaces mid-run. The record is persisted whatever the outcome.
package scheduler
