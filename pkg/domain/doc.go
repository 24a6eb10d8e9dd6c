// Package domain holds the core types of the workflow engine: the
// immutable graph model, run state with append-only node histories,
// the error taxonomy, valuation inputs/outputs and run events.
//
// Types here carry no behavior beyond lookups and history bookkeeping;
// execution semantics live in internal/application.
package domain
