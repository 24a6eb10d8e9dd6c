// Package workflow loads and validates declarative workflow documents.
//
// A workflow is a YAML document declaring the graph: node list
// {id, kind, config}, edge list {from, to, condition, carries_context},
// start/terminal node ids and the global iteration cap. Documents are
// validated at load time against per-kind config schemas so that
// configuration defects fail before any execution.
//
// The package also contains the edge-condition evaluator used by the
// scheduler for routing decisions.
package workflow
