// Package workflow executes user-defined workflow graphs.
//
// An Engine loads a published workflow, validates and orders its graph,
// reserves the estimated credits, runs every node in topological order and
// settles the difference between what was reserved and what the nodes used.
// Any failure after the reservation refunds it in full.
//
// Nodes see the run through an ExecutionContext: the caller's input, the
// output of their first predecessor, and every completed node's output by
// id, which prompt templates reference as {{nodeId}} or {{nodeId.path}}.
//
// Persistence, the credit ledger and pricing are ports; see the database,
// repository and redis packages for implementations and workflowtest for
// in-memory fakes.
package workflow
