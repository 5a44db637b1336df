// Package repository implements the workflow engine's storage ports on
// GORM: workflows, node type pricing, executions and node executions,
// credit accounts with their ledger, reservations and knowledge documents.
//
// Every terminal transition is a conditional UPDATE so concurrent writers
// (a user's cancel against the engine's own completion, two sweepers over
// one reservation) resolve to exactly one winner.
package repository
