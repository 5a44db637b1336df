// Package dag models workflow graphs: typed nodes joined by directed edges.
//
// It provides the structural checks a graph must pass before anything is
// charged or recorded (Validate), the deterministic linear execution order
// (Sort, Kahn's algorithm with first-discovered-first-scheduled tie breaking),
// predecessor lookups for upstream output resolution, and loading of
// workflow definitions from YAML files.
package dag
