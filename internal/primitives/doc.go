// Package primitives provides the static data model of the hierarchical state machine:
// state descriptors, reactions, the machine definition and its validation.
//
// Nothing in this package executes a machine. The runtime in internal/core builds an
// immutable tree from a validated MachineConfig and drives it.
//
// Core invariants:
// - Children keep declaration order (first child is the default initial)
// - State IDs are unique across the whole tree
// - A history operation must match the history kind its state declares
package primitives
