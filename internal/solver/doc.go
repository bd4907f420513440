// Package solver provides the linear and 0/1 integer programming capability
// used by the assignment optimizer and the envy-free pricing LP.
//
// Programs are declared over non-negative variables with linear constraints.
// The Simplex solver converts them to standard form for gonum's simplex
// routine and handles binary variables with depth-first branch-and-bound.
// When several optima exist, which one is returned depends on the pivoting
// order and is stable for identical programs but otherwise unspecified.
package solver
