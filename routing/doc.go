// Package routing provides concrete environments for the attention
// decoder: the Travelling Salesman Problem and the Capacitated Vehicle
// Routing Problem, each with its registered step-context builder and
// (for CVRP) dynamic embedding strategy.
//
// Environments own the instance-batch state: they create it, derive the
// action mask and done flags on every Step, and compute the terminal
// reward (negative route length, stabilized to 1e-9). The decoder talks
// to them only through the decode.Env interface.
//
// Both environments keep exactly one legal "stay" action for rows that
// have finished (the current node for TSP, the depot for CVRP), so the
// synchronized batch loop can keep stepping finished rows at zero cost.
package routing
