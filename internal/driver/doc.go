// Package driver implements the driver/conflict model for behavior trees.
//
// A Table tracks, per destination endpoint, which bits are already driven
// (an occupancy bitset sized to the endpoint width) and the ordered list of
// assignments that drive them.
//
// # Path Scoping
//
// Occupancy is scoped to one path through the behavior tree, not to the
// whole module. On entering a BranchNode or SwitchNode the table is forked
// once per outcome; each outcome checks its assignments against the bits
// driven above the node plus its own, and the outcomes are joined back
// afterwards. Assigning the same range once in each outcome of one node is
// legal; assigning it twice on any single path is a MultiDriveError.
//
// The engine uses a fresh Table per construction invocation to reject
// unconditional re-drives as they happen, and Validate over the frozen tree
// to check combinations of outcomes that no single invocation exercised.
package driver
