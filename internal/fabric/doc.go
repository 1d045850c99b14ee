// Package fabric owns the k-ary tree model of the datacenter fabric.
//
// Ownership boundary:
// - flat switch id -> tree coordinate resolution
// - hierarchical IPv4 addressing derived from coordinates
// - switch classification (tree tier vs. flat core tier)
//
// Switch ids follow level-order numbering with siblings contiguous per
// parent: child i (1..fanout) of switch p is p*fanout + i. The topology
// builder that assigns datapath ids must use the same convention.
package fabric
