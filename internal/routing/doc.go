// Package routing owns forwarding decisions for one switch.
//
// Ownership boundary:
// - rule synthesis from a tree coordinate and a destination address
// - flood fallback for packets that cannot be routed
// - hub and L2-learning alternative modes
//
// Decisions are pure values. Sending them to a switch belongs to the
// session and openflow packages.
package routing
