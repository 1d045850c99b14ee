// Package session binds one switch control channel to a routing engine.
//
// A Session resolves its switch's tree coordinate on first use, turns every
// packet-in into a routing decision and writes the resulting flow-mods and
// packet-outs back to the switch. Events for one switch arrive on that
// connection's receive goroutine, so a Session never routes concurrently;
// only its counters are read from other goroutines.
package session
