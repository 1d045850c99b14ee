// Package openflow owns the OpenFlow 1.3 control channel.
//
// Ownership boundary:
// - TCP listener and per-switch connection lifecycle
// - message framing, hello/features handshake, echo keepalive
// - translation of routing decisions into flow-mod and packet-out messages
//
// Wire types come from github.com/contiv/libOpenflow. Applications see one
// Switch per connection through the App callbacks; every callback for a
// switch runs on that switch's receive goroutine, in arrival order.
//
// To point Open vSwitch at the controller:
//
//	ovs-vsctl set bridge br0 protocols=OpenFlow13
//	ovs-vsctl set-controller br0 tcp:127.0.0.1:6653
package openflow
