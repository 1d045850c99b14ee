package openflow

import (
	"net"

	"github.com/contiv/libOpenflow/openflow13"
	"github.com/contiv/libOpenflow/util"
	"github.com/danmuck/fabricctl/internal/routing"
)

const etherTypeIPv4 = 0x0800

// FlowMod builds an add command for rule in table 0.
func FlowMod(rule routing.Rule) *openflow13.FlowMod {
	flowMod := openflow13.NewFlowMod()
	flowMod.TableId = 0
	flowMod.Command = openflow13.FC_ADD
	flowMod.Priority = rule.Priority
	flowMod.BufferId = rule.BufferID

	switch rule.Match.Kind {
	case routing.MatchIPv4Prefix:
		flowMod.Match.AddField(*openflow13.NewEthTypeField(etherTypeIPv4))
		ip := net.IP(rule.Match.Prefix.Addr().AsSlice())
		var mask *net.IP
		if bits := rule.Match.Prefix.Bits(); bits < 32 {
			m := net.IP(net.CIDRMask(bits, 32))
			mask = &m
		}
		flowMod.Match.AddField(*openflow13.NewIpv4DstField(ip, mask))
	case routing.MatchIPv4Any:
		flowMod.Match.AddField(*openflow13.NewEthTypeField(etherTypeIPv4))
	case routing.MatchEthDst:
		flowMod.Match.AddField(*openflow13.NewEthDstField(rule.Match.EthDst, nil))
	}

	outputInstr := openflow13.NewInstrApplyActions()
	outputInstr.AddAction(openflow13.NewActionOutput(rule.OutPort), false)
	flowMod.AddInstruction(outputInstr)
	return flowMod
}

// PacketOut builds a packet-out for out. data is attached only when the
// switch did not buffer the packet.
func PacketOut(out routing.PacketOut, data util.Message) *openflow13.PacketOut {
	pktOut := openflow13.NewPacketOut()
	pktOut.BufferId = out.BufferID
	pktOut.InPort = out.InPort
	if pktOut.InPort == 0 {
		pktOut.InPort = openflow13.P_CONTROLLER
	}
	pktOut.AddAction(openflow13.NewActionOutput(out.OutPort))
	if out.BufferID == routing.NoBuffer && data != nil {
		pktOut.Data = data
	}
	return pktOut
}
