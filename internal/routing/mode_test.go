package routing

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	for raw, want := range map[string]Mode{"": ModeTopology, "Topology": ModeTopology, " hub ": ModeHub, "learning": ModeLearning} {
		got, err := ParseMode(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got)
	}
	_, err := ParseMode("l3")
	require.Error(t, err)
}

func TestHubAlwaysFloods(t *testing.T) {
	d := Hub(Packet{Protocol: ProtocolIPv4, BufferID: 3, InPort: 2})
	assert.Equal(t, VerdictFlood, d.Verdict)
	assert.Equal(t, ReasonHub, d.Reason)
	require.NotNil(t, d.PacketOut)
	assert.Equal(t, PortAll, d.PacketOut.OutPort)
	assert.Equal(t, uint32(2), d.PacketOut.InPort)
}

func TestLearningTableFloodsThenInstalls(t *testing.T) {
	a, _ := net.ParseMAC("00:00:00:00:00:0a")
	b, _ := net.ParseMAC("00:00:00:00:00:0b")
	table := NewLearningTable()

	first := table.Switch(Packet{EthSrc: a, EthDst: b, InPort: 1, BufferID: 10})
	assert.Equal(t, VerdictFlood, first.Verdict)
	assert.Equal(t, ReasonUnknownDestination, first.Reason)
	assert.Equal(t, 1, table.Len())

	reply := table.Switch(Packet{EthSrc: b, EthDst: a, InPort: 2, BufferID: 11})
	require.Equal(t, VerdictLearned, reply.Verdict)
	require.Len(t, reply.Rules, 1)
	rule := reply.Rules[0]
	assert.Equal(t, MatchEthDst, rule.Match.Kind)
	assert.Equal(t, a.String(), rule.Match.EthDst.String())
	assert.Equal(t, uint32(1), rule.OutPort)
	assert.Equal(t, uint32(11), rule.BufferID)
	assert.Nil(t, reply.PacketOut)

	port, ok := table.Lookup(b)
	require.True(t, ok)
	assert.Equal(t, uint32(2), port)
}

func TestLearningTableIgnoresEmptySource(t *testing.T) {
	table := NewLearningTable()
	table.Learn(nil, 4)
	assert.Equal(t, 0, table.Len())
	_, ok := table.Lookup(nil)
	assert.False(t, ok)
}
