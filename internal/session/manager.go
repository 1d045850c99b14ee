package session

import (
	"github.com/contiv/libOpenflow/openflow13"
	"github.com/danmuck/fabricctl/internal/fabric"
	"github.com/danmuck/fabricctl/internal/observability"
	"github.com/danmuck/fabricctl/internal/openflow"
	"github.com/danmuck/fabricctl/internal/routing"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Manager creates a Session per connected switch and feeds it packet-ins.
// It is the controller's openflow.App.
type Manager struct {
	engine   *routing.Engine
	mode     routing.Mode
	registry *Registry
	log      zerolog.Logger
}

var _ openflow.App = (*Manager)(nil)

func NewManager(engine *routing.Engine, mode routing.Mode, logger zerolog.Logger) *Manager {
	return &Manager{
		engine:   engine,
		mode:     mode,
		registry: NewRegistry(),
		log:      logger.With().Str("component", "session").Logger(),
	}
}

func (m *Manager) Engine() *routing.Engine {
	return m.engine
}

func (m *Manager) Mode() routing.Mode {
	return m.mode
}

func (m *Manager) Registry() *Registry {
	return m.registry
}

func (m *Manager) SwitchConnected(sw *openflow.Switch) {
	m.attach(sw)
}

func (m *Manager) SwitchDisconnected(sw *openflow.Switch) {
	m.detach(sw)
}

func (m *Manager) PacketRcvd(sw *openflow.Switch, pkt *openflow13.PacketIn, parseErr error) {
	m.deliver(sw, pkt, parseErr)
}

func (m *Manager) attach(conn Conn) *Session {
	s := New(conn, m.engine, m.mode, m.log)
	if _, replaced := m.registry.Add(s); replaced {
		m.log.Warn().Uint64("dpid", conn.DPID()).Msg("session_replaced")
	}
	observability.SetSwitchesConnected(m.registry.Len())
	m.log.Info().
		Uint64("dpid", conn.DPID()).
		Str("class", s.Class().String()).
		Msg("session_started")
	return s
}

func (m *Manager) detach(conn Conn) {
	if m.registry.Remove(conn) {
		m.log.Info().Uint64("dpid", conn.DPID()).Msg("session_ended")
	}
	observability.SetSwitchesConnected(m.registry.Len())
}

func (m *Manager) deliver(conn Conn, pkt *openflow13.PacketIn, parseErr error) {
	s, ok := m.registry.Get(conn.DPID())
	if !ok || s.conn != conn {
		m.log.Warn().Uint64("dpid", conn.DPID()).Msg("packet_in_without_session")
		return
	}
	err := s.HandlePacketIn(NewPacketInEvent(conn.DPID(), pkt, parseErr))
	if err == nil {
		return
	}
	level := zerolog.ErrorLevel
	if errors.Is(err, fabric.ErrConfiguration) {
		// The session logged it when resolution failed.
		level = zerolog.DebugLevel
	}
	m.log.WithLevel(level).Err(err).Uint64("dpid", conn.DPID()).Msg("packet_in_failed")
}
