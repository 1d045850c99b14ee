package session

import (
	"sync"
	"time"

	"github.com/contiv/libOpenflow/util"
	"github.com/danmuck/fabricctl/internal/fabric"
	"github.com/danmuck/fabricctl/internal/observability"
	"github.com/danmuck/fabricctl/internal/openflow"
	"github.com/danmuck/fabricctl/internal/routing"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Conn is the part of a switch connection a Session writes to.
type Conn interface {
	DPID() uint64
	Send(util.Message) error
}

const (
	verdictDrop  = "drop"
	verdictError = "error"
)

type Session struct {
	conn        Conn
	engine      *routing.Engine
	mode        routing.Mode
	class       fabric.SwitchClass
	learning    *routing.LearningTable
	connectedAt time.Time
	log         zerolog.Logger

	resolveOnce sync.Once

	mu       sync.Mutex
	resolved bool
	coord    fabric.Coordinate
	coordErr error
	stats    Stats
}

// Stats counts what a session has done since connect.
type Stats struct {
	PacketIns   uint64 `json:"packet_ins"`
	Rules       uint64 `json:"rules"`
	PacketOuts  uint64 `json:"packet_outs"`
	Floods      uint64 `json:"floods"`
	Drops       uint64 `json:"drops"`
	Errors      uint64 `json:"errors"`
	LastVerdict string `json:"last_verdict,omitempty"`
}

func New(conn Conn, engine *routing.Engine, mode routing.Mode, logger zerolog.Logger) *Session {
	s := &Session{
		conn:        conn,
		engine:      engine,
		mode:        mode,
		class:       engine.Classify(conn.DPID()),
		connectedAt: time.Now(),
		log:         logger.With().Uint64("dpid", conn.DPID()).Str("mode", string(mode)).Logger(),
	}
	if mode == routing.ModeLearning {
		s.learning = routing.NewLearningTable()
	}
	return s
}

func (s *Session) DPID() uint64 {
	return s.conn.DPID()
}

func (s *Session) Conn() Conn {
	return s.conn
}

func (s *Session) Class() fabric.SwitchClass {
	return s.class
}

// Coordinate resolves the switch's position once. The result, error
// included, is cached for the life of the session and a failure is logged
// only when it first happens.
func (s *Session) Coordinate() (fabric.Coordinate, error) {
	s.resolveOnce.Do(func() {
		coord, err := s.engine.Resolve(s.conn.DPID())
		s.mu.Lock()
		s.resolved = true
		s.coord = coord
		s.coordErr = err
		s.mu.Unlock()
		if err != nil {
			s.log.Error().Err(err).Msg("session_resolve_failed")
			return
		}
		s.log.Debug().Str("coordinate", coord.String()).Msg("session_resolved")
	})
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coord, s.coordErr
}

// HandlePacketIn routes one packet-in and writes the decision to the switch:
// rules in order, then any packet-out. Unparsed events are dropped. A
// configuration error is returned before anything is sent.
func (s *Session) HandlePacketIn(ev PacketInEvent) error {
	if !ev.Parsed {
		s.log.Warn().Err(ev.Err).Msg("packet_in_unparsed")
		s.finish(verdictDrop, func(st *Stats) { st.Drops++ })
		return nil
	}

	decision, err := s.decide(ev.Packet)
	if err != nil {
		s.log.Debug().Err(err).Msg("packet_in_unroutable")
		s.finish(verdictError, func(st *Stats) { st.Errors++ })
		return err
	}

	rules, outs, err := s.apply(decision, ev)
	verdict := decision.Verdict.String()
	s.finish(verdict, func(st *Stats) {
		st.Rules += uint64(rules)
		st.PacketOuts += uint64(outs)
		if decision.Verdict == routing.VerdictFlood {
			st.Floods++
		}
	})
	observability.RecordRules(verdict, rules)
	if decision.Verdict == routing.VerdictFlood {
		observability.RecordFlood(decision.Reason)
	}
	if err != nil {
		s.log.Warn().Err(err).Msg("packet_in_send_failed")
		return err
	}
	s.log.Debug().
		Str("dst", ev.Packet.Dst.String()).
		Str("verdict", verdict).
		Str("reason", decision.Reason).
		Int("rules", rules).
		Msg("packet_in_routed")
	return nil
}

func (s *Session) decide(pkt routing.Packet) (routing.Decision, error) {
	switch s.mode {
	case routing.ModeHub:
		return routing.Hub(pkt), nil
	case routing.ModeLearning:
		return s.learning.Switch(pkt), nil
	}

	var coord fabric.Coordinate
	if s.class == fabric.ClassHierarchical {
		var err error
		if coord, err = s.Coordinate(); err != nil {
			return routing.Decision{}, err
		}
	}
	return s.engine.Route(pkt, coord, s.class), nil
}

// apply writes decision to the switch and reports how many flow-mods and
// packet-outs were queued.
func (s *Session) apply(decision routing.Decision, ev PacketInEvent) (int, int, error) {
	rules := 0
	for _, rule := range decision.Rules {
		if err := s.send(openflow.FlowMod(rule)); err != nil {
			return rules, 0, err
		}
		rules++
	}

	var data util.Message
	if ev.Raw != nil {
		data = &ev.Raw.Data
	}

	outs := 0
	if decision.PacketOut != nil {
		if err := s.send(openflow.PacketOut(*decision.PacketOut, data)); err != nil {
			return rules, outs, err
		}
		outs++
	}

	// An unbuffered trigger is not released by the flow-mod, so deliver it
	// along the rule it was bound to.
	if rule, ok := decision.Trigger(); ok && !ev.Packet.Buffered() && data != nil {
		out := routing.PacketOut{BufferID: routing.NoBuffer, InPort: ev.Packet.InPort, OutPort: rule.OutPort}
		if err := s.send(openflow.PacketOut(out, data)); err != nil {
			return rules, outs, err
		}
		outs++
	}
	return rules, outs, nil
}

func (s *Session) send(msg util.Message) error {
	err := s.conn.Send(msg)
	if errors.Is(err, openflow.ErrSwitchClosed) {
		s.log.Debug().Msg("session_send_after_close")
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "session: send")
	}
	return nil
}

func (s *Session) finish(verdict string, update func(*Stats)) {
	s.mu.Lock()
	s.stats.PacketIns++
	s.stats.LastVerdict = verdict
	update(&s.stats)
	s.mu.Unlock()
	observability.RecordPacketIn(string(s.mode), verdict)
}

// Info is a point-in-time view of a session for the admin API.
type Info struct {
	DPID        uint64    `json:"dpid"`
	Class       string    `json:"class"`
	Mode        string    `json:"mode"`
	Resolved    bool      `json:"resolved"`
	Coordinate  string    `json:"coordinate,omitempty"`
	Level       int       `json:"level"`
	ResolveErr  string    `json:"resolve_error,omitempty"`
	ConnectedAt time.Time `json:"connected_at"`
	Stats       Stats     `json:"stats"`
}

func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := Info{
		DPID:        s.conn.DPID(),
		Class:       s.class.String(),
		Mode:        string(s.mode),
		Resolved:    s.resolved,
		ConnectedAt: s.connectedAt,
		Stats:       s.stats,
	}
	if s.resolved {
		if s.coordErr != nil {
			info.ResolveErr = s.coordErr.Error()
		} else {
			info.Coordinate = s.coord.String()
			info.Level = s.coord.Level()
		}
	}
	return info
}
