package openflow

import (
	"encoding/binary"
	"net"
	"sync"
	"time"

	"github.com/contiv/libOpenflow/util"
	"github.com/rs/zerolog"
)

// Switch is the controller's handle on one connected datapath. Send is
// fire-and-forget: messages are queued for a writer goroutine and never
// acknowledged.
type Switch struct {
	dpid         uint64
	conn         net.Conn
	outbound     chan util.Message
	done         chan struct{}
	closeOnce    sync.Once
	writeTimeout time.Duration
	connectedAt  time.Time
	log          zerolog.Logger
}

func newSwitch(conn net.Conn, dpid uint64, cfg Config, logger zerolog.Logger) *Switch {
	queue := cfg.OutboundQueue
	if queue <= 0 {
		queue = 1
	}
	return &Switch{
		dpid:         dpid,
		conn:         conn,
		outbound:     make(chan util.Message, queue),
		done:         make(chan struct{}),
		writeTimeout: cfg.WriteTimeout,
		connectedAt:  time.Now(),
		log:          logger.With().Uint64("dpid", dpid).Logger(),
	}
}

func (s *Switch) DPID() uint64 {
	return s.dpid
}

func (s *Switch) RemoteAddr() string {
	return s.conn.RemoteAddr().String()
}

func (s *Switch) ConnectedAt() time.Time {
	return s.connectedAt
}

// Send queues msg for the switch. It returns ErrSwitchClosed once the
// connection is gone.
func (s *Switch) Send(msg util.Message) error {
	select {
	case <-s.done:
		return ErrSwitchClosed
	default:
	}
	select {
	case s.outbound <- msg:
		return nil
	case <-s.done:
		return ErrSwitchClosed
	}
}

// Done is closed when the connection shuts down.
func (s *Switch) Done() <-chan struct{} {
	return s.done
}

func (s *Switch) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

func (s *Switch) writeLoop() {
	for {
		select {
		case <-s.done:
			return
		case msg := <-s.outbound:
			if s.writeTimeout > 0 {
				_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			}
			if err := WriteMessage(s.conn, msg); err != nil {
				s.log.Warn().Err(err).Msg("openflow_write_failed")
				s.Close()
				return
			}
		}
	}
}

// DPIDFromHardwareAddr reads the 64-bit datapath id carried in a features
// reply.
func DPIDFromHardwareAddr(addr net.HardwareAddr) uint64 {
	if len(addr) >= 8 {
		return binary.BigEndian.Uint64(addr[:8])
	}
	var buf [8]byte
	copy(buf[8-len(addr):], addr)
	return binary.BigEndian.Uint64(buf[:])
}
