package openflow

import (
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/contiv/libOpenflow/common"
	"github.com/contiv/libOpenflow/openflow13"
	"github.com/contiv/libOpenflow/util"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// App receives switch lifecycle and packet-in callbacks. parseErr is non-nil
// when the packet-in body did not fully decode.
type App interface {
	SwitchConnected(sw *Switch)
	SwitchDisconnected(sw *Switch)
	PacketRcvd(sw *Switch, pkt *openflow13.PacketIn, parseErr error)
}

type Controller struct {
	cfg Config
	app App
	log zerolog.Logger
	wg  sync.WaitGroup
}

func NewController(cfg Config, app App, logger zerolog.Logger) *Controller {
	return &Controller{
		cfg: cfg,
		app: app,
		log: logger.With().Str("component", "openflow").Logger(),
	}
}

// ListenAndServe listens on cfg.ListenAddr until ctx is cancelled.
func (c *Controller) ListenAndServe(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", c.cfg.ListenAddr)
	if err != nil {
		return errors.Wrapf(err, "openflow: listen %s", c.cfg.ListenAddr)
	}
	return c.Serve(ctx, ln)
}

// Serve accepts switch connections on ln until ctx is cancelled or Accept
// fails permanently. Either way it closes every connection and waits for
// their goroutines before returning. Temporary accept errors are retried
// with backoff.
func (c *Controller) Serve(ctx context.Context, ln net.Listener) error {
	c.log.Info().Str("addr", ln.Addr().String()).Msg("openflow_listen")

	connCtx, cancelConns := context.WithCancel(ctx)
	defer func() {
		cancelConns()
		c.wg.Wait()
	}()
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if isTemporary(err) {
				delay = acceptBackoff(delay)
				c.log.Warn().Err(err).Dur("retry_in", delay).Msg("openflow_accept_retry")
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(delay):
				}
				continue
			}
			return errors.Wrap(err, "openflow: accept")
		}
		delay = 0
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			if err := c.ServeConn(connCtx, conn); err != nil {
				c.log.Warn().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("openflow_connection_closed")
			}
		}()
	}
}

// ServeConn runs the handshake and receive loop for one connection. It
// returns when the switch goes away or ctx is cancelled, after the switch's
// writer and keepalive goroutines have exited.
func (c *Controller) ServeConn(ctx context.Context, conn net.Conn) error {
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	dpid, err := c.handshake(conn)
	if err != nil {
		return err
	}

	sw := newSwitch(conn, dpid, c.cfg, c.log)
	var loops sync.WaitGroup
	defer loops.Wait()
	defer sw.Close()
	loops.Add(2)
	go func() {
		defer loops.Done()
		sw.writeLoop()
	}()
	go func() {
		defer loops.Done()
		c.keepalive(sw)
	}()

	sw.log.Info().Str("remote", sw.RemoteAddr()).Msg("switch_connected")
	c.app.SwitchConnected(sw)
	defer func() {
		c.app.SwitchDisconnected(sw)
		sw.log.Info().Msg("switch_disconnected")
	}()

	err = c.receive(sw)
	if ctx.Err() != nil || isClosed(err) {
		return nil
	}
	return err
}

func (c *Controller) handshake(conn net.Conn) (uint64, error) {
	if c.cfg.HandshakeTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(c.cfg.HandshakeTimeout))
		defer conn.SetDeadline(time.Time{})
	}

	hello, err := common.NewHello(openflow13.VERSION)
	if err != nil {
		return 0, errors.Wrap(err, "openflow: build hello")
	}
	if err := WriteMessage(conn, hello); err != nil {
		return 0, err
	}

	for {
		msg, err := ReadMessage(conn, c.cfg.MaxMessageBytes)
		var perr *ParseError
		switch {
		case errors.As(err, &perr):
			c.log.Debug().Err(err).Msg("openflow_handshake_skip")
			continue
		case isTimeout(err):
			return 0, ErrHandshakeTimeout
		case err != nil:
			return 0, errors.Wrap(err, "openflow: handshake")
		}

		switch m := msg.(type) {
		case *common.Hello:
			if err := c.acceptHello(conn, m.Header); err != nil {
				return 0, err
			}
		case *common.Header:
			switch m.Type {
			case openflow13.Type_Hello:
				if err := c.acceptHello(conn, *m); err != nil {
					return 0, err
				}
			case openflow13.Type_EchoRequest:
				if err := WriteMessage(conn, echoReply(m)); err != nil {
					return 0, err
				}
			}
		case *openflow13.SwitchFeatures:
			return DPIDFromHardwareAddr(m.DPID), nil
		case *openflow13.ErrorMsg:
			return 0, errors.Errorf("openflow: switch rejected handshake: type=%d code=%d", m.Type, m.Code)
		}
	}
}

// acceptHello negotiates down to 1.3 and asks for the datapath id.
func (c *Controller) acceptHello(conn net.Conn, h common.Header) error {
	if h.Version < openflow13.VERSION {
		return errors.Wrapf(ErrUnsupportedVersion, "switch speaks version %d", h.Version)
	}
	return WriteMessage(conn, openflow13.NewFeaturesRequest())
}

func (c *Controller) receive(sw *Switch) error {
	for {
		if c.cfg.DeadAfter > 0 {
			_ = sw.conn.SetReadDeadline(time.Now().Add(c.cfg.DeadAfter))
		}
		msg, err := ReadMessage(sw.conn, c.cfg.MaxMessageBytes)
		var perr *ParseError
		if errors.As(err, &perr) {
			if pkt, ok := msg.(*openflow13.PacketIn); ok {
				c.app.PacketRcvd(sw, pkt, perr)
				continue
			}
			sw.log.Debug().Err(err).Msg("openflow_message_skipped")
			continue
		}
		if err != nil {
			if isTimeout(err) {
				return errors.Wrap(err, "openflow: switch unresponsive")
			}
			return err
		}
		c.dispatch(sw, msg)
	}
}

func (c *Controller) dispatch(sw *Switch, msg util.Message) {
	switch m := msg.(type) {
	case *openflow13.PacketIn:
		c.app.PacketRcvd(sw, m, nil)
	case *common.Header:
		if m.Type == openflow13.Type_EchoRequest {
			if err := sw.Send(echoReply(m)); err != nil {
				sw.log.Debug().Err(err).Msg("openflow_echo_reply_dropped")
			}
		}
	case *openflow13.ErrorMsg:
		sw.log.Warn().Uint16("type", m.Type).Uint16("code", m.Code).Msg("openflow_error_message")
	}
}

func (c *Controller) keepalive(sw *Switch) {
	if c.cfg.EchoInterval <= 0 {
		return
	}
	ticker := time.NewTicker(c.cfg.EchoInterval)
	defer ticker.Stop()
	for {
		select {
		case <-sw.Done():
			return
		case <-ticker.C:
			if err := sw.Send(openflow13.NewEchoRequest()); err != nil {
				return
			}
		}
	}
}

func echoReply(req *common.Header) *common.Header {
	reply := openflow13.NewEchoReply()
	reply.Xid = req.Xid
	return reply
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func isTemporary(err error) bool {
	var te interface{ Temporary() bool }
	return errors.As(err, &te) && te.Temporary()
}

func acceptBackoff(prev time.Duration) time.Duration {
	const (
		first = 5 * time.Millisecond
		limit = time.Second
	)
	if prev == 0 {
		return first
	}
	if next := prev * 2; next < limit {
		return next
	}
	return limit
}

func isClosed(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.ErrClosedPipe)
}
