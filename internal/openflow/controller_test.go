package openflow

import (
	"context"
	"encoding/binary"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/contiv/libOpenflow/openflow13"
	"github.com/danmuck/fabricctl/internal/testutil/testlog"
	"github.com/rs/zerolog"
)

type receivedPacket struct {
	dpid     uint64
	bufferID uint32
	err      error
}

type recordingApp struct {
	connected    chan uint64
	disconnected chan uint64
	packets      chan receivedPacket
}

func newRecordingApp() *recordingApp {
	return &recordingApp{
		connected:    make(chan uint64, 1),
		disconnected: make(chan uint64, 1),
		packets:      make(chan receivedPacket, 4),
	}
}

func (a *recordingApp) SwitchConnected(sw *Switch)    { a.connected <- sw.DPID() }
func (a *recordingApp) SwitchDisconnected(sw *Switch) { a.disconnected <- sw.DPID() }

func (a *recordingApp) PacketRcvd(sw *Switch, pkt *openflow13.PacketIn, parseErr error) {
	a.packets <- receivedPacket{dpid: sw.DPID(), bufferID: pkt.BufferId, err: parseErr}
}

func (a *recordingApp) nextPacket(t *testing.T) receivedPacket {
	t.Helper()
	select {
	case p := <-a.packets:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("no packet-in delivered")
		return receivedPacket{}
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.HandshakeTimeout = time.Second
	cfg.EchoInterval = 0
	cfg.DeadAfter = 0
	return cfg
}

func header(version, typ uint8, length uint16, xid uint32) []byte {
	b := make([]byte, HeaderLen)
	b[0] = version
	b[1] = typ
	binary.BigEndian.PutUint16(b[2:], length)
	binary.BigEndian.PutUint32(b[4:], xid)
	return b
}

func featuresReply(dpid uint64) []byte {
	b := header(openflow13.VERSION, openflow13.Type_FeaturesReply, 32, 2)
	body := make([]byte, 24)
	binary.BigEndian.PutUint64(body[0:], dpid)
	binary.BigEndian.PutUint32(body[8:], 256)
	body[12] = 254
	return append(b, body...)
}

func expectType(t *testing.T, conn net.Conn, want uint8) uint32 {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	msg, err := ReadMessage(conn, 0)
	if err != nil {
		t.Fatalf("fake switch read: %v", err)
	}
	data, err := msg.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if data[1] != want {
		t.Fatalf("expected message type %d, got %d", want, data[1])
	}
	return binary.BigEndian.Uint32(data[4:8])
}

func write(t *testing.T, conn net.Conn, raw []byte) {
	t.Helper()
	_ = conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	if _, err := conn.Write(raw); err != nil {
		t.Fatalf("fake switch write: %v", err)
	}
}

// handshakeSwitch plays the switch side of the hello/features exchange.
func handshakeSwitch(t *testing.T, app *recordingApp, conn net.Conn, dpid uint64) {
	t.Helper()
	expectType(t, conn, openflow13.Type_Hello)
	write(t, conn, header(openflow13.VERSION, openflow13.Type_Hello, HeaderLen, 1))
	expectType(t, conn, openflow13.Type_FeaturesRequest)
	write(t, conn, featuresReply(dpid))
	select {
	case got := <-app.connected:
		if got != dpid {
			t.Fatalf("unexpected dpid: %d", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("switch never connected")
	}
}

func waitResult(t *testing.T, result <-chan error) error {
	t.Helper()
	select {
	case err := <-result:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not return")
		return nil
	}
}

func TestServeConnHandshakeEchoAndDisconnect(t *testing.T) {
	testlog.Start(t)
	ctrlSide, swSide := net.Pipe()
	app := newRecordingApp()
	ctrl := NewController(testConfig(), app, zerolog.Nop())

	result := make(chan error, 1)
	go func() { result <- ctrl.ServeConn(t.Context(), ctrlSide) }()

	expectType(t, swSide, openflow13.Type_Hello)
	write(t, swSide, header(openflow13.VERSION, openflow13.Type_Hello, HeaderLen, 1))
	expectType(t, swSide, openflow13.Type_FeaturesRequest)
	write(t, swSide, featuresReply(6))

	select {
	case dpid := <-app.connected:
		if dpid != 6 {
			t.Fatalf("unexpected dpid: %d", dpid)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("switch never connected")
	}

	write(t, swSide, header(openflow13.VERSION, openflow13.Type_EchoRequest, HeaderLen, 0x2a))
	if xid := expectType(t, swSide, openflow13.Type_EchoReply); xid != 0x2a {
		t.Fatalf("echo reply xid %#x", xid)
	}

	_ = swSide.Close()
	select {
	case err := <-result:
		if err != nil {
			t.Fatalf("serve conn: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("serve conn did not return")
	}
	if dpid := <-app.disconnected; dpid != 6 {
		t.Fatalf("unexpected disconnect dpid: %d", dpid)
	}
	t.Logf("handshake, echo and disconnect completed")
}

func TestServeConnRejectsOldVersion(t *testing.T) {
	testlog.Start(t)
	ctrlSide, swSide := net.Pipe()
	defer swSide.Close()
	ctrl := NewController(testConfig(), newRecordingApp(), zerolog.Nop())

	result := make(chan error, 1)
	go func() { result <- ctrl.ServeConn(t.Context(), ctrlSide) }()

	expectType(t, swSide, openflow13.Type_Hello)
	write(t, swSide, header(1, openflow13.Type_Hello, HeaderLen, 1))

	select {
	case err := <-result:
		if !errors.Is(err, ErrUnsupportedVersion) {
			t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("serve conn did not return")
	}
}

func TestServeConnHandshakeTimeout(t *testing.T) {
	testlog.Start(t)
	ctrlSide, swSide := net.Pipe()
	defer swSide.Close()
	cfg := testConfig()
	cfg.HandshakeTimeout = 50 * time.Millisecond
	ctrl := NewController(cfg, newRecordingApp(), zerolog.Nop())

	result := make(chan error, 1)
	go func() { result <- ctrl.ServeConn(t.Context(), ctrlSide) }()

	expectType(t, swSide, openflow13.Type_Hello)

	select {
	case err := <-result:
		if !errors.Is(err, ErrHandshakeTimeout) {
			t.Fatalf("expected ErrHandshakeTimeout, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("serve conn did not time out")
	}
}

func TestSwitchSendAfterClose(t *testing.T) {
	ctrlSide, swSide := net.Pipe()
	defer swSide.Close()
	sw := newSwitch(ctrlSide, 9, testConfig(), zerolog.Nop())
	sw.Close()
	if err := sw.Send(openflow13.NewEchoRequest()); !errors.Is(err, ErrSwitchClosed) {
		t.Fatalf("expected ErrSwitchClosed, got %v", err)
	}
}

func TestServeConnDeliversPacketIns(t *testing.T) {
	testlog.Start(t)
	ctrlSide, swSide := net.Pipe()
	app := newRecordingApp()
	ctrl := NewController(testConfig(), app, zerolog.Nop())

	result := make(chan error, 1)
	go func() { result <- ctrl.ServeConn(t.Context(), ctrlSide) }()
	handshakeSwitch(t, app, swSide, 6)

	write(t, swSide, packetInFrame(33, 5))
	got := app.nextPacket(t)
	if got.err != nil || got.bufferID != 33 || got.dpid != 6 {
		t.Fatalf("unexpected delivery: %+v", got)
	}

	write(t, swSide, packetInFrame(34, 0))
	got = app.nextPacket(t)
	var perr *ParseError
	if !errors.As(got.err, &perr) || !errors.Is(got.err, ErrMalformed) {
		t.Fatalf("expected malformed parse error, got %v", got.err)
	}
	if got.bufferID != 34 {
		t.Fatalf("malformed packet-in buffer id %d", got.bufferID)
	}

	// The session keeps going after a malformed body.
	write(t, swSide, header(openflow13.VERSION, openflow13.Type_EchoRequest, HeaderLen, 5))
	expectType(t, swSide, openflow13.Type_EchoReply)

	_ = swSide.Close()
	if err := waitResult(t, result); err != nil {
		t.Fatalf("serve conn: %v", err)
	}
	<-app.disconnected
}

func TestServeConnDropsSilentSwitch(t *testing.T) {
	testlog.Start(t)
	ctrlSide, swSide := net.Pipe()
	defer swSide.Close()
	cfg := testConfig()
	cfg.DeadAfter = 100 * time.Millisecond
	app := newRecordingApp()
	ctrl := NewController(cfg, app, zerolog.Nop())

	result := make(chan error, 1)
	go func() { result <- ctrl.ServeConn(t.Context(), ctrlSide) }()
	handshakeSwitch(t, app, swSide, 6)

	if err := waitResult(t, result); err == nil {
		t.Fatal("expected unresponsive switch error")
	}
	select {
	case dpid := <-app.disconnected:
		if dpid != 6 {
			t.Fatalf("unexpected disconnect dpid: %d", dpid)
		}
	default:
		t.Fatal("silent switch was not disconnected")
	}
}

func TestServeConnSendsEchoRequests(t *testing.T) {
	testlog.Start(t)
	ctrlSide, swSide := net.Pipe()
	cfg := testConfig()
	cfg.EchoInterval = 50 * time.Millisecond
	app := newRecordingApp()
	ctrl := NewController(cfg, app, zerolog.Nop())

	result := make(chan error, 1)
	go func() { result <- ctrl.ServeConn(t.Context(), ctrlSide) }()
	handshakeSwitch(t, app, swSide, 6)

	expectType(t, swSide, openflow13.Type_EchoRequest)

	_ = swSide.Close()
	if err := waitResult(t, result); err != nil {
		t.Fatalf("serve conn: %v", err)
	}
	<-app.disconnected
}

type acceptResult struct {
	conn net.Conn
	err  error
}

// scriptedListener hands out queued Accept results and blocks otherwise.
type scriptedListener struct {
	results   chan acceptResult
	closed    chan struct{}
	closeOnce sync.Once
}

func newScriptedListener() *scriptedListener {
	return &scriptedListener{
		results: make(chan acceptResult, 4),
		closed:  make(chan struct{}),
	}
}

func (l *scriptedListener) Accept() (net.Conn, error) {
	select {
	case r := <-l.results:
		return r.conn, r.err
	case <-l.closed:
		return nil, net.ErrClosed
	}
}

func (l *scriptedListener) Close() error {
	l.closeOnce.Do(func() { close(l.closed) })
	return nil
}

func (l *scriptedListener) Addr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 6653}
}

type temporaryError struct{}

func (temporaryError) Error() string   { return "accept: resource temporarily unavailable" }
func (temporaryError) Temporary() bool { return true }
func (temporaryError) Timeout() bool   { return false }

func TestServeReturnsOnAcceptFailureWithSwitchConnected(t *testing.T) {
	testlog.Start(t)
	ctrlSide, swSide := net.Pipe()
	defer swSide.Close()
	app := newRecordingApp()
	ctrl := NewController(testConfig(), app, zerolog.Nop())
	ln := newScriptedListener()
	ln.results <- acceptResult{conn: ctrlSide}

	result := make(chan error, 1)
	go func() { result <- ctrl.Serve(t.Context(), ln) }()
	handshakeSwitch(t, app, swSide, 6)

	acceptErr := errors.New("accept: too many open files")
	ln.results <- acceptResult{err: acceptErr}
	if err := waitResult(t, result); !errors.Is(err, acceptErr) {
		t.Fatalf("expected accept error, got %v", err)
	}
	select {
	case <-app.disconnected:
	default:
		t.Fatal("connected switch was not shut down")
	}
}

func TestServeRetriesTemporaryAcceptErrors(t *testing.T) {
	testlog.Start(t)
	ctrlSide, swSide := net.Pipe()
	defer swSide.Close()
	app := newRecordingApp()
	ctrl := NewController(testConfig(), app, zerolog.Nop())
	ln := newScriptedListener()
	ln.results <- acceptResult{err: temporaryError{}}
	ln.results <- acceptResult{err: temporaryError{}}
	ln.results <- acceptResult{conn: ctrlSide}

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	result := make(chan error, 1)
	go func() { result <- ctrl.Serve(ctx, ln) }()
	handshakeSwitch(t, app, swSide, 6)

	cancel()
	if err := waitResult(t, result); err != nil {
		t.Fatalf("serve after cancel: %v", err)
	}
	<-app.disconnected
}

func TestAcceptBackoff(t *testing.T) {
	var d time.Duration
	var got []time.Duration
	for range 10 {
		d = acceptBackoff(d)
		got = append(got, d)
	}
	if got[0] != 5*time.Millisecond || got[1] != 10*time.Millisecond {
		t.Fatalf("unexpected backoff start: %v", got[:2])
	}
	if got[len(got)-1] != time.Second {
		t.Fatalf("backoff not capped: %v", got[len(got)-1])
	}
}
