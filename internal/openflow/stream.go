package openflow

import (
	"encoding/binary"
	"io"

	"github.com/contiv/libOpenflow/openflow13"
	"github.com/contiv/libOpenflow/util"
	"github.com/pkg/errors"
)

// HeaderLen is the fixed OpenFlow header: version, type, length, xid.
const HeaderLen = 8

// ReadMessage reads one framed message and decodes it as OpenFlow 1.3. A body
// that fails to decode is reported as *ParseError together with whatever was
// decoded; the stream stays usable. Any other error means it is not.
func ReadMessage(r io.Reader, maxBytes int) (util.Message, error) {
	var hdr [HeaderLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrShortHeader
		}
		return nil, err
	}

	length := int(binary.BigEndian.Uint16(hdr[2:4]))
	if length < HeaderLen {
		return nil, errors.Wrapf(ErrInvalidLength, "length %d", length)
	}
	if maxBytes > 0 && length > maxBytes {
		return nil, errors.Wrapf(ErrMessageTooLarge, "length %d > %d", length, maxBytes)
	}

	buf := make([]byte, length)
	copy(buf, hdr[:])
	if _, err := io.ReadFull(r, buf[HeaderLen:]); err != nil {
		return nil, errors.Wrap(err, "openflow: read body")
	}

	msg, err := parse(buf)
	if err != nil {
		return msg, &ParseError{Type: hdr[1], Err: err}
	}
	if msg == nil {
		return nil, &ParseError{Type: hdr[1], Err: ErrUnknownMessage}
	}
	return msg, nil
}

// parse runs openflow13.Parse, whose decoders index the buffer without bounds
// checks, and turns a decoder panic into ErrMalformed. A malformed packet-in
// keeps its header and buffer id so the receiver can still account for it.
func parse(buf []byte) (msg util.Message, err error) {
	defer func() {
		if r := recover(); r != nil {
			msg = partialMessage(buf)
			err = errors.Wrapf(ErrMalformed, "%v", r)
		}
	}()
	return openflow13.Parse(buf)
}

func partialMessage(buf []byte) util.Message {
	if buf[1] != openflow13.Type_PacketIn {
		return nil
	}
	pkt := openflow13.NewPacketIn()
	if err := pkt.Header.UnmarshalBinary(buf[:HeaderLen]); err != nil {
		return nil
	}
	if len(buf) >= HeaderLen+4 {
		pkt.BufferId = binary.BigEndian.Uint32(buf[HeaderLen:])
	}
	return pkt
}

// WriteMessage marshals and writes one message.
func WriteMessage(w io.Writer, msg util.Message) error {
	data, err := msg.MarshalBinary()
	if err != nil {
		return errors.Wrap(err, "openflow: marshal")
	}
	if _, err := w.Write(data); err != nil {
		return errors.Wrap(err, "openflow: write")
	}
	return nil
}
