// Copyright 2015-2023 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package ipc

import (
	"net"

	"github.com/zurutech/dicey-sub001/internal/errcode"
	"github.com/zurutech/dicey-sub001/pkg/dtf"
)

// packetReader accumulates bytes from a stream connection and peels off
// one framed dtf.Packet at a time, reading more when dtf.Load reports
// EAGAIN for a not-yet-complete frame.
type packetReader struct {
	conn net.Conn
	buf  []byte
}

func newPacketReader(conn net.Conn) *packetReader {
	return &packetReader{conn: conn}
}

func (r *packetReader) readPacket() (*dtf.Packet, error) {
	for {
		view := dtf.NewView(r.buf)
		pkt, err := dtf.Load(&view)
		if err == nil {
			consumed := len(r.buf) - view.Len()
			r.buf = append([]byte(nil), r.buf[consumed:]...)
			return pkt, nil
		}
		if !errcode.HasCode(err, errcode.EAGAIN) {
			return nil, err
		}

		chunk := make([]byte, 4096)
		n, readErr := r.conn.Read(chunk)
		if n > 0 {
			r.buf = append(r.buf, chunk[:n]...)
		}
		if readErr != nil {
			return nil, readErr
		}
	}
}

// writePacket serializes and writes pkt in full, looping over partial
// net.Conn writes.
func writePacket(conn net.Conn, pkt *dtf.Packet) error {
	raw, err := pkt.Dump()
	if err != nil {
		return err
	}
	for len(raw) > 0 {
		n, err := conn.Write(raw)
		if err != nil {
			return err
		}
		raw = raw[n:]
	}
	return nil
}
