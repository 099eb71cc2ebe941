// Copyright 2015-2023 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package ipc

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zurutech/dicey-sub001/internal/errcode"
	"github.com/zurutech/dicey-sub001/pkg/dtf"
)

// SignalHandler receives every SIGNAL frame the server sends for a
// subscription the client holds. Signals arrive asynchronously and are
// delivered on the client's read goroutine; handlers must not block.
type SignalHandler func(path, trait, elem string, value dtf.Value)

// pendingRequest is one in-flight Request's correlation slot, keyed by
// the seq number its MESSAGE packet carried.
type pendingRequest struct {
	reply chan pendingResult
}

type pendingResult struct {
	value dtf.Value
	err   error
}

// Client is the reference dicey client runtime: Dial performs the
// HELLO handshake, then a background goroutine reads frames and
// correlates RESPONSEs to outstanding Requests by seq while routing
// SIGNALs to onSignal.
type Client struct {
	conn     net.Conn
	onSignal SignalHandler

	seq uint32 // atomic

	mu      sync.Mutex
	pending map[uint32]*pendingRequest
	closed  bool
}

// Dial connects to addr, performs the HELLO handshake, and starts the
// background read loop. onSignal may be nil if the caller never
// subscribes to anything.
func Dial(addr Address, onSignal SignalHandler) (*Client, error) {
	if addr.Transport != TransportUnix {
		return nil, errcode.New(errcode.ENOTSUPPORTED, "ipc: client dial only supports unix sockets in this build")
	}
	conn, err := net.Dial("unix", addr.Value)
	if err != nil {
		return nil, errcode.New(errcode.ECONNREFUSED, "ipc: dial %s: %v", addr, err)
	}

	if err := writePacket(conn, dtf.Hello(0, ProtocolMajor, ProtocolRevision)); err != nil {
		conn.Close()
		return nil, err
	}

	reader := newPacketReader(conn)
	hello, err := reader.readPacket()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if hello.Kind() != dtf.KindHello {
		conn.Close()
		return nil, errcode.New(errcode.EBADMSG, "ipc: expected HELLO, got a different packet kind")
	}
	if hello.VersionMajor != ProtocolMajor {
		writePacket(conn, dtf.Bye(0, dtf.ByeError))
		conn.Close()
		code := errcode.ESERVERTOOOLD
		if hello.VersionMajor > ProtocolMajor {
			code = errcode.ECLIENTTOOOLD
		}
		return nil, errcode.New(code, "ipc: server major version %d is incompatible with client %d", hello.VersionMajor, ProtocolMajor)
	}

	c := &Client{
		conn:     conn,
		onSignal: onSignal,
		pending:  make(map[uint32]*pendingRequest),
	}
	go c.readLoop(reader)
	return c, nil
}

func (c *Client) readLoop(reader *packetReader) {
	defer c.abortPending(errcode.New(errcode.ECANCELLED, "ipc: connection closed"))
	for {
		pkt, err := reader.readPacket()
		if err != nil {
			return
		}
		switch pkt.Kind() {
		case dtf.KindBye:
			return
		case dtf.KindMessage:
			c.handleMessage(pkt)
		}
	}
}

func (c *Client) handleMessage(pkt *dtf.Packet) {
	switch pkt.Op() {
	case dtf.OpResponse:
		c.mu.Lock()
		p, ok := c.pending[pkt.Seq]
		if ok {
			delete(c.pending, pkt.Seq)
		}
		c.mu.Unlock()
		if !ok {
			return
		}
		v, err := pkt.Value()
		p.reply <- pendingResult{value: v, err: err}
	case dtf.OpSignal:
		if c.onSignal == nil {
			return
		}
		v, err := pkt.Value()
		if err != nil {
			return
		}
		c.onSignal(pkt.Path, pkt.Trait, pkt.Elem, v)
	}
}

func (c *Client) abortPending(err error) {
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[uint32]*pendingRequest)
	c.mu.Unlock()
	for _, p := range pending {
		p.reply <- pendingResult{err: err}
	}
}

// Request sends a GET/SET/EXEC and blocks until a RESPONSE arrives,
// ctx is cancelled, or timeout elapses. A RESPONSE whose seq no longer
// has a pending entry (it arrived after the timeout fired) is silently
// dropped. The returned Value may itself be an ERROR value if
// the server answered with one; Request returns a non-nil error only
// when the message cannot be built or on transport-level failures
// (timeout, cancellation, disconnect).
func (c *Client) Request(ctx context.Context, op dtf.Op, path, trait, elem string, value *dtf.ArgNode, timeout time.Duration) (dtf.Value, error) {
	seq := atomic.AddUint32(&c.seq, 1)

	mb := dtf.NewMessageBuilder()
	if err := mb.Begin(seq, op, path, trait, elem); err != nil {
		return dtf.Value{}, err
	}
	if op.RequiresValue() {
		if err := mb.SetValue(value); err != nil {
			mb.Discard()
			return dtf.Value{}, err
		}
	}
	pkt, err := mb.Build()
	if err != nil {
		return dtf.Value{}, err
	}

	p := &pendingRequest{reply: make(chan pendingResult, 1)}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return dtf.Value{}, errcode.New(errcode.ECANCELLED, "ipc: client is closed")
	}
	c.pending[seq] = p
	c.mu.Unlock()

	if err := writePacket(c.conn, pkt); err != nil {
		c.mu.Lock()
		delete(c.pending, seq)
		c.mu.Unlock()
		return dtf.Value{}, err
	}

	var timer *time.Timer
	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer = time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case res := <-p.reply:
		return res.value, res.err
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, seq)
		c.mu.Unlock()
		return dtf.Value{}, ctx.Err()
	case <-timeoutCh:
		c.mu.Lock()
		delete(c.pending, seq)
		c.mu.Unlock()
		return dtf.Value{}, errcode.New(errcode.ETIMEDOUT, "ipc: request %s:%s:%s timed out", path, trait, elem)
	}
}

// Close sends BYE(SHUTDOWN) and tears down the connection, failing
// every still-outstanding Request with ECANCELLED.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	writePacket(c.conn, dtf.Bye(0, dtf.ByeShutdown))
	return c.conn.Close()
}
