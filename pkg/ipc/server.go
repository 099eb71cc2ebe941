// Copyright 2015-2023 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package ipc

import (
	"net"
	"sync"

	"github.com/rs/xid"

	"github.com/zurutech/dicey-sub001/internal/errcode"
	"github.com/zurutech/dicey-sub001/pkg/dicelog"
	"github.com/zurutech/dicey-sub001/pkg/dmetrics"
	"github.com/zurutech/dicey-sub001/pkg/dtf"
	"github.com/zurutech/dicey-sub001/pkg/registry"
)

// connState is a connection's position in the per-client state machine:
// CONNECTED -> EXPECT_HELLO (implicit, the handshake is synchronous in
// serve()) -> AUTHENTICATED -> SAID_BYE -> CLOSED.
type connState int

const (
	connAuthenticated connState = iota
	connSaidBye
	connClosed
)

// RequestHandler is invoked for every GET/SET/EXEC that targets an
// object not owned by the built-in traits (dicey.Registry,
// dicey.Introspection, dicey.SignalManager, dicey.PluginManager,
// dicey.Trait), which the
// Server answers itself. Handlers run on the server's single dispatch
// goroutine; they must not block.
type RequestHandler func(req *Request)

// Server is the reference dicey server runtime: it owns a Listener, a
// Registry, and a single-goroutine work loop that serializes every
// registry mutation and every dispatch. Connection reader goroutines
// never touch shared state directly; they post work items onto the
// loop's queue.
type Server struct {
	reg     *registry.Registry
	handler RequestHandler
	logger  func(format string, args ...interface{})
	metrics *dmetrics.Collector

	workQueue chan func()
	stop      chan struct{}
	stopOnce  sync.Once

	mu      sync.Mutex
	clients map[string]*serverClient
}

// NewServer builds a Server around reg. handler may be nil if every
// dispatched object is a built-in.
func NewServer(reg *registry.Registry, handler RequestHandler, metrics *dmetrics.Collector) *Server {
	s := &Server{
		reg:       reg,
		handler:   handler,
		logger:    dicelog.Infof,
		metrics:   metrics,
		workQueue: make(chan func(), 256),
		stop:      make(chan struct{}),
		clients:   make(map[string]*serverClient),
	}
	go s.loop()
	return s
}

// loop is the server's single logical thread: every registry mutation,
// every dispatch, every outbound frame flows through here.
func (s *Server) loop() {
	for {
		select {
		case item := <-s.workQueue:
			item()
		case <-s.stop:
			return
		}
	}
}

func (s *Server) post(fn func()) {
	select {
	case s.workQueue <- fn:
	case <-s.stop:
	}
}

// Serve accepts connections from ln until Stop is called or Accept
// fails. Each accepted connection gets its own reader goroutine; all of
// a connection's effects on shared state are posted back to the
// server's single loop via post().
func (s *Server) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.stop:
				return nil
			default:
				return err
			}
		}
		go s.serve(conn)
	}
}

// Stop kicks every connected client with BYE(SHUTDOWN) and halts the
// dispatch loop.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		clients := make([]*serverClient, 0, len(s.clients))
		for _, c := range s.clients {
			clients = append(clients, c)
		}
		s.mu.Unlock()

		s.logger("ipc: stopping, kicking %d client(s)", len(clients))
		for _, c := range clients {
			c.sendBye(dtf.ByeShutdown)
			c.conn.Close()
		}
		close(s.stop)
	})
}

// Raise publishes a signal to every subscriber of (path, trait, elem),
// collecting the subscriber list by scanning the registry's subscription
// table. The packet is built once and the same *dtf.Packet handed to every
// outbound queue (each client's writer dumps it to wire bytes); that's
// safe because a Packet is never mutated after build, and the garbage
// collector reclaims it once the last client queue has drained it.
func (s *Server) Raise(path, trait, elem string, value *dtf.ArgNode) error {
	mb := dtf.NewMessageBuilder()
	if err := mb.Begin(0, dtf.OpSignal, path, trait, elem); err != nil {
		return err
	}
	if err := mb.SetValue(value); err != nil {
		mb.Discard()
		return err
	}
	pkt, err := mb.Build()
	if err != nil {
		return err
	}

	// The element check reads the registry, so it must run on the loop
	// like every other registry access. Raise may itself be called from a
	// handler already running on the loop, so it cannot wait for the
	// posted item; a failed check is reported through the log instead.
	s.post(func() {
		_, el, err := s.reg.GetElement(path, trait, elem)
		if err == nil {
			err = registry.CheckOp(el, dtf.OpSignal)
		}
		if err != nil {
			dicelog.Warnf("ipc: dropping raise of %s %s:%s: %v", path, trait, elem, err)
			return
		}

		subs := s.reg.Subscribers(path, trait, elem)
		for _, clientID := range subs {
			s.mu.Lock()
			c, ok := s.clients[clientID]
			s.mu.Unlock()
			if !ok {
				continue
			}
			c.enqueue(pkt)
		}
		if s.metrics != nil {
			s.metrics.SignalRaised()
		}
	})
	return nil
}

// serverClient tracks one accepted connection's handshake state and
// outbound queue.
type serverClient struct {
	id     string
	conn   net.Conn
	server *Server

	state connState
	out   chan *dtf.Packet
	done  chan struct{} // closed when the connection is torn down
}

func (s *Server) serve(conn net.Conn) {
	c := &serverClient{
		id:     xid.New().String(),
		conn:   conn,
		server: s,
		state:  connAuthenticated,
		out:    make(chan *dtf.Packet, 64),
		done:   make(chan struct{}),
	}

	reader := newPacketReader(conn)

	hello, err := reader.readPacket()
	if err != nil || hello.Kind() != dtf.KindHello {
		conn.Close()
		return
	}
	if hello.VersionMajor != ProtocolMajor {
		writePacket(conn, dtf.Bye(0, dtf.ByeError))
		conn.Close()
		return
	}
	if err := writePacket(conn, dtf.Hello(0, ProtocolMajor, ProtocolRevision)); err != nil {
		conn.Close()
		return
	}

	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.ClientConnected()
	}

	go c.writeLoop()

	defer func() {
		c.state = connClosed
		s.mu.Lock()
		delete(s.clients, c.id)
		s.mu.Unlock()
		s.post(func() { s.reg.UnsubscribeAll(c.id) })
		close(c.done)
		conn.Close()
		if s.metrics != nil {
			s.metrics.ClientDisconnected()
		}
	}()

	for {
		pkt, err := reader.readPacket()
		if err != nil {
			return
		}
		switch pkt.Kind() {
		case dtf.KindBye:
			c.state = connSaidBye
			return
		case dtf.KindMessage:
			s.dispatch(c, pkt)
		default:
			return
		}
	}
}

func (c *serverClient) writeLoop() {
	for {
		select {
		case pkt := <-c.out:
			if err := writePacket(c.conn, pkt); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *serverClient) enqueue(pkt *dtf.Packet) {
	select {
	case c.out <- pkt:
	case <-c.done:
	default:
		dicelog.Warnf("ipc: client %s outbound queue full, dropping frame", c.id)
	}
}

func (c *serverClient) post(fn func()) {
	c.server.post(fn)
}

func (c *serverClient) sendResponse(seq uint32, value *dtf.ArgNode) error {
	mb := dtf.NewMessageBuilder()
	if err := mb.Begin(seq, dtf.OpResponse, "", "", ""); err != nil {
		return err
	}
	if err := mb.SetValue(value); err != nil {
		mb.Discard()
		return err
	}
	pkt, err := mb.Build()
	if err != nil {
		return err
	}
	c.enqueue(pkt)
	return nil
}

func (c *serverClient) sendBye(reason dtf.ByeReason) {
	c.enqueue(dtf.Bye(0, reason))
}

// dispatch posts the message onto the server loop, where registry
// reads/writes never race. The loop answers built-in objects itself and
// forwards everything else to s.handler.
func (s *Server) dispatch(c *serverClient, pkt *dtf.Packet) {
	s.post(func() {
		if s.metrics != nil {
			s.metrics.RequestStarted()
			defer s.metrics.RequestFinished()
		}

		op := pkt.Op()
		if op == dtf.OpSignal {
			// Only servers raise signals; a client sending one is a
			// protocol violation worth dropping rather than answering.
			return
		}

		var value *dtf.Value
		if pkt.HasValue() {
			v, err := pkt.Value()
			if err != nil {
				c.sendResponse(pkt.Seq, dtf.NewError(int16(errcode.EBADMSG), strPtr(err.Error())))
				return
			}
			value = &v
		}

		if handled, err := s.dispatchBuiltin(c, pkt.Seq, op, pkt.Path, pkt.Trait, pkt.Elem, value); handled {
			if err != nil {
				c.sendResponse(pkt.Seq, errToValue(err))
			}
			return
		}

		_, el, err := s.reg.GetElement(pkt.Path, pkt.Trait, pkt.Elem)
		if err != nil {
			c.sendResponse(pkt.Seq, errToValue(err))
			return
		}
		if err := registry.CheckOp(el, op); err != nil {
			c.sendResponse(pkt.Seq, errToValue(err))
			return
		}
		if value != nil && el.Signature != nil {
			sigForValue := el.Signature
			if el.Signature.Kind == dtf.FunctionalDesc {
				sigForValue = el.Signature.In
			}
			if sigForValue != nil && !value.IsCompatibleWith(sigForValue) {
				c.sendResponse(pkt.Seq, errToValue(errcode.New(errcode.EVALUETYPEMISMATCH, "ipc: argument does not match %s:%s's signature", pkt.Trait, pkt.Elem)))
				return
			}
		}

		if s.handler == nil {
			c.sendResponse(pkt.Seq, errToValue(errcode.New(errcode.ENOTSUPPORTED, "ipc: no handler registered for %s", pkt.Path)))
			return
		}
		s.handler(newRequest(c, pkt.Seq, op, pkt.Path, pkt.Trait, pkt.Elem, value))
	})
}

func errToValue(err error) *dtf.ArgNode {
	code := errcode.EUNKNOWN
	if e, ok := err.(*errcode.Error); ok {
		code = e.Code
	}
	msg := err.Error()
	return dtf.NewError(int16(code), &msg)
}

func strPtr(s string) *string { return &s }
