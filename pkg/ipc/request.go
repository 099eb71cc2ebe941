// Copyright 2015-2023 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package ipc

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/zurutech/dicey-sub001/internal/errcode"
	"github.com/zurutech/dicey-sub001/pkg/dtf"
)

// Request is the handle a Server's RequestHandler receives for one
// dispatched GET/SET/EXEC message. Exactly one of
// Reply/Fail/ReplySync/FailSync may be called, exactly once; a second
// call fails EALREADY.
type Request struct {
	Path  string
	Trait string
	Elem  string
	Op    dtf.Op
	Value *dtf.Value // nil for GET

	client *serverClient
	seq    uint32

	mu   sync.Mutex
	done bool
}

func newRequest(c *serverClient, seq uint32, op dtf.Op, path, trait, elem string, value *dtf.Value) *Request {
	return &Request{Path: path, Trait: trait, Elem: elem, Op: op, Value: value, client: c, seq: seq}
}

// Reply completes the request asynchronously with a success value,
// posting the RESPONSE frame to the owning connection's outbound queue
// without blocking the caller.
func (r *Request) Reply(arg *dtf.ArgNode) error {
	return r.complete(func() error { return r.client.sendResponse(r.seq, arg) })
}

// Fail completes the request asynchronously with an ERROR value.
func (r *Request) Fail(code errcode.Code, msg string) error {
	return r.complete(func() error {
		m := msg
		return r.client.sendResponse(r.seq, dtf.NewError(int16(code), &m))
	})
}

// ReplySync behaves like Reply but blocks the caller until the server
// loop has queued the RESPONSE on the connection's outbound queue. It
// does not wait for the transport write of that frame.
func (r *Request) ReplySync(ctx context.Context, arg *dtf.ArgNode) error {
	return r.completeSync(ctx, func() error { return r.client.sendResponse(r.seq, arg) })
}

// FailSync is ReplySync's error-reply counterpart.
func (r *Request) FailSync(ctx context.Context, code errcode.Code, msg string) error {
	return r.completeSync(ctx, func() error {
		m := msg
		return r.client.sendResponse(r.seq, dtf.NewError(int16(code), &m))
	})
}

func (r *Request) markDone() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return false
	}
	r.done = true
	return true
}

func (r *Request) complete(send func() error) error {
	if !r.markDone() {
		return errcode.New(errcode.EALREADY, "ipc: request already completed")
	}
	r.client.post(func() { send() })
	return nil
}

// completeSync posts the same work item to the server's single loop
// thread, then waits on a completion semaphore the loop signals once the
// response has been queued for the connection's writer.
func (r *Request) completeSync(ctx context.Context, send func() error) error {
	if !r.markDone() {
		return errcode.New(errcode.EALREADY, "ipc: request already completed")
	}
	gate := semaphore.NewWeighted(1)
	_ = gate.Acquire(context.Background(), 1) // cannot fail: fresh semaphore, background ctx

	var sendErr error
	r.client.post(func() {
		sendErr = send()
		gate.Release(1)
	})

	if err := gate.Acquire(ctx, 1); err != nil {
		return err
	}
	return sendErr
}
