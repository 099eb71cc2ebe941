// Copyright 2015-2023 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package ipc

import (
	"net"
	"os"

	"github.com/zurutech/dicey-sub001/internal/errcode"
)

// Listen binds addr and, right after the bind, locks the fresh UNIX
// socket down to 0600 before returning.
func Listen(addr Address) (net.Listener, error) {
	if addr.Transport != TransportUnix {
		return nil, errcode.New(errcode.ENOTSUPPORTED, "ipc: listen only supports unix sockets in this build")
	}

	// A stale socket file from a crashed prior run must not block bind.
	if _, err := os.Stat(addr.Value); err == nil {
		os.Remove(addr.Value)
	}

	ln, err := net.Listen("unix", addr.Value)
	if err != nil {
		return nil, errcode.New(errcode.ECONNREFUSED, "ipc: listen %s: %v", addr, err)
	}
	if err := lockDownSocket(addr.Value); err != nil {
		ln.Close()
		return nil, err
	}
	return ln, nil
}
