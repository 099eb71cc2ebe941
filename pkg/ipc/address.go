// Copyright 2015-2023 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

// Package ipc is the reference client/server runtime built on top of
// pkg/dtf and pkg/registry: per-connection handshake and state machine,
// request/response correlation with timeouts, and signal subscription
// fan-out.
package ipc

import (
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/zurutech/dicey-sub001/internal/errcode"
)

// Transport distinguishes the two accepted address shapes.
type Transport int

const (
	TransportUnix Transport = iota
	TransportWindowsPipe
)

// Address is a parsed, transport-tagged endpoint identifier.
type Address struct {
	Transport Transport
	Value     string // filesystem path, or \\.\pipe\<name>
}

// maxUnixPathLen mirrors sockaddr_un's sun_path capacity on Linux
// (sizeof(struct sockaddr_un) - sizeof(sun_family_t)); golang.org/x/sys/unix
// does not export the constant directly, so it is named here once.
const maxUnixPathLen = 108

// ParseAddress classifies s: a \\.\pipe\ prefix selects the Windows
// named-pipe transport, anything else is a UNIX domain socket path.
// Fails NOTSUPPORTED for an unrecognized shape and PATHTOOLONG for a
// UNIX path exceeding the platform's sun_path capacity.
func ParseAddress(s string) (Address, error) {
	if strings.HasPrefix(s, `\\.\pipe\`) {
		if runtime.GOOS != "windows" {
			return Address{}, errcode.New(errcode.ENOTSUPPORTED, "ipc: named pipe address %q is not supported on %s", s, runtime.GOOS)
		}
		return Address{Transport: TransportWindowsPipe, Value: s}, nil
	}
	if s == "" {
		return Address{}, errcode.New(errcode.ENOTSUPPORTED, "ipc: empty address")
	}
	if len(s) >= maxUnixPathLen {
		return Address{}, errcode.New(errcode.EPATHTOOLONG, "ipc: unix socket path %q exceeds %d bytes", s, maxUnixPathLen-1)
	}
	return Address{Transport: TransportUnix, Value: s}, nil
}

// lockDownSocket restricts a freshly bound UNIX socket's filesystem
// permissions to the owner only. It runs after bind(), so it does not
// cover connections made between bind() and the chmod.
func lockDownSocket(path string) error {
	if err := unix.Chmod(path, 0600); err != nil {
		return errcode.New(errcode.EUNKNOWN, "ipc: chmod %s: %v", path, err)
	}
	return nil
}

func (a Address) String() string {
	return fmt.Sprintf("%v:%s", a.Transport, a.Value)
}

func (t Transport) String() string {
	if t == TransportWindowsPipe {
		return "pipe"
	}
	return "unix"
}
