// Copyright 2015-2023 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package ipc

// ProtocolMajor/ProtocolRevision are this build's dicey wire version.
// Client and server exchange them in HELLO packets and compare major
// versions; a mismatch fails the connection before anything else is
// sent.
const (
	ProtocolMajor    uint16 = 1
	ProtocolRevision uint16 = 0
)
