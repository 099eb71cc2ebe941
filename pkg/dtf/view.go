// Copyright 2015-2023 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package dtf

import (
	"github.com/zurutech/dicey-sub001/internal/errcode"
)

// View is a read-only cursor over a borrowed byte slice. Advance and
// TakeSubview never copy: they return sub-slices of the same backing array, so the
// caller must keep the original buffer alive for as long as any View (or
// value probed from it) is in use, the same lifetime coupling a packet
// has with the values probed out of it.
type View struct {
	data []byte
}

// NewView wraps data for reading. data is never copied.
func NewView(data []byte) View {
	return View{data: data}
}

// Len returns the number of unread bytes remaining.
func (v View) Len() int {
	return len(v.data)
}

// Bytes returns the remaining unread bytes without consuming them.
func (v View) Bytes() []byte {
	return v.data
}

// Advance consumes and returns the next n bytes, or fails EAGAIN if fewer
// than n bytes remain (the caller should wait for more data to arrive).
func (v *View) Advance(n int) ([]byte, error) {
	if n < 0 || n > len(v.data) {
		return nil, errcode.New(errcode.EAGAIN, "view: need %d bytes, have %d", n, len(v.data))
	}
	out := v.data[:n]
	v.data = v.data[n:]
	return out, nil
}

// TakeSubview carves off the next n bytes as an independent View sharing
// the same backing array, advancing past them.
func (v *View) TakeSubview(n int) (View, error) {
	b, err := v.Advance(n)
	if err != nil {
		return View{}, err
	}
	return View{data: b}, nil
}

// ReadZString reads a NUL-terminated string, returning a copy of the bytes
// before the terminator (excluding it) as a Go string. Fails EAGAIN if no terminator is
// found in the remaining bytes.
func (v *View) ReadZString() (string, error) {
	for i, b := range v.data {
		if b == 0 {
			s := string(v.data[:i])
			v.data = v.data[i+1:]
			return s, nil
		}
	}
	return "", errcode.New(errcode.EAGAIN, "view: unterminated string")
}

// ReadInto copies exactly len(dst) bytes into dst, advancing past them.
func (v *View) ReadInto(dst []byte) error {
	b, err := v.Advance(len(dst))
	if err != nil {
		return err
	}
	copy(dst, b)
	return nil
}
