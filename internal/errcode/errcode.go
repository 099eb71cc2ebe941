// Copyright 2015-2023 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

// Package errcode defines the stable, numbered error vocabulary shared by
// every layer of dicey: wire codec, type system, registry and IPC runtime.
// Codes are small negative int16 values so they double as the payload of an
// on-wire ERROR value (see dtf.Value.ErrorValue).
package errcode

import (
	"errors"
	"fmt"
)

// Code is a stable, signed 16-bit error identifier. Negative values are
// reserved for dicey's own error space so they never collide with an
// application-defined code carried in a DICEY_ERROR value.
type Code int16

const (
	OK Code = 0

	// Transient - retryable at the caller's discretion.
	EAGAIN     Code = -1
	ETIMEDOUT  Code = -2
	ECANCELLED Code = -3
	EALREADY   Code = -4

	// Input - protocol or API misuse.
	EINVAL        Code = -10
	EBADMSG       Code = -11
	EOVERFLOW     Code = -12
	EPATHTOOLONG  Code = -13
	ETUPLETOOLONG Code = -14
	EARRAYTOOLONG Code = -15
	ENODATA       Code = -16

	// Semantic - meaningful to the application.
	EVALUETYPEMISMATCH   Code = -20
	EBUILDERTYPEMISMATCH Code = -21
	EPATHNOTFOUND        Code = -22
	ETRAITNOTFOUND       Code = -23
	EELEMENTNOTFOUND     Code = -24
	EPATHNOTALIAS        Code = -25
	EALIASALREADYEXISTS  Code = -26
	EOBJECTEXISTS        Code = -27

	// Capability.
	ENOTSUPPORTED Code = -30
	ECLIENTTOOOLD Code = -31
	ESERVERTOOOLD Code = -32

	// Resource.
	ENOMEM       Code = -40
	ECONNREFUSED Code = -41
	EUNKNOWN     Code = -42
)

// Info is the stable, human-readable description of a Code.
type Info struct {
	Code    Code
	Name    string // stable PascalCase identifier
	Message string
}

var table = map[Code]Info{
	OK:                   {OK, "Ok", "no error"},
	EAGAIN:               {EAGAIN, "Again", "operation would block; retry later"},
	ETIMEDOUT:            {ETIMEDOUT, "TimedOut", "operation timed out"},
	ECANCELLED:           {ECANCELLED, "Cancelled", "operation was cancelled"},
	EALREADY:             {EALREADY, "Already", "operation already in progress"},
	EINVAL:               {EINVAL, "Inval", "invalid argument"},
	EBADMSG:              {EBADMSG, "BadMsg", "malformed packet"},
	EOVERFLOW:            {EOVERFLOW, "Overflow", "arithmetic or buffer overflow"},
	EPATHTOOLONG:         {EPATHTOOLONG, "PathTooLong", "path exceeds the transport's address limit"},
	ETUPLETOOLONG:        {ETUPLETOOLONG, "TupleTooLong", "tuple exceeds the maximum element count"},
	EARRAYTOOLONG:        {EARRAYTOOLONG, "ArrayTooLong", "array exceeds the maximum element count"},
	ENODATA:              {ENODATA, "NoData", "no more data available"},
	EVALUETYPEMISMATCH:   {EVALUETYPEMISMATCH, "ValueTypeMismatch", "value does not match the requested type"},
	EBUILDERTYPEMISMATCH: {EBUILDERTYPEMISMATCH, "BuilderTypeMismatch", "value does not match the builder's expected type"},
	EPATHNOTFOUND:        {EPATHNOTFOUND, "PathNotFound", "no object registered at path"},
	ETRAITNOTFOUND:       {ETRAITNOTFOUND, "TraitNotFound", "object does not implement trait"},
	EELEMENTNOTFOUND:     {EELEMENTNOTFOUND, "ElementNotFound", "trait has no such element"},
	EPATHNOTALIAS:        {EPATHNOTALIAS, "PathNotAlias", "path is not a registered alias"},
	EALIASALREADYEXISTS:  {EALIASALREADYEXISTS, "AliasAlreadyExists", "path is already registered as an object or alias"},
	EOBJECTEXISTS:        {EOBJECTEXISTS, "ObjectExists", "an object is already registered at path"},
	ENOTSUPPORTED:        {ENOTSUPPORTED, "NotSupported", "operation or transport not supported"},
	ECLIENTTOOOLD:        {ECLIENTTOOOLD, "ClientTooOld", "client protocol major version is older than the server requires"},
	ESERVERTOOOLD:        {ESERVERTOOOLD, "ServerTooOld", "server protocol major version is older than the client requires"},
	ENOMEM:               {ENOMEM, "NoMem", "allocation failure"},
	ECONNREFUSED:         {ECONNREFUSED, "ConnRefused", "connection refused"},
	EUNKNOWN:             {EUNKNOWN, "Unknown", "unknown transport error"},
}

// Of returns the stable Info for code, falling back to EUNKNOWN's name
// (but the original code and a message naming it) if the code is not in
// the table.
func Of(code Code) Info {
	if info, ok := table[code]; ok {
		return info
	}
	return Info{code, "Unknown", fmt.Sprintf("unrecognized error code %d", code)}
}

// All enumerates every registered Info, ordered by Code.
func All() []Info {
	out := make([]Info, 0, len(table))
	for _, info := range table {
		out = append(out, info)
	}
	sortInfos(out)
	return out
}

func sortInfos(infos []Info) {
	for i := 1; i < len(infos); i++ {
		for j := i; j > 0 && infos[j-1].Code > infos[j].Code; j-- {
			infos[j-1], infos[j] = infos[j], infos[j-1]
		}
	}
}

// Error is a Go error value that carries a stable Code alongside the
// conventional message string. Low-level codecs never log or panic; they
// return one of these.
type Error struct {
	Code Code
	Msg  string
}

func New(code Code, format string, args ...interface{}) *Error {
	msg := Of(code).Message
	if format != "" {
		msg = fmt.Sprintf(format, args...)
	}
	return &Error{Code: code, Msg: msg}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", Of(e.Code).Name, e.Msg)
}

// Is reports whether target is an *Error with the same Code, so
// errors.Is(err, someOtherErrcodeError) works without string-comparing
// messages.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// HasCode reports whether err is (or wraps) an *Error with the given
// code. Callers that only have a sentinel Code, not a constructed error
// value, should use this instead of errors.Is.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
