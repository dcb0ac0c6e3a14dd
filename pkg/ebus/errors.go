// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2026 the ebusd-go authors

package ebus

import "errors"

// Sentinel errors returned by this package and by pkg/bushandler. Callers
// should compare with errors.Is rather than matching error strings.
var (
	ErrNoSignal     = errors.New("ebus: no signal")
	ErrTimeout      = errors.New("ebus: timeout")
	ErrSyn          = errors.New("ebus: unexpected SYN")
	ErrBusLost      = errors.New("ebus: arbitration lost")
	ErrSend         = errors.New("ebus: send failed")
	ErrDevice       = errors.New("ebus: device error")
	ErrCRC          = errors.New("ebus: CRC mismatch")
	ErrAck          = errors.New("ebus: NAK received")
	ErrInvalidArg   = errors.New("ebus: invalid argument")
	ErrInvalidAddr  = errors.New("ebus: invalid address")
	ErrInvalidNum   = errors.New("ebus: invalid numeric value")
	ErrInvalidEscape = errors.New("ebus: invalid escape sequence")
	ErrNotFound     = errors.New("ebus: not found")
	ErrEmpty        = errors.New("ebus: empty")
	ErrOverflow     = errors.New("ebus: symbol buffer overflow")
	ErrEOF          = errors.New("ebus: end of data")
)
