// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2026 the ebusd-go authors

// Package device provides byte-duplex transports for the eBUS: a local
// serial port, a remote TCP gateway, and an in-memory loopback used by
// tests.
package device

import "time"

// Device is a half-duplex byte channel to the bus. Callers send one
// symbol at a time and expect it to echo back (self-echo over the
// shared wire) before sending the next.
type Device interface {
	// Open connects the device. It is safe to call Close without a
	// prior successful Open.
	Open() error

	// Close disconnects the device.
	Close() error

	// Send writes a single symbol to the device.
	Send(value byte) error

	// Recv reads a single symbol, blocking at most timeout. A timeout
	// of 0 blocks indefinitely. Returns ebus.ErrTimeout on expiry.
	Recv(timeout time.Duration) (byte, error)

	// IsValid reports whether the device is currently open and usable.
	IsValid() bool

	// Latency returns the expected one-way transfer latency of this
	// device. The bus handler does not read it; its receive timeouts
	// use the configured TransferLatency instead.
	Latency() time.Duration

	// Name returns the device's configured address, e.g. a tty path or
	// host:port.
	Name() string
}
