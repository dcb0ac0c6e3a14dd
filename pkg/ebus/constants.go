// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2026 the ebusd-go authors

// Package ebus provides the symbol-level building blocks of the eBUS
// two-wire serial protocol: address arithmetic, the escaped symbol
// buffer with running CRC, and the sentinel errors and message-catalog
// interfaces shared by the higher-level bus handler.
package ebus

// Wire symbols with special meaning outside of escaping.
const (
	SYN       byte = 0xAA // synchronization symbol, marks message boundaries
	ESC       byte = 0xA9 // escape symbol, precedes an escaped SYN or ESC
	ACK       byte = 0x00 // positive acknowledgement
	NAK       byte = 0xFF // negative acknowledgement
	BROADCAST byte = 0xFE // broadcast destination address
)

// Bytes that follow ESC on the wire and the values they stand for.
const (
	escSYN byte = 0x01 // ESC,0x01 means a literal SYN byte
	escESC byte = 0x00 // ESC,0x00 means a literal ESC byte
)

// Per-symbol timing, all in microseconds, mirroring the fixed timing
// budget of a 2400 Bd bus.
const (
	SlaveRecvTimeout = 15000            // default time to wait for a slave symbol
	SynTimeout       = 50800            // max time between two AUTO-SYN symbols
	SignalTimeout    = 5 * SynTimeout   // time without a SYN before signal is lost
	SymbolDuration   = 4700             // max duration of a single symbol at 2400 Bd
	SendTimeout      = 2 * SymbolDuration // max time to get back a sent symbol (self-echo)
)

// MaxSymbolsPerMessage bounds the size of a SymbolBuffer, matching the
// largest possible eBUS frame (QQ ZZ PB SB NN + 16 data + CRC).
const MaxSymbolsPerMessage = 1 + 1 + 1 + 1 + 1 + 16 + 1
