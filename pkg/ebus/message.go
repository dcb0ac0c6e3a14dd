// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2026 the ebusd-go authors

package ebus

import "time"

// Message is the opaque collaborator that knows how to build master
// data for a request and how to decode slave data back into fields.
// The full message/field codec (CSV-defined circuits, field types, unit
// conversion) lives outside this module; Handler only needs this much
// of the contract to drive a request to completion.
type Message interface {
	Circuit() string
	Name() string
	IsWrite() bool
	IsPassive() bool
	SrcAddress() byte
	DstAddress() byte

	// PrepareMaster builds the escaped master data to send for this
	// message, addressed from srcAddress, with input substituted for
	// any write fields.
	PrepareMaster(srcAddress byte, input string) (*SymbolBuffer, error)

	// PrepareSlave builds the escaped slave data to answer this message
	// when it was received passively and answering is this daemon's
	// responsibility (e.g. for an internally-known scan message).
	PrepareSlave() (*SymbolBuffer, error)

	// StoreLastData records the master and slave data last seen for
	// this message, for later decoding.
	StoreLastData(master, slave *SymbolBuffer) error

	// DecodeLastData renders the last stored data as a human-readable
	// string, one field per call when field is non-negative.
	DecodeLastData(field int) (string, error)

	// LastUpdate returns when StoreLastData was last called.
	LastUpdate() time.Time
}

// MessageCatalog is the opaque collaborator owning the set of known
// messages, keyed by circuit/name or by address for passive matching.
// The catalog itself (CSV loading, field parsing) is out of scope for
// this module; Handler only depends on this lookup surface.
type MessageCatalog interface {
	// Find returns the message matching a received master frame
	// (destination address, primary/secondary command byte), or nil.
	Find(dstAddress, pb, sb byte) Message

	// FindByName returns the message with the given circuit and name,
	// or nil if none is known.
	FindByName(circuit, name string) Message

	// FindAll returns every known message, for iteration by scan/grab.
	FindAll() []Message

	// GetScanMessage returns the message used to scan a given address,
	// or nil if scanning is not supported for that address.
	GetScanMessage(dstAddress byte) Message

	// GetNextPoll returns the next message due for a periodic poll, or
	// nil if none is due.
	GetNextPoll() Message

	// AddPollMessage enqueues a message for periodic polling.
	AddPollMessage(m Message)

	// InvalidateCache clears cached decode state, e.g. after a scan
	// discovers a different device behind an address.
	InvalidateCache(dstAddress byte)
}
