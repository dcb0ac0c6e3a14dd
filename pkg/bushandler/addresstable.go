// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2026 the ebusd-go authors

package bushandler

import "sync"

// addrFlag is a bitmask of what has happened for a bus address.
type addrFlag byte

const (
	flagSeen     addrFlag = 0x01
	flagScanInit addrFlag = 0x02
	flagScanDone addrFlag = 0x04
	flagLoadInit addrFlag = 0x08
	flagLoadDone addrFlag = 0x10
)

// AddressTable tracks, per bus address, whether it has been seen on the
// bus, whether a scan has been started/completed for it, and whether a
// configuration file has been loaded/attempted for it. It also keeps the
// most recent scan result text per address.
type AddressTable struct {
	mu      sync.Mutex
	flags   [256]addrFlag
	results map[byte]string
	files   map[byte]string
}

// NewAddressTable creates an empty table.
func NewAddressTable() *AddressTable {
	return &AddressTable{
		results: make(map[byte]string),
		files:   make(map[byte]string),
	}
}

func (t *AddressTable) set(addr byte, flag addrFlag) {
	t.mu.Lock()
	t.flags[addr] |= flag
	t.mu.Unlock()
}

func (t *AddressTable) has(addr byte, flag addrFlag) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flags[addr]&flag != 0
}

// MarkSeen records that traffic from addr has been observed on the bus.
func (t *AddressTable) MarkSeen(addr byte) { t.set(addr, flagSeen) }

// Seen reports whether addr has been observed on the bus.
func (t *AddressTable) Seen(addr byte) bool { return t.has(addr, flagSeen) }

// MarkScanStarted records that a scan request for addr has been queued.
func (t *AddressTable) MarkScanStarted(addr byte) { t.set(addr, flagScanInit) }

// MarkScanDone records a scan result for addr and marks it complete.
func (t *AddressTable) MarkScanDone(addr byte, result string) {
	t.mu.Lock()
	t.flags[addr] |= flagScanDone
	t.results[addr] = result
	t.mu.Unlock()
}

// ScanDone reports whether a scan has completed for addr.
func (t *AddressTable) ScanDone(addr byte) bool { return t.has(addr, flagScanDone) }

// ScanResult returns the last recorded scan result text for addr.
func (t *AddressTable) ScanResult(addr byte) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.results[addr]
	return s, ok
}

// MarkLoadStarted records that configuration loading has been attempted
// for addr.
func (t *AddressTable) MarkLoadStarted(addr byte) { t.set(addr, flagLoadInit) }

// MarkLoadDone records the configuration file name loaded for addr.
func (t *AddressTable) MarkLoadDone(addr byte, file string) {
	t.mu.Lock()
	t.flags[addr] |= flagLoadDone
	t.files[addr] = file
	t.mu.Unlock()
}

// LoadDone reports whether configuration has been loaded for addr.
func (t *AddressTable) LoadDone(addr byte) bool { return t.has(addr, flagLoadDone) }

// LoadedFile returns the configuration file name loaded for addr, if any.
func (t *AddressTable) LoadedFile(addr byte) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, ok := t.files[addr]
	return f, ok
}

// SeenAddresses returns every address for which MarkSeen has been
// called, in ascending order.
func (t *AddressTable) SeenAddresses() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []byte
	for addr := 0; addr < 256; addr++ {
		if t.flags[byte(addr)]&flagSeen != 0 {
			out = append(out, byte(addr))
		}
	}
	return out
}
