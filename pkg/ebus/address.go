// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2026 the ebusd-go authors

package ebus

// masterPartIndex returns the 1-based index (1-5) of a valid master
// nibble, or 0 if the nibble cannot appear in a master address.
func masterPartIndex(nibble byte) byte {
	switch nibble {
	case 0x0:
		return 1
	case 0x1:
		return 2
	case 0x3:
		return 3
	case 0x7:
		return 4
	case 0xF:
		return 5
	default:
		return 0
	}
}

// IsMasterAddress reports whether addr is a valid master address: both
// nibbles must be one of 0x0, 0x1, 0x3, 0x7, 0xF.
func IsMasterAddress(addr byte) bool {
	hi := (addr & 0xF0) >> 4
	lo := addr & 0x0F
	return masterPartIndex(hi) != 0 && masterPartIndex(lo) != 0
}

// IsSlaveMasterAddress reports whether addr is the slave address derived
// from some master (i.e. addr-5 is a valid master address).
func IsSlaveMasterAddress(addr byte) bool {
	return IsMasterAddress(addr - 5)
}

// MasterAddress returns the master address responsible for addr: addr
// itself if it is already a master, addr-5 if that is a master, or SYN
// if neither (matching the source's sentinel-on-failure behavior).
func MasterAddress(addr byte) byte {
	if IsMasterAddress(addr) {
		return addr
	}
	if candidate := addr - 5; IsMasterAddress(candidate) {
		return candidate
	}
	return SYN
}

// SlaveAddress returns the slave address answering for master addr,
// i.e. addr+5 mod 256.
func SlaveAddress(addr byte) byte {
	return addr + 5
}

// MasterNumber returns the 1-25 priority ordinal of a master address, or
// 0 if addr is not a valid master address.
func MasterNumber(addr byte) byte {
	priority := masterPartIndex(addr & 0x0F)
	if priority == 0 {
		return 0
	}
	index := masterPartIndex((addr & 0xF0) >> 4)
	if index == 0 {
		return 0
	}
	return 5*(priority-1) + index
}

// IsValidAddress reports whether addr may appear as a bus address. SYN
// and ESC never may; BROADCAST is excluded unless allowBroadcast is set.
func IsValidAddress(addr byte, allowBroadcast bool) bool {
	if addr == SYN || addr == ESC {
		return false
	}
	return allowBroadcast || addr != BROADCAST
}
