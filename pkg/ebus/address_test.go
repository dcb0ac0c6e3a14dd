// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2026 the ebusd-go authors

package ebus

import "testing"

func TestIsMasterAddress(t *testing.T) {
	tests := []struct {
		name string
		addr byte
		want bool
	}{
		{"zero is master", 0x00, true},
		{"typical master 03", 0x03, true},
		{"typical master 10", 0x10, true},
		{"typical master 31", 0x31, true},
		{"ff is master", 0xFF, true},
		{"08 is not master", 0x08, false},
		{"broadcast is not master", BROADCAST, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsMasterAddress(tt.addr); got != tt.want {
				t.Errorf("IsMasterAddress(0x%02X) = %v, want %v", tt.addr, got, tt.want)
			}
		})
	}
}

func TestMasterAddressAndSlaveAddress(t *testing.T) {
	tests := []struct {
		name       string
		master     byte
		wantSlave  byte
	}{
		{"master 03", 0x03, 0x08},
		{"master 10", 0x10, 0x15},
		{"master 00", 0x00, 0x05},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slave := SlaveAddress(tt.master)
			if slave != tt.wantSlave {
				t.Errorf("SlaveAddress(0x%02X) = 0x%02X, want 0x%02X", tt.master, slave, tt.wantSlave)
			}
			if got := MasterAddress(slave); got != tt.master {
				t.Errorf("MasterAddress(0x%02X) = 0x%02X, want 0x%02X", slave, got, tt.master)
			}
			if !IsSlaveMasterAddress(slave) {
				t.Errorf("IsSlaveMasterAddress(0x%02X) = false, want true", slave)
			}
		})
	}

	if got := MasterAddress(0x09); got != SYN {
		t.Errorf("MasterAddress(0x09) = 0x%02X, want SYN for an address with no valid master", got)
	}
}

func TestMasterNumber(t *testing.T) {
	tests := []struct {
		addr byte
		want byte
	}{
		{0x00, 1},
		{0x10, 2},
		{0xFF, 25}, // highest master
		{0x08, 0},  // not a master
	}
	for _, tt := range tests {
		if got := MasterNumber(tt.addr); got != tt.want {
			t.Errorf("MasterNumber(0x%02X) = %d, want %d", tt.addr, got, tt.want)
		}
	}
}

func TestIsValidAddress(t *testing.T) {
	tests := []struct {
		name           string
		addr           byte
		allowBroadcast bool
		want           bool
	}{
		{"SYN never valid", SYN, true, false},
		{"ESC never valid", ESC, true, false},
		{"broadcast allowed", BROADCAST, true, true},
		{"broadcast disallowed", BROADCAST, false, false},
		{"normal address", 0x03, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidAddress(tt.addr, tt.allowBroadcast); got != tt.want {
				t.Errorf("IsValidAddress(0x%02X, %v) = %v, want %v", tt.addr, tt.allowBroadcast, got, tt.want)
			}
		})
	}
}
