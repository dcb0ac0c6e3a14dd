// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2026 the ebusd-go authors

package bushandler

import "testing"

func TestAddressTableSeenAndScan(t *testing.T) {
	at := NewAddressTable()
	if at.Seen(0x03) {
		t.Fatal("Seen(0x03) = true before MarkSeen")
	}
	at.MarkSeen(0x03)
	if !at.Seen(0x03) {
		t.Error("Seen(0x03) = false after MarkSeen")
	}

	at.MarkScanStarted(0x08)
	if at.ScanDone(0x08) {
		t.Error("ScanDone(0x08) = true before MarkScanDone")
	}
	at.MarkScanDone(0x08, "result-text")
	if !at.ScanDone(0x08) {
		t.Error("ScanDone(0x08) = false after MarkScanDone")
	}
	if result, ok := at.ScanResult(0x08); !ok || result != "result-text" {
		t.Errorf("ScanResult(0x08) = (%q, %v), want (%q, true)", result, ok, "result-text")
	}
}

func TestAddressTableLoadFile(t *testing.T) {
	at := NewAddressTable()
	if at.LoadDone(0x08) {
		t.Fatal("LoadDone(0x08) = true before MarkLoadDone")
	}
	at.MarkLoadStarted(0x08)
	at.MarkLoadDone(0x08, "08.csv")
	if !at.LoadDone(0x08) {
		t.Error("LoadDone(0x08) = false after MarkLoadDone")
	}
	if file, ok := at.LoadedFile(0x08); !ok || file != "08.csv" {
		t.Errorf("LoadedFile(0x08) = (%q, %v), want (%q, true)", file, ok, "08.csv")
	}
}

func TestAddressTableSeenAddressesAscending(t *testing.T) {
	at := NewAddressTable()
	at.MarkSeen(0x15)
	at.MarkSeen(0x03)
	at.MarkSeen(0x73)

	got := at.SeenAddresses()
	want := []byte{0x03, 0x15, 0x73}
	if len(got) != len(want) {
		t.Fatalf("SeenAddresses() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("SeenAddresses()[%d] = %#02x, want %#02x", i, got[i], want[i])
		}
	}
}
