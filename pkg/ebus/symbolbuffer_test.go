// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2026 the ebusd-go authors

package ebus

import (
	"errors"
	"testing"
)

func TestSymbolBufferPushEscaping(t *testing.T) {
	tests := []struct {
		name     string
		value    byte
		wantData []byte
	}{
		{"normal byte unescaped", 0x42, []byte{0x42}},
		{"SYN escaped", SYN, []byte{ESC, escSYN}},
		{"ESC escaped", ESC, []byte{ESC, escESC}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := NewSymbolBuffer(true)
			if err := buf.Push(tt.value, false, false); err != nil {
				t.Fatalf("Push() error = %v", err)
			}
			if !bytesEqual(buf.Bytes(), tt.wantData) {
				t.Errorf("Bytes() = % x, want % x", buf.Bytes(), tt.wantData)
			}
		})
	}
}

func TestSymbolBufferUnescapeRoundTrip(t *testing.T) {
	escaped := NewSymbolBuffer(true)
	for _, b := range []byte{0x10, SYN, ESC, 0x03} {
		if err := escaped.Push(b, false, true); err != nil {
			t.Fatalf("Push(0x%02x) error = %v", b, err)
		}
	}

	unescaped := NewSymbolBuffer(false)
	for _, b := range escaped.Bytes() {
		if err := unescaped.Push(b, true, false); err != nil {
			t.Fatalf("unescape Push(0x%02x) error = %v", b, err)
		}
	}

	want := []byte{0x10, SYN, ESC, 0x03}
	if !bytesEqual(unescaped.Bytes(), want) {
		t.Errorf("round trip = % x, want % x", unescaped.Bytes(), want)
	}
}

func TestSymbolBufferPushInvalidEscape(t *testing.T) {
	buf := NewSymbolBuffer(false)
	if err := buf.Push(ESC, true, false); err != nil {
		t.Fatalf("Push(ESC) error = %v", err)
	}
	err := buf.Push(0x05, true, false)
	if !errors.Is(err, ErrInvalidEscape) {
		t.Errorf("Push(0x05 after ESC) error = %v, want ErrInvalidEscape", err)
	}
}

func TestSymbolBufferParseHexAndDataStr(t *testing.T) {
	buf := NewSymbolBuffer(false)
	if err := buf.ParseHex("1003", false); err != nil {
		t.Fatalf("ParseHex() error = %v", err)
	}
	if got := buf.DataStr(true, false); got != "1003" {
		t.Errorf("DataStr() = %q, want %q", got, "1003")
	}
}

func TestSymbolBufferCompareMaster(t *testing.T) {
	a := NewSymbolBuffer(false)
	_ = a.ParseHex("03100203aabbccdd", false)
	b := NewSymbolBuffer(false)
	_ = b.ParseHex("10100203aabbccdd", false)
	c := NewSymbolBuffer(false)
	_ = c.ParseHex("0310020300000000", false)

	if got := a.CompareMaster(a); got != 0 {
		t.Errorf("CompareMaster(self) = %d, want 0", got)
	}
	if got := a.CompareMaster(b); got != 2 {
		t.Errorf("CompareMaster(differs only in master addr) = %d, want 2", got)
	}
	if got := a.CompareMaster(c); got != 1 {
		t.Errorf("CompareMaster(differs beyond master addr) = %d, want 1", got)
	}
}

func TestSymbolBufferClear(t *testing.T) {
	buf := NewSymbolBuffer(true)
	_ = buf.Push(0x42, false, true)
	if buf.Size() == 0 {
		t.Fatal("expected buffer to be non-empty before Clear")
	}
	buf.Clear()
	if buf.Size() != 0 || buf.CRC() != 0 {
		t.Errorf("after Clear: size=%d crc=%d, want 0,0", buf.Size(), buf.CRC())
	}
}
