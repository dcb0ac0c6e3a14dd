// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2026 the ebusd-go authors

package bushandler

import (
	"strings"
	"testing"

	"github.com/ebusgo/ebusd/pkg/ebus"
)

func newTestMaster(t *testing.T, hex string) *ebus.SymbolBuffer {
	t.Helper()
	buf := ebus.NewSymbolBuffer(true)
	if err := buf.ParseHex(hex, false); err != nil {
		t.Fatalf("ParseHex(%q) error = %v", hex, err)
	}
	return buf
}

func TestGrabberRecordsAccordingToMode(t *testing.T) {
	g := NewGrabber()
	master := newTestMaster(t, "0008b50400")

	g.Record(master, nil, true)
	if len(g.Result()) != 0 {
		t.Fatal("GrabNone recorded a message")
	}

	g.SetMode(GrabUnknown)
	g.Record(master, nil, true)
	if len(g.Result()) != 0 {
		t.Fatal("GrabUnknown recorded a known message")
	}
	g.Record(master, nil, false)
	if len(g.Result()) != 1 {
		t.Fatal("GrabUnknown did not record an unknown message")
	}

	g.Reset()
	if len(g.Result()) != 0 {
		t.Fatal("Reset() left entries behind")
	}

	g.SetMode(GrabAll)
	g.Record(master, nil, true)
	if len(g.Result()) != 1 {
		t.Fatal("GrabAll did not record a known message")
	}
}

func TestGrabberKeyAndFormat(t *testing.T) {
	g := NewGrabber()
	g.SetMode(GrabAll)
	g.Record(newTestMaster(t, "0008b50400"), nil, true)

	result := g.Result()
	if _, ok := result["0008b50400"]; !ok {
		t.Fatalf("Result() = %v, missing key %q", result, "0008b50400")
	}

	formatted := g.Format()
	if !strings.HasPrefix(formatted, "0008b50400: ") {
		t.Errorf("Format() = %q, want prefix %q", formatted, "0008b50400: ")
	}
}

func TestGrabberValueIncludesSlaveData(t *testing.T) {
	g := NewGrabber()
	g.SetMode(GrabAll)
	master := newTestMaster(t, "0008b50400")
	slave := newTestMaster(t, "02abcd")

	g.Record(master, slave, true)
	value := g.Result()["0008b50400"]
	if !strings.Contains(value, "/") {
		t.Errorf("Result() value = %q, want slave data appended", value)
	}
}
