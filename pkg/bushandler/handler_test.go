// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2026 the ebusd-go authors

package bushandler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ebusgo/ebusd/pkg/ebus"
	"github.com/ebusgo/ebusd/pkg/ebus/catalog"
	"github.com/ebusgo/ebusd/pkg/ebus/device"
)

const (
	testOwnMaster byte = 0x00
	testSlave     byte = 0x08 // answers for master 0x03
)

// crcFrame builds an escaped symbol buffer from hex data, appending the
// correct trailing CRC symbol, the same way the wire format requires.
func crcFrame(t *testing.T, hex string) []byte {
	t.Helper()
	buf := ebus.NewSymbolBuffer(true)
	if err := buf.ParseHex(hex, false); err != nil {
		t.Fatalf("ParseHex(%q) error = %v", hex, err)
	}
	return buf.Bytes()
}

func newTestHandler(t *testing.T, dev *device.LoopbackDevice, cat ebus.MessageCatalog) *Handler {
	t.Helper()
	cfg := DefaultConfig(testOwnMaster)
	cfg.PollInterval = 0
	h := New(dev, cat, cfg, nil)
	return h
}

// TestSendAndWaitQuerySuccess drives a full request/ACK/response/ACK
// cycle end to end over a loopback device, with the "other participant"
// scripted via the device's OnSend hook.
func TestSendAndWaitQuerySuccess(t *testing.T) {
	cat := catalog.NewStaticCatalog()
	msg := catalog.NewStaticMessage("test", "status", false, false, testSlave, 0xb5, 0x04, "")
	cat.Add(msg)

	dev := device.NewLoopbackDevice()
	if err := dev.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	master, err := msg.PrepareMaster(testOwnMaster, "")
	if err != nil {
		t.Fatalf("PrepareMaster() error = %v", err)
	}
	masterLen := master.Size()
	sent := 0
	response := crcFrame(t, "02abcd")

	dev.OnSend = func(byte) {
		sent++
		if sent == masterLen {
			dev.Inject(ebus.ACK)
			dev.InjectAll(response)
		}
	}

	h := newTestHandler(t, dev, cat)
	dev.Inject(ebus.SYN) // kick the state machine straight to bs_ready

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	slave, err := h.SendAndWait(master)
	if err != nil {
		t.Fatalf("SendAndWait() error = %v", err)
	}
	if got := slave.DataStr(true, true); got != "02abcd" {
		t.Errorf("slave data = %q, want %q", got, "02abcd")
	}
}

// TestSendAndWaitNoSignal fails immediately when the device never
// produces any signal at all.
func TestSendAndWaitNoSignal(t *testing.T) {
	cat := catalog.NewStaticCatalog()
	dev := device.NewLoopbackDevice()
	if err := dev.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	h := newTestHandler(t, dev, cat)
	h.state = StateNoSignal

	master := ebus.NewSymbolBuffer(true)
	_ = master.ParseHex("0008b50400", false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	_, err := h.SendAndWait(master)
	if !errors.Is(err, ebus.ErrNoSignal) {
		t.Fatalf("SendAndWait() error = %v, want ErrNoSignal", err)
	}
}

func TestHandlerRecvTimeoutByState(t *testing.T) {
	h := &Handler{state: StateNoSignal}
	if got := h.recvTimeout(); got != ebus.SignalTimeout*time.Microsecond {
		t.Errorf("recvTimeout() in StateNoSignal = %v, want %v", got, ebus.SignalTimeout*time.Microsecond)
	}
	h.state = StateRecvCmd
	if got := h.recvTimeout(); got != ebus.SlaveRecvTimeout*time.Microsecond {
		t.Errorf("recvTimeout() in StateRecvCmd = %v, want %v", got, ebus.SlaveRecvTimeout*time.Microsecond)
	}
}
