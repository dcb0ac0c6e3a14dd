// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2026 the ebusd-go authors

package bushandler

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/ebusgo/ebusd/pkg/ebus"
	"github.com/ebusgo/ebusd/pkg/ebus/catalog"
	"github.com/ebusgo/ebusd/pkg/ebus/device"
)

// badCrcMasterFrame builds a master frame identical to crcFrame except
// its trailing CRC symbol is deliberately wrong, to script a foreign
// sender's corrupted first attempt.
func badCrcMasterFrame(t *testing.T, hex string) []byte {
	t.Helper()
	buf := ebus.NewSymbolBuffer(true)
	for i := 0; i < len(hex); i += 2 {
		v, err := strconv.ParseUint(hex[i:i+2], 16, 8)
		if err != nil {
			t.Fatalf("parse hex %q: %v", hex, err)
		}
		if err := buf.Push(byte(v), false, true); err != nil {
			t.Fatalf("Push: %v", err)
		}
	}
	// Flipping every bit of the correct CRC guarantees a mismatch.
	if err := buf.Push(buf.CRC()^0xff, false, false); err != nil {
		t.Fatalf("Push crc: %v", err)
	}
	return buf.Bytes()
}

// TestSendAndWaitBroadcastWrite drives a broadcast write end to end: no
// participant ACKs a broadcast, so the request completes successfully
// as soon as the master frame itself has gone out, with no slave reply.
func TestSendAndWaitBroadcastWrite(t *testing.T) {
	cat := catalog.NewStaticCatalog()
	msg := catalog.NewStaticMessage("test", "broadcast", true, false, ebus.BROADCAST, 0xb5, 0x04, "07")
	cat.Add(msg)

	dev := device.NewLoopbackDevice()
	if err := dev.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	master, err := msg.PrepareMaster(testOwnMaster, "")
	if err != nil {
		t.Fatalf("PrepareMaster() error = %v", err)
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
	if slave.Size() != 0 {
		t.Errorf("slave.Size() = %d, want 0 (broadcast gets no reply)", slave.Size())
	}
}

// TestAutoSynAcquisition exercises cold-start AUTO-SYN generation: with
// no other participant on the bus, a handler configured to generate
// SYN eventually sends one itself, sees it echoed uncontested, and
// commits to the generator role.
func TestAutoSynAcquisition(t *testing.T) {
	dev := device.NewLoopbackDevice()
	if err := dev.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	sentSyn := make(chan struct{}, 1)
	dev.OnSend = func(b byte) {
		if b == ebus.SYN {
			select {
			case sentSyn <- struct{}{}:
			default:
			}
		}
	}

	cfg := DefaultConfig(testOwnMaster)
	cfg.PollInterval = 0
	cfg.GenerateSyn = true
	h := New(dev, catalog.NewStaticCatalog(), cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	select {
	case <-sentSyn:
	case <-time.After(2 * time.Second):
		cancel()
		<-done
		t.Fatal("handler never generated a SYN from cold start")
	}

	// Let the self-echo round-trip settle before stopping the loop.
	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done

	if h.state != StateReady {
		t.Errorf("state = %v, want StateReady", h.state)
	}
	if want := ebus.SynTimeout * time.Microsecond; h.generateSynInterval != want {
		t.Errorf("generateSynInterval = %v, want %v", h.generateSynInterval, want)
	}
	if h.remainLockCount != 0 {
		t.Errorf("remainLockCount = %d, want 0", h.remainLockCount)
	}
	if !h.sawOwnSyn {
		t.Error("sawOwnSyn = false, want true")
	}
}

// TestPassiveCrcErrorThenRetry watches a foreign master's command fail
// CRC validation, get NAK'd, and succeed on resend, ending in exactly
// one dispatched passive decode and no active notification (there is
// no request of our own in flight to notify).
func TestPassiveCrcErrorThenRetry(t *testing.T) {
	cat := catalog.NewStaticCatalog()
	dev := device.NewLoopbackDevice()
	if err := dev.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	h := newTestHandler(t, dev, cat)
	h.EnableGrab(GrabAll)

	const masterHex = "1008b5110101" // foreign master 0x10 to slave 0x08, read, 1 data byte
	dev.Inject(ebus.SYN)              // kick into bs_ready
	dev.InjectAll(badCrcMasterFrame(t, masterHex))
	dev.Inject(ebus.NAK) // addressed slave rejects the bad CRC
	dev.InjectAll(crcFrame(t, masterHex))
	dev.Inject(ebus.ACK) // good resend accepted
	dev.InjectAll(crcFrame(t, "02abcd")) // slave's response
	dev.Inject(ebus.ACK)                 // master acks the response

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for len(h.grabber.Result()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	result := h.grabber.Result()
	if len(result) != 1 {
		t.Fatalf("grabbed %d entries, want 1: %v", len(result), result)
	}
}

// TestScanSingleSlave drives a one-slave identification scan end to
// end, the same way StartScan/ScanAndWait would for just that address,
// and checks the address table records it as seen and scanned.
func TestScanSingleSlave(t *testing.T) {
	cat := catalog.NewStaticCatalog()
	scanMsg := catalog.NewStaticMessage("scan", "ident", false, false, testSlave, 0x07, 0x04, "")
	cat.AddScanMessage(testSlave, scanMsg)

	dev := device.NewLoopbackDevice()
	if err := dev.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	h := newTestHandler(t, dev, cat)
	h.addresses.MarkScanStarted(testSlave)

	master, err := scanMsg.PrepareMaster(testOwnMaster, "")
	if err != nil {
		t.Fatalf("PrepareMaster() error = %v", err)
	}
	masterLen := master.Size()
	sent := 0
	identity := crcFrame(t, "04aabbccdd")

	dev.OnSend = func(byte) {
		sent++
		if sent == masterLen {
			dev.Inject(ebus.ACK)
			dev.InjectAll(identity)
		}
	}

	done := make(chan struct{})
	var result string
	req := NewScanRequest(cat, scanMsg, nil, []byte{testSlave},
		func(addr byte, r string) {
			result = r
			h.addresses.MarkScanDone(addr, r)
		},
		func() { close(done) })
	if err := req.Prepare(testOwnMaster); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	h.nextRequests.Push(req)
	dev.Inject(ebus.SYN) // kick the state machine straight to bs_ready

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scan never finished")
	}

	if result != "04aabbccdd" {
		t.Errorf("scan result = %q, want %q", result, "04aabbccdd")
	}
	if !h.addresses.Seen(testSlave) {
		t.Error("testSlave not marked seen")
	}
	if !h.addresses.ScanDone(testSlave) {
		t.Error("testSlave not marked scan done")
	}
}

// TestPassiveScanAnswer drives the full passive-answer path end to
// end: a foreign master queries this daemon's own slave address for
// its identity, the handler ACKs the command, sends back the built-in
// scan/ident answer, and sees that ACK'd in turn, ending back at
// StateReady with the answer recorded against the catalog message.
func TestPassiveScanAnswer(t *testing.T) {
	cat := catalog.NewStaticCatalog()
	ownSlave := ebus.SlaveAddress(testOwnMaster)
	answerMsg := catalog.NewScanAnswerMessage(ownSlave)
	cat.Add(answerMsg)
	queryMsg := catalog.NewScanQueryMessage(ownSlave)

	dev := device.NewLoopbackDevice()
	if err := dev.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	const foreignMaster byte = 0x10
	master, err := queryMsg.PrepareMaster(foreignMaster, "")
	if err != nil {
		t.Fatalf("PrepareMaster() error = %v", err)
	}
	reply, err := answerMsg.PrepareSlave()
	if err != nil {
		t.Fatalf("PrepareSlave() error = %v", err)
	}
	wantSent := 1 + reply.Size() // our ACK of the command, then the answer itself

	cfg := DefaultConfig(testOwnMaster)
	cfg.PollInterval = 0
	cfg.Answer = true
	h := New(dev, cat, cfg, nil)

	sent := 0
	dev.OnSend = func(byte) {
		sent++
		if sent == wantSent {
			dev.Inject(ebus.ACK) // foreign master accepts our answer
		}
	}

	dev.Inject(ebus.SYN) // kick the state machine straight to bs_ready
	dev.InjectAll(master.Bytes())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for h.state != StateReady && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if h.state != StateReady {
		t.Fatalf("state = %v, want StateReady", h.state)
	}
	decoded, err := answerMsg.DecodeLastData(-1)
	if err != nil {
		t.Fatalf("DecodeLastData() error = %v", err)
	}
	if want := "1065627573642e65753b673b313b313030"; decoded != want {
		t.Errorf("decoded answer = %q, want %q", decoded, want)
	}
}
