// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2026 the ebusd-go authors

package bushandler

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ebusgo/ebusd/pkg/ebus"
)

// SendAndWait submits master for active transmission and blocks until
// the handler's run loop has driven it to completion, returning the
// slave's reply. It retries up to the configured FailedSendRetries
// times, except when the failure is one no retry can fix (no signal on
// the bus, a send failure, or a device error).
func (h *Handler) SendAndWait(master *ebus.SymbolBuffer) (*ebus.SymbolBuffer, error) {
	var lastErr error
	for attempt := 0; attempt <= h.failedSendRetries; attempt++ {
		slave := ebus.NewSymbolBuffer(true)
		req := NewActiveRequest(master, slave)
		h.nextRequests.Push(req)
		h.finishedRequests.Remove(req, true)

		lastErr = req.Result()
		if lastErr == nil {
			h.catalog.InvalidateCache(master.At(1))
			return slave, nil
		}
		if errors.Is(lastErr, ebus.ErrNoSignal) || errors.Is(lastErr, ebus.ErrSend) || errors.Is(lastErr, ebus.ErrDevice) {
			break
		}
	}
	return nil, lastErr
}

// scanSlaves lists the slave addresses a scan should probe: every known
// master's slave address if full, otherwise only those already seen on
// the bus.
func (h *Handler) scanSlaves(full bool) []byte {
	var slaves []byte
	for m := 0; m < 256; m++ {
		master := byte(m)
		if !ebus.IsMasterAddress(master) || master == h.ownMaster {
			continue
		}
		if !full && !h.addresses.Seen(master) {
			continue
		}
		slaves = append(slaves, ebus.SlaveAddress(master))
	}
	return slaves
}

// StartScan queues a scan of every slave address returned by
// scanSlaves and returns immediately; results land in the address
// table as they complete.
func (h *Handler) StartScan(full bool) error {
	slaves := h.scanSlaves(full)
	if len(slaves) == 0 {
		return ebus.ErrEmpty
	}
	scanMsg := h.catalog.GetScanMessage(slaves[0])
	if scanMsg == nil {
		return ebus.ErrNotFound
	}
	for _, s := range slaves {
		h.addresses.MarkScanStarted(s)
	}
	req := NewScanRequest(h.catalog, scanMsg, nil, slaves,
		func(addr byte, result string) { h.addresses.MarkScanDone(addr, result) },
		func() { h.log.Infof("scan finished") })
	if err := req.Prepare(h.ownMaster); err != nil {
		return err
	}
	h.nextRequests.Push(req)
	return nil
}

// ScanAndWait behaves like StartScan but blocks until every slave has
// been scanned and returns the combined result text.
func (h *Handler) ScanAndWait(full bool) (string, error) {
	slaves := h.scanSlaves(full)
	if len(slaves) == 0 {
		return "", ebus.ErrEmpty
	}
	scanMsg := h.catalog.GetScanMessage(slaves[0])
	if scanMsg == nil {
		return "", ebus.ErrNotFound
	}
	for _, s := range slaves {
		h.addresses.MarkScanStarted(s)
	}

	done := make(chan struct{})
	var sb strings.Builder
	req := NewScanRequest(h.catalog, scanMsg, nil, slaves,
		func(addr byte, result string) {
			h.addresses.MarkScanDone(addr, result)
			fmt.Fprintf(&sb, "%02x: %s\n", addr, result)
		},
		func() { close(done) })
	if err := req.Prepare(h.ownMaster); err != nil {
		return "", err
	}
	h.nextRequests.Push(req)
	<-done
	return sb.String(), nil
}

// GetNextScanAddress returns the slave address of the next seen master
// that has not yet been scanned, if any.
func (h *Handler) GetNextScanAddress() (byte, bool) {
	for _, addr := range h.addresses.SeenAddresses() {
		if !ebus.IsMasterAddress(addr) || addr == h.ownMaster {
			continue
		}
		slave := ebus.SlaveAddress(addr)
		if !h.addresses.ScanDone(slave) {
			return slave, true
		}
	}
	return 0, false
}

// SetScanConfigLoaded records that a configuration file has been loaded
// to interpret traffic for addr.
func (h *Handler) SetScanConfigLoaded(addr byte, file string) {
	h.addresses.MarkLoadStarted(addr)
	h.addresses.MarkLoadDone(addr, file)
}

// HasSignal reports whether the bus is currently out of StateNoSignal.
func (h *Handler) HasSignal() bool { return h.signalOK.Load() }

// SymbolRate returns the most recently measured symbols-per-second
// rate on the bus.
func (h *Handler) SymbolRate() uint32 { return h.symPerSec.Load() }

// MaxSymbolRate returns the highest symbols-per-second rate measured
// since the handler started.
func (h *Handler) MaxSymbolRate() uint32 { return h.maxSymPerSec.Load() }

// MasterCount returns the number of distinct master addresses seen on
// the bus, including this daemon's own.
func (h *Handler) MasterCount() uint32 { return h.masterCount.Load() }

// EnableGrab changes what future passively observed messages are
// captured for later review. Switching on from GrabNone starts from an
// empty capture set rather than replaying whatever was grabbed the
// last time grabbing was enabled.
func (h *Handler) EnableGrab(mode GrabMode) {
	if h.grabber.Mode() == GrabNone && mode != GrabNone {
		h.grabber.Reset()
	}
	h.grabber.SetMode(mode)
}

// FormatGrabResult renders every captured message header and data seen
// so far.
func (h *Handler) FormatGrabResult() string { return h.grabber.Format() }

// FormatScanResult renders the scan result recorded for a single slave
// address, if any.
func (h *Handler) FormatScanResult(addr byte) (string, bool) {
	return h.addresses.ScanResult(addr)
}

// FormatAllScanResults renders the recorded scan result of every seen
// address, one line per address, in ascending address order. Results
// for addresses never seen on the bus are not included.
func (h *Handler) FormatAllScanResults() string {
	var sb strings.Builder
	for _, addr := range h.addresses.SeenAddresses() {
		if result, ok := h.addresses.ScanResult(addr); ok {
			fmt.Fprintf(&sb, "%02x: %s\n", addr, result)
		}
	}
	return sb.String()
}

// SeenEntry describes one address observed on the bus, for callers that
// want structured data rather than FormatSeenInfo's rendered text.
type SeenEntry struct {
	Address      byte
	IsMaster     bool
	MasterNumber int
	ScanDone     bool
	ScanResult   string
	LoadedFile   string
}

// SeenEntries returns every address seen on the bus, in ascending
// address order, with its derived master number and scan/load status.
func (h *Handler) SeenEntries() []SeenEntry {
	addrs := h.addresses.SeenAddresses()
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	entries := make([]SeenEntry, len(addrs))
	for i, addr := range addrs {
		e := SeenEntry{Address: addr}
		if ebus.IsMasterAddress(addr) {
			e.IsMaster = true
			e.MasterNumber = int(ebus.MasterNumber(addr))
		}
		if result, ok := h.addresses.ScanResult(addr); ok {
			e.ScanDone = true
			e.ScanResult = result
		}
		if file, ok := h.addresses.LoadedFile(addr); ok {
			e.LoadedFile = file
		}
		entries[i] = e
	}
	return entries
}

// FormatSeenInfo renders every address seen on the bus, its derived
// master number, and its scan/load status.
func (h *Handler) FormatSeenInfo() string {
	addrs := h.addresses.SeenAddresses()
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	var sb strings.Builder
	for _, addr := range addrs {
		fmt.Fprintf(&sb, "%02x", addr)
		if ebus.IsMasterAddress(addr) {
			fmt.Fprintf(&sb, " master #%d", ebus.MasterNumber(addr))
		}
		if h.addresses.ScanDone(addr) {
			sb.WriteString(" scanned")
		}
		if file, ok := h.addresses.LoadedFile(addr); ok {
			fmt.Fprintf(&sb, " loaded=%s", file)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// Clear drains every queued request with RESULT_ERR_NO_SIGNAL-style
// notification and resets the state machine to StateNoSignal, as if the
// device had just been reconnected.
func (h *Handler) Clear() {
	h.drainOnNoSignal()
	for {
		if _, ok := h.finishedRequests.Pop(0); !ok {
			break
		}
	}
	h.currentRequest = nil
	h.command = ebus.NewSymbolBuffer(false)
	h.response = ebus.NewSymbolBuffer(false)
	h.setState(StateNoSignal, nil)
}
