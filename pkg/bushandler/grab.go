// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2026 the ebusd-go authors

package bushandler

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ebusgo/ebusd/pkg/ebus"
)

// GrabMode selects which passively observed messages Grabber records.
type GrabMode int

const (
	// GrabNone records nothing.
	GrabNone GrabMode = iota
	// GrabUnknown records only messages with no matching catalog entry.
	GrabUnknown
	// GrabAll records every completed message, known or not.
	GrabAll
)

// grabHeaderMaxDataLen is how many of the trailing master data bytes are
// folded into the capture key, beyond the fixed QQ ZZ PB SB NN header.
const grabHeaderMaxDataLen = 4

// Grabber records passively observed master data (and any slave reply),
// keyed by a hex prefix of source, destination, primary/secondary command and
// length bytes (plus up to a few leading data bytes), so that repeated
// unrecognized traffic can be reported back to an operator for adding
// to the message catalog.
type Grabber struct {
	mu      sync.Mutex
	mode    GrabMode
	grabbed map[string]string
}

// NewGrabber creates a Grabber in GrabNone mode.
func NewGrabber() *Grabber {
	return &Grabber{grabbed: make(map[string]string)}
}

// SetMode changes what future completed messages are recorded.
func (g *Grabber) SetMode(mode GrabMode) {
	g.mu.Lock()
	g.mode = mode
	g.mu.Unlock()
}

// Mode returns the current grab mode.
func (g *Grabber) Mode() GrabMode {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mode
}

// Record captures master (and any slave reply) under the mode's rules,
// if this traffic matched a known message (known=true) or not.
func (g *Grabber) Record(master, slave *ebus.SymbolBuffer, known bool) {
	g.mu.Lock()
	mode := g.mode
	g.mu.Unlock()
	if mode == GrabNone || (mode == GrabUnknown && known) {
		return
	}
	key := grabKey(master)
	if key == "" {
		return
	}
	value := master.DataStr(true, false)
	if slave != nil && slave.Size() > 0 {
		value += " / " + slave.DataStr(true, false)
	}
	g.mu.Lock()
	g.grabbed[key] = value
	g.mu.Unlock()
}

// grabKey builds the capture key: source, destination, pb, sb, length
// and up to grabHeaderMaxDataLen data bytes, in hex.
func grabKey(master *ebus.SymbolBuffer) string {
	if master.Size() < 5 {
		return ""
	}
	n := master.Size()
	dataLen := int(master.At(4))
	take := dataLen
	if take > grabHeaderMaxDataLen {
		take = grabHeaderMaxDataLen
	}
	if 5+take > n-1 { // leave the trailing CRC symbol out
		take = n - 1 - 5
		if take < 0 {
			take = 0
		}
	}
	key := ""
	for i := 0; i < 5+take; i++ {
		key += fmt.Sprintf("%02x", master.At(i))
	}
	return key
}

// Result returns a copy of every captured entry, keyed by the hex header
// described in grabKey.
func (g *Grabber) Result() map[string]string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[string]string, len(g.grabbed))
	for k, v := range g.grabbed {
		out[k] = v
	}
	return out
}

// Format renders the captured entries as sorted "header: value" lines.
func (g *Grabber) Format() string {
	result := g.Result()
	keys := make([]string, 0, len(result))
	for k := range result {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := ""
	for _, k := range keys {
		out += k + ": " + result[k] + "\n"
	}
	return out
}

// Reset clears all captured entries without changing the mode.
func (g *Grabber) Reset() {
	g.mu.Lock()
	g.grabbed = make(map[string]string)
	g.mu.Unlock()
}
