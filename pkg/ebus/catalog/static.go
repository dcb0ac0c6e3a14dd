// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2026 the ebusd-go authors

// Package catalog provides a minimal in-memory ebus.MessageCatalog,
// sufficient to drive a bus handler's tests and its scan/grab commands
// without a CSV-defined message configuration.
package catalog

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebusgo/ebusd/pkg/ebus"
)

// StaticMessage is a programmatically-defined ebus.Message: its master
// data is fixed at construction and its slave data is decoded as a raw
// hex dump, with no field-level interpretation.
type StaticMessage struct {
	circuit    string
	name       string
	write      bool
	passive    bool
	srcAddress byte
	dstAddress byte
	pb, sb     byte
	masterData string // hex, without address/pb/sb/len/crc
	scanAnswer string // fixed ASCII slave answer, if this is the built-in scan message

	mu         sync.Mutex
	lastMaster *ebus.SymbolBuffer
	lastSlave  *ebus.SymbolBuffer
	lastUpdate time.Time
}

// NewStaticMessage creates a message with fixed master data. masterData
// is the hex-encoded data bytes to send after PB/SB (no length or CRC).
func NewStaticMessage(circuit, name string, write, passive bool, dstAddress, pb, sb byte, masterData string) *StaticMessage {
	return &StaticMessage{
		circuit:    circuit,
		name:       name,
		write:      write,
		passive:    passive,
		dstAddress: dstAddress,
		pb:         pb,
		sb:         sb,
		masterData: masterData,
	}
}

func (m *StaticMessage) Circuit() string    { return m.circuit }
func (m *StaticMessage) Name() string       { return m.name }
func (m *StaticMessage) IsWrite() bool      { return m.write }
func (m *StaticMessage) IsPassive() bool    { return m.passive }
func (m *StaticMessage) SrcAddress() byte   { return m.srcAddress }
func (m *StaticMessage) DstAddress() byte   { return m.dstAddress }

func (m *StaticMessage) PrepareMaster(srcAddress byte, _ string) (*ebus.SymbolBuffer, error) {
	buf := ebus.NewSymbolBuffer(true)
	data := ebus.NewSymbolBuffer(false)
	if err := data.Push(srcAddress, false, false); err != nil {
		return nil, err
	}
	_ = data.Push(m.dstAddress, false, false)
	_ = data.Push(m.pb, false, false)
	_ = data.Push(m.sb, false, false)
	if err := data.ParseHex(fmt.Sprintf("%02x%s", len(m.masterData)/2, m.masterData), false); err != nil {
		return nil, err
	}
	if err := buf.AddAll(data); err != nil {
		return nil, err
	}
	return buf, nil
}

func (m *StaticMessage) PrepareSlave() (*ebus.SymbolBuffer, error) {
	if m.scanAnswer == "" {
		return nil, fmt.Errorf("%w: static message has no slave answer", ebus.ErrNotFound)
	}
	buf := ebus.NewSymbolBuffer(true)
	data := ebus.NewSymbolBuffer(false)
	payload := []byte(m.scanAnswer)
	if err := data.Push(byte(len(payload)), false, false); err != nil {
		return nil, err
	}
	for _, b := range payload {
		if err := data.Push(b, false, false); err != nil {
			return nil, err
		}
	}
	if err := buf.AddAll(data); err != nil {
		return nil, err
	}
	return buf, nil
}

// scanPB and scanSB are the primary/secondary command bytes the
// built-in scan/ident message answers on, by convention.
const (
	scanPB = 0x07
	scanSB = 0x04
)

// scanAnswerProduct and scanAnswerVersion are kept to a single
// character each so the full "ebusd.eu;<product>;<version>;100"
// identification string stays within the 16-data-byte cap the bus
// handler enforces on every slave response.
const (
	scanAnswerProduct = "g"
	scanAnswerVersion = "1"
)

// NewScanAnswerMessage creates the built-in scan/ident message for
// dstAddress: a read-only message whose slave answer is the
// fixed ebusd.eu identification string rather than decoded field data.
func NewScanAnswerMessage(dstAddress byte) *StaticMessage {
	m := NewStaticMessage("scan", "ident", false, false, dstAddress, scanPB, scanSB, "")
	m.scanAnswer = fmt.Sprintf("ebusd.eu;%s;%s;100", scanAnswerProduct, scanAnswerVersion)
	return m
}

// NewScanQueryMessage creates the built-in scan/ident message used to
// query dstAddress for its identification, with no canned answer of
// its own: suitable for registering under AddScanMessage to scan a
// slave this daemon doesn't already know the identity of.
func NewScanQueryMessage(dstAddress byte) *StaticMessage {
	return NewStaticMessage("scan", "ident", false, false, dstAddress, scanPB, scanSB, "")
}

func (m *StaticMessage) StoreLastData(master, slave *ebus.SymbolBuffer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastMaster = master
	m.lastSlave = slave
	m.lastUpdate = time.Now()
	return nil
}

func (m *StaticMessage) DecodeLastData(field int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastSlave == nil {
		return "", fmt.Errorf("%w: no data received yet", ebus.ErrEmpty)
	}
	if field >= 0 {
		return "", fmt.Errorf("%w: static message has no named fields", ebus.ErrNotFound)
	}
	return m.lastSlave.DataStr(true, true), nil
}

func (m *StaticMessage) LastUpdate() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastUpdate
}

// StaticCatalog is a fixed, programmatically-populated ebus.MessageCatalog.
type StaticCatalog struct {
	mu       sync.Mutex
	messages []*StaticMessage
	byScan   map[byte]*StaticMessage
	polls    []*StaticMessage
	pollNext int
}

// NewStaticCatalog creates an empty catalog.
func NewStaticCatalog() *StaticCatalog {
	return &StaticCatalog{byScan: make(map[byte]*StaticMessage)}
}

// Add registers a message in the catalog.
func (c *StaticCatalog) Add(m *StaticMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, m)
}

// AddScanMessage registers m as the scan message for dstAddress.
func (c *StaticCatalog) AddScanMessage(dstAddress byte, m *StaticMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byScan[dstAddress] = m
	c.messages = append(c.messages, m)
}

func (c *StaticCatalog) Find(dstAddress, pb, sb byte) ebus.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.messages {
		if m.dstAddress == dstAddress && m.pb == pb && m.sb == sb {
			return m
		}
	}
	return nil
}

func (c *StaticCatalog) FindByName(circuit, name string) ebus.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.messages {
		if m.circuit == circuit && m.name == name {
			return m
		}
	}
	return nil
}

func (c *StaticCatalog) FindAll() []ebus.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ebus.Message, len(c.messages))
	for i, m := range c.messages {
		out[i] = m
	}
	return out
}

func (c *StaticCatalog) GetScanMessage(dstAddress byte) ebus.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.byScan[dstAddress]; ok {
		return m
	}
	return nil
}

func (c *StaticCatalog) GetNextPoll() ebus.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.polls) == 0 {
		return nil
	}
	m := c.polls[c.pollNext%len(c.polls)]
	c.pollNext++
	return m
}

func (c *StaticCatalog) AddPollMessage(m ebus.Message) {
	sm, ok := m.(*StaticMessage)
	if !ok {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.polls = append(c.polls, sm)
}

func (c *StaticCatalog) InvalidateCache(dstAddress byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.messages {
		if m.dstAddress == dstAddress {
			m.mu.Lock()
			m.lastMaster = nil
			m.lastSlave = nil
			m.mu.Unlock()
		}
	}
}
