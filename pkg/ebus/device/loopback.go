// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2026 the ebusd-go authors

package device

import (
	"time"

	"github.com/ebusgo/ebusd/pkg/ebus"
)

// LoopbackDevice is an in-memory Device for tests. Every Send is echoed
// back to the next Recv, exactly as the real half-duplex bus echoes a
// sender's own symbols. Script additional incoming symbols (as if sent
// by another bus participant) with Inject.
type LoopbackDevice struct {
	open bool
	in   chan byte

	// OnSend, if set, is called synchronously with every value sent,
	// after it has been queued for self-echo. Tests use it to script
	// another participant's reaction (typically more Inject calls).
	OnSend func(value byte)
}

// NewLoopbackDevice creates a closed loopback device.
func NewLoopbackDevice() *LoopbackDevice {
	return &LoopbackDevice{in: make(chan byte, 256)}
}

func (d *LoopbackDevice) Name() string { return "loopback" }

func (d *LoopbackDevice) Open() error {
	d.open = true
	return nil
}

func (d *LoopbackDevice) Close() error {
	d.open = false
	return nil
}

func (d *LoopbackDevice) Send(value byte) error {
	if !d.open {
		return ebus.ErrDevice
	}
	d.in <- value
	if d.OnSend != nil {
		d.OnSend(value)
	}
	return nil
}

func (d *LoopbackDevice) Recv(timeout time.Duration) (byte, error) {
	if !d.open {
		return 0, ebus.ErrDevice
	}
	if timeout <= 0 {
		return <-d.in, nil
	}
	select {
	case b := <-d.in:
		return b, nil
	case <-time.After(timeout):
		return 0, ebus.ErrTimeout
	}
}

func (d *LoopbackDevice) IsValid() bool { return d.open }

func (d *LoopbackDevice) Latency() time.Duration { return 0 }

// Inject queues value as if it had arrived from another bus
// participant, without requiring a matching Send.
func (d *LoopbackDevice) Inject(value byte) {
	d.in <- value
}

// InjectAll queues every byte of values in order.
func (d *LoopbackDevice) InjectAll(values []byte) {
	for _, v := range values {
		d.in <- v
	}
}
