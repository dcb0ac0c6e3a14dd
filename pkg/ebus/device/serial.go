// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2026 the ebusd-go authors

package device

import (
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/ebusgo/ebusd/pkg/ebus"
)

// DefaultBaudRate is the standard eBUS line speed.
const DefaultBaudRate = 2400

// SerialDevice is a Device backed by a local tty, matching the 8-N-1
// framing and 2400 Bd line speed of a real eBUS adapter.
type SerialDevice struct {
	name     string
	baudRate int

	mu   sync.Mutex
	port serial.Port
}

// NewSerialDevice creates a serial device for name (e.g. "/dev/ttyUSB0").
// A baudRate of 0 selects DefaultBaudRate.
func NewSerialDevice(name string, baudRate int) *SerialDevice {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	return &SerialDevice{name: name, baudRate: baudRate}
}

func (d *SerialDevice) Name() string { return d.name }

func (d *SerialDevice) Open() error {
	mode := &serial.Mode{
		BaudRate: d.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(d.name, mode)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ebus.ErrDevice, d.name, err)
	}
	d.mu.Lock()
	d.port = port
	d.mu.Unlock()
	return nil
}

func (d *SerialDevice) Close() error {
	d.mu.Lock()
	port := d.port
	d.port = nil
	d.mu.Unlock()
	if port == nil {
		return nil
	}
	return port.Close()
}

func (d *SerialDevice) Send(value byte) error {
	d.mu.Lock()
	port := d.port
	d.mu.Unlock()
	if port == nil {
		return ebus.ErrDevice
	}
	_, err := port.Write([]byte{value})
	if err != nil {
		return fmt.Errorf("%w: %v", ebus.ErrSend, err)
	}
	return nil
}

func (d *SerialDevice) Recv(timeout time.Duration) (byte, error) {
	d.mu.Lock()
	port := d.port
	d.mu.Unlock()
	if port == nil {
		return 0, ebus.ErrDevice
	}
	if timeout > 0 {
		if err := port.SetReadTimeout(timeout); err != nil {
			return 0, fmt.Errorf("%w: %v", ebus.ErrDevice, err)
		}
	}
	buf := make([]byte, 1)
	n, err := port.Read(buf)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ebus.ErrDevice, err)
	}
	if n == 0 {
		return 0, ebus.ErrTimeout
	}
	return buf[0], nil
}

func (d *SerialDevice) IsValid() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.port != nil
}

func (d *SerialDevice) Latency() time.Duration { return 0 }
