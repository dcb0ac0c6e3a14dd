// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2026 the ebusd-go authors

package device

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/ebusgo/ebusd/pkg/ebus"
)

// networkLatency is the expected one-way transfer latency Latency
// reports for a remote eBUS gateway, the headroom a real TCP hop needs
// on top of the fixed per-symbol timeouts.
const networkLatency = 10 * time.Millisecond

// NetworkDevice is a Device backed by a TCP connection to a remote eBUS
// gateway (e.g. an ebusd-compatible network adapter).
type NetworkDevice struct {
	addr string

	mu   sync.Mutex
	conn net.Conn
}

// NewNetworkDevice creates a network device for addr ("host:port").
func NewNetworkDevice(addr string) *NetworkDevice {
	return &NetworkDevice{addr: addr}
}

func (d *NetworkDevice) Name() string { return d.addr }

func (d *NetworkDevice) Open() error {
	conn, err := net.DialTimeout("tcp", d.addr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("%w: connect %s: %v", ebus.ErrDevice, d.addr, err)
	}
	d.mu.Lock()
	d.conn = conn
	d.mu.Unlock()
	return nil
}

func (d *NetworkDevice) Close() error {
	d.mu.Lock()
	conn := d.conn
	d.conn = nil
	d.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (d *NetworkDevice) Send(value byte) error {
	d.mu.Lock()
	conn := d.conn
	d.mu.Unlock()
	if conn == nil {
		return ebus.ErrDevice
	}
	if _, err := conn.Write([]byte{value}); err != nil {
		return fmt.Errorf("%w: %v", ebus.ErrSend, err)
	}
	return nil
}

func (d *NetworkDevice) Recv(timeout time.Duration) (byte, error) {
	d.mu.Lock()
	conn := d.conn
	d.mu.Unlock()
	if conn == nil {
		return 0, ebus.ErrDevice
	}
	if timeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return 0, fmt.Errorf("%w: %v", ebus.ErrDevice, err)
		}
	} else {
		_ = conn.SetReadDeadline(time.Time{})
	}
	buf := make([]byte, 1)
	n, err := conn.Read(buf)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return 0, ebus.ErrTimeout
		}
		return 0, fmt.Errorf("%w: %v", ebus.ErrDevice, err)
	}
	if n == 0 {
		return 0, ebus.ErrTimeout
	}
	return buf[0], nil
}

func (d *NetworkDevice) IsValid() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conn != nil
}

func (d *NetworkDevice) Latency() time.Duration { return networkLatency }
