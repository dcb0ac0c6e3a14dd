// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2026 the ebusd-go authors

package cmd

import (
	"fmt"

	"github.com/ebusgo/ebusd/internal/config"
	"github.com/ebusgo/ebusd/pkg/ebus/device"
)

// openDevice opens the transport described by cfg.
func openDevice(cfg config.DeviceConfig) (device.Device, error) {
	var dev device.Device
	switch cfg.Type {
	case "serial":
		if cfg.Port == "" {
			return nil, fmt.Errorf("device.port must be set for a serial device")
		}
		dev = device.NewSerialDevice(cfg.Port, cfg.Baud)
	case "tcp":
		if cfg.Address == "" {
			return nil, fmt.Errorf("device.address must be set for a tcp device")
		}
		dev = device.NewNetworkDevice(cfg.Address)
	default:
		return nil, fmt.Errorf("unknown device.type %q (want serial or tcp)", cfg.Type)
	}
	if err := dev.Open(); err != nil {
		return nil, fmt.Errorf("open %s device %s: %w", cfg.Type, dev.Name(), err)
	}
	return dev, nil
}
