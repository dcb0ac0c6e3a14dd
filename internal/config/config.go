// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2026 the ebusd-go authors

// Package config loads the daemon's YAML configuration file, falling
// back to defaults when the file is absent.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DeviceConfig selects and configures the transport the bus handler
// reads and writes symbols over.
type DeviceConfig struct {
	// Type is "serial" or "tcp".
	Type string `yaml:"type"`
	// Serial fields, used when Type is "serial".
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
	// Network fields, used when Type is "tcp".
	Address string `yaml:"address"`
}

// HandlerConfig mirrors the bus handler's configuration fields, named
// after the units they're expressed in the same way the underlying
// protocol constants are (microseconds for bus timing, seconds for the
// poll interval).
type HandlerConfig struct {
	OwnMasterAddress    byte `yaml:"own_address"`
	Answer              bool `yaml:"answer"`
	GenerateSyn         bool `yaml:"generate_syn"`
	LockCount           int  `yaml:"lock_count"`
	BusLostRetries      int  `yaml:"bus_lost_retries"`
	FailedSendRetries   int  `yaml:"failed_send_retries"`
	TransferLatencyUs   int  `yaml:"transfer_latency_us"`
	BusAcquireTimeoutUs int  `yaml:"bus_acquire_timeout_us"`
	SlaveRecvTimeoutUs  int  `yaml:"slave_recv_timeout_us"`
	PollIntervalS       int  `yaml:"poll_interval_s"`
}

// Durations converts the microsecond/second scalars read from YAML
// into the time.Duration fields bushandler.Config expects.
func (c HandlerConfig) Durations() (transferLatency, busAcquireTimeout, slaveRecvTimeout, pollInterval time.Duration) {
	transferLatency = time.Duration(c.TransferLatencyUs) * time.Microsecond
	busAcquireTimeout = time.Duration(c.BusAcquireTimeoutUs) * time.Microsecond
	slaveRecvTimeout = time.Duration(c.SlaveRecvTimeoutUs) * time.Microsecond
	pollInterval = time.Duration(c.PollIntervalS) * time.Second
	return
}

// LoggingConfig controls where and how verbosely the daemon logs.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, notice, error
	Path  string `yaml:"path"`  // empty means stderr
}

// Config holds the daemon's full configuration.
type Config struct {
	Device  DeviceConfig  `yaml:"device"`
	Handler HandlerConfig `yaml:"handler"`
	Logging LoggingConfig `yaml:"logging"`
}

// Default returns a Config with the daemon's conventional defaults: a
// serial device on /dev/ttyUSB0, master address 0x00, auto lock-count
// detection, and info-level logging to stderr.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			Type: "serial",
			Port: "/dev/ttyUSB0",
			Baud: 2400,
		},
		Handler: HandlerConfig{
			OwnMasterAddress:  0x00,
			Answer:            false,
			GenerateSyn:       false,
			LockCount:         0,
			BusLostRetries:    2,
			FailedSendRetries: 2,
			PollIntervalS:     5,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML config file at path, starting from Default and
// overriding whichever keys are present. A missing file is not an
// error: Load returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
