// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2026 the ebusd-go authors

package cmd

import (
	"fmt"
	"os"

	"github.com/ebusgo/ebusd/internal/config"
	"github.com/ebusgo/ebusd/internal/elog"
	"github.com/ebusgo/ebusd/pkg/bushandler"
	"github.com/ebusgo/ebusd/pkg/ebus"
	"github.com/ebusgo/ebusd/pkg/ebus/catalog"
	"github.com/ebusgo/ebusd/pkg/ebus/device"
)

// newLogger builds the elog.Logger described by cfg, writing to a file
// when one is configured and to stderr otherwise.
func newLogger(cfg config.LoggingConfig) (*elog.Logger, error) {
	level, ok := elog.ParseLevel(cfg.Level)
	if !ok {
		level = elog.LevelInfo
	}
	w := os.Stderr
	if cfg.Path != "" {
		f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", cfg.Path, err)
		}
		return elog.New(f, level), nil
	}
	return elog.New(w, level), nil
}

// buildHandler opens the device described by cfg and returns a Handler
// ready to Run. The caller owns closing dev once the handler stops.
func buildHandler(cfg *config.Config) (*bushandler.Handler, device.Device, error) {
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}
	dev, err := openDevice(cfg.Device)
	if err != nil {
		return nil, nil, err
	}
	cat := catalog.NewStaticCatalog()
	cat.Add(catalog.NewScanAnswerMessage(ebus.SlaveAddress(cfg.Handler.OwnMasterAddress)))
	for m := 0; m < 256; m++ {
		master := byte(m)
		if !ebus.IsMasterAddress(master) || master == cfg.Handler.OwnMasterAddress {
			continue
		}
		slave := ebus.SlaveAddress(master)
		cat.AddScanMessage(slave, catalog.NewScanQueryMessage(slave))
	}
	transferLatency, busAcquireTimeout, slaveRecvTimeout, pollInterval := cfg.Handler.Durations()
	hcfg := bushandler.Config{
		OwnMasterAddress:  cfg.Handler.OwnMasterAddress,
		Answer:            cfg.Handler.Answer,
		GenerateSyn:       cfg.Handler.GenerateSyn,
		LockCount:         cfg.Handler.LockCount,
		BusLostRetries:    cfg.Handler.BusLostRetries,
		FailedSendRetries: cfg.Handler.FailedSendRetries,
		TransferLatency:   transferLatency,
		BusAcquireTimeout: busAcquireTimeout,
		SlaveRecvTimeout:  slaveRecvTimeout,
		PollInterval:      pollInterval,
	}
	h := bushandler.New(dev, cat, hcfg, log)
	return h, dev, nil
}
