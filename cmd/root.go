// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2026 the ebusd-go authors

package cmd

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "ebusd",
	Short: "eBUS two-wire home-heating bus daemon",
	Long: `ebusd arbitrates, sends, and passively decodes traffic on an eBUS
two-wire serial bus shared by heating, ventilation, and hot-water
appliances.

Connection is configured in the YAML config file (--config), which
selects a serial port or a TCP gateway and tunes the bus handler's
retry counts, arbitration lock count, and polling interval.`,
	Version: "0.1.0",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "ebusd.yaml", "Path to YAML config file")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
