// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2026 the ebusd-go authors

package cmd

import (
	"context"
	"fmt"

	"github.com/ebusgo/ebusd/internal/config"
	"github.com/spf13/cobra"
)

var scanFull bool

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan slave addresses and print their identification",
	Long: `Scan queries every known slave address for its identification data
and prints the result. By default only addresses already seen on the
bus are scanned; --full probes the slave address of every possible
master.`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().BoolVar(&scanFull, "full", false, "Scan the slave of every possible master, not just those already seen")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	h, dev, err := buildHandler(cfg)
	if err != nil {
		return err
	}
	defer dev.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	result, err := h.ScanAndWait(scanFull)
	if err != nil {
		return err
	}
	fmt.Print(result)
	return nil
}
