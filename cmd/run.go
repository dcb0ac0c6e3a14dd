// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2026 the ebusd-go authors

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ebusgo/ebusd/internal/config"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bus handler as a daemon",
	Long: `Run starts the bus handler and blocks, arbitrating for the bus,
answering messages addressed to this daemon if configured to, and
polling catalog messages on an interval, until interrupted.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	h, dev, err := buildHandler(cfg)
	if err != nil {
		return err
	}
	defer dev.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return h.Run(ctx)
}
