// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2026 the ebusd-go authors

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ebusgo/ebusd/internal/config"
	"github.com/ebusgo/ebusd/pkg/bushandler"
	"github.com/spf13/cobra"
)

var (
	grabAll bool
	grabOff bool
)

var grabCmd = &cobra.Command{
	Use:   "grab",
	Short: "Capture passively observed messages",
	Long: `Grab runs the bus handler and records every passively observed
message it sees, printing the accumulated result when interrupted.
By default only messages with no matching catalog entry are recorded;
--all records every message. --off disables recording entirely.`,
	RunE: runGrab,
}

func init() {
	grabCmd.Flags().BoolVar(&grabAll, "all", false, "Record every observed message, not just unknown ones")
	grabCmd.Flags().BoolVar(&grabOff, "off", false, "Disable grabbing")
	rootCmd.AddCommand(grabCmd)
}

func runGrab(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	h, dev, err := buildHandler(cfg)
	if err != nil {
		return err
	}
	defer dev.Close()

	mode := bushandler.GrabUnknown
	switch {
	case grabOff:
		mode = bushandler.GrabNone
	case grabAll:
		mode = bushandler.GrabAll
	}
	h.EnableGrab(mode)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err = h.Run(ctx)
	fmt.Print(h.FormatGrabResult())
	return err
}
