// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2026 the ebusd-go authors

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/ebusgo/ebusd/internal/config"
	"github.com/ebusgo/ebusd/pkg/bushandler"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Interactive TUI showing live bus activity",
	Long: `Monitor runs the bus handler and shows a live-updating list of every
address seen on the bus, its derived master number, and scan status.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
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

	p := tea.NewProgram(newMonitorModel(h), tea.WithAltScreen())
	_, err = p.Run()
	return err
}

const monitorTickInterval = 500 * time.Millisecond

var monitorTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))

type monitorTickMsg time.Time

// seenItem adapts a bushandler.SeenEntry to list.Item for the address
// list.
type seenItem bushandler.SeenEntry

func (i seenItem) Title() string {
	if i.IsMaster {
		return fmt.Sprintf("%02X  master #%d", i.Address, i.MasterNumber)
	}
	return fmt.Sprintf("%02X  slave", i.Address)
}

func (i seenItem) Description() string {
	switch {
	case i.ScanDone:
		return "scanned: " + i.ScanResult
	case i.LoadedFile != "":
		return "loaded: " + i.LoadedFile
	default:
		return "seen, not scanned"
	}
}

func (i seenItem) FilterValue() string { return fmt.Sprintf("%02x", i.Address) }

type monitorModel struct {
	h        *bushandler.Handler
	addrList list.Model
	width    int
	height   int
}

func newMonitorModel(h *bushandler.Handler) monitorModel {
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	delegate.SetHeight(2)
	addrList := list.New([]list.Item{}, delegate, 40, 20)
	addrList.Title = "Addresses seen on the bus"
	addrList.SetShowStatusBar(false)
	addrList.SetShowHelp(false)

	return monitorModel{h: h, addrList: addrList}
}

func (m monitorModel) Init() tea.Cmd {
	return monitorTick()
}

func monitorTick() tea.Cmd {
	return tea.Tick(monitorTickInterval, func(t time.Time) tea.Msg { return monitorTickMsg(t) })
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.addrList.SetSize(m.width, m.height-4)
	case monitorTickMsg:
		m.updateAddrList()
		return m, monitorTick()
	}

	var cmd tea.Cmd
	m.addrList, cmd = m.addrList.Update(msg)
	return m, cmd
}

func (m *monitorModel) updateAddrList() {
	entries := m.h.SeenEntries()
	items := make([]list.Item, len(entries))
	for i, e := range entries {
		items[i] = seenItem(e)
	}
	m.addrList.SetItems(items)
}

func (m monitorModel) View() string {
	return monitorTitleStyle.Render("eBUS monitor") + "\n\n" + m.addrList.View()
}
