// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// adbfsm-stats attaches to a running adbfsm mount's diagnostics socket
// and renders cache occupancy, hit/miss counters, and orphan backlog
// as a live-updating terminal view, polling every 500ms.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/pflag"

	"github.com/mrizaln/adbfsm/internal/diag"
)

const pollInterval = 500 * time.Millisecond

// keyMap is the stats TUI's sole key binding: quit. A single binding
// still goes through bubbles/key rather than a raw string switch so
// adding bindings later (pause polling, jump refresh) is a KeyMap
// field away rather than a rewrite.
type keyMap struct {
	Quit key.Binding
}

var defaultKeyMap = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c", "esc"),
		key.WithHelp("q", "quit"),
	),
}

func main() {
	var (
		socketPath string
		help       bool
	)

	flagSet := pflag.NewFlagSet("adbfsm-stats", pflag.ContinueOnError)
	flagSet.StringVar(&socketPath, "socket", "", "path to the mount's diagnostics socket (required)")
	flagSet.BoolVarP(&help, "help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return
		}
		fmt.Fprintf(os.Stderr, "adbfsm-stats: %v\n", err)
		os.Exit(1)
	}
	if help {
		flagSet.PrintDefaults()
		return
	}
	if socketPath == "" {
		fmt.Fprintln(os.Stderr, "adbfsm-stats: --socket is required")
		os.Exit(1)
	}

	program := tea.NewProgram(newModel(socketPath))
	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "adbfsm-stats: %v\n", err)
		os.Exit(1)
	}
}

type model struct {
	socketPath string
	table      table.Model
	err        error
}

func newModel(socketPath string) model {
	columns := []table.Column{
		{Title: "metric", Width: 18},
		{Title: "value", Width: 20},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(nil),
		table.WithFocused(false),
		table.WithHeight(len(metricLabels)),
	)
	t.SetStyles(tableStyles())
	return model{socketPath: socketPath, table: t}
}

// metricLabels fixes the row order rendered in the table; statusRows
// below must produce values in the same order.
var metricLabels = []string{
	"mountpoint", "uptime", "cache", "inflight fills",
	"orphan pages", "hits", "misses", "hit rate", "fill errors",
}

func tableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.Bold(true).BorderBottom(true)
	styles.Selected = lipgloss.NewStyle()
	return styles
}

type statusMsg struct {
	status diag.StatusResponse
	err    error
}

func (m model) Init() tea.Cmd {
	return pollOnce(m.socketPath)
}

func pollOnce(socketPath string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		status, err := diag.Query(ctx, socketPath)
		return statusMsg{status: status, err: err}
	}
}

func scheduleNextPoll(socketPath string) tea.Cmd {
	return tea.Tick(pollInterval, func(time.Time) tea.Msg {
		return pollOnce(socketPath)()
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, defaultKeyMap.Quit) {
			return m, tea.Quit
		}

	case statusMsg:
		m.err = msg.err
		if msg.err == nil {
			m.table.SetRows(statusRows(msg.status))
		}
		return m, scheduleNextPoll(m.socketPath)
	}
	return m, nil
}

func statusRows(s diag.StatusResponse) []table.Row {
	occupancy := fmt.Sprintf("%d pages", s.ResidentPages)
	if s.MaxPages > 0 {
		occupancy = fmt.Sprintf("%d / %d pages", s.ResidentPages, s.MaxPages)
	}

	hitRate := "n/a"
	if total := s.Hits + s.Misses; total > 0 {
		hitRate = fmt.Sprintf("%.1f%%", 100*float64(s.Hits)/float64(total))
	}

	values := []string{
		s.Mountpoint,
		s.Uptime,
		occupancy,
		fmt.Sprint(s.InflightFills),
		fmt.Sprint(s.OrphanPages),
		fmt.Sprint(s.Hits),
		fmt.Sprint(s.Misses),
		hitRate,
		fmt.Sprint(s.FillErrors),
	}

	rows := make([]table.Row, len(metricLabels))
	for i, label := range metricLabels {
		rows[i] = table.Row{label, values[i]}
	}
	return rows
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helpStyle  = lipgloss.NewStyle().Faint(true)
)

func (m model) View() string {
	if m.err != nil {
		return fmt.Sprintf("%s\n\n%s\n\n%s\n", titleStyle.Render("adbfsm-stats"), errorStyle.Render(m.err.Error()), helpStyle.Render("press q to quit"))
	}
	return titleStyle.Render("adbfsm-stats") + "\n\n" + m.table.View() + "\n\n" + helpStyle.Render("press q to quit") + "\n"
}
