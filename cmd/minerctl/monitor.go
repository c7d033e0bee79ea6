package main

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"pimine.team/miner/miner"
)

// messages from the stream goroutine
type statsMsg miner.Stats
type streamErrMsg struct{ err error }

// monitorModel renders the latest pushed snapshot.
type monitorModel struct {
	url     string
	spinner spinner.Model
	stats   miner.Stats
	updates int
	updated time.Time
	err     error
}

func newMonitorModel(url string) monitorModel {
	return monitorModel{
		url: url,
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(miningStyle),
		),
	}
}

func (m monitorModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}

	case statsMsg:
		m.stats = miner.Stats(msg)
		m.updates++
		m.updated = time.Now()
		m.err = nil

	case streamErrMsg:
		m.err = msg.err

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m monitorModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("pimine monitor"))
	b.WriteString("\n\n")

	status := idleStyle.Render(miningLabel(false))
	if m.stats.IsMining {
		status = m.spinner.View() + " " + miningStyle.Render(miningLabel(true))
	}
	rows := [][2]string{
		{"Status", status},
		{"Hash rate", valueStyle.Render(formatHashRate(m.stats.HashRate))},
		{"Total hashes", valueStyle.Render(formatCount(m.stats.TotalHashes))},
		{"Difficulty", valueStyle.Render(strconv.FormatUint(uint64(m.stats.CurrentDifficulty), 10))},
	}
	var panel strings.Builder
	for i, row := range rows {
		if i > 0 {
			panel.WriteString("\n")
		}
		fmt.Fprintf(&panel, "%s %s", labelStyle.Render(fmt.Sprintf("%-13s", row[0])), row[1])
	}
	b.WriteString(panelStyle.Render(panel.String()))
	b.WriteString("\n")

	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render("disconnected: " + m.err.Error()))
	case m.updates == 0:
		b.WriteString(helpStyle.Render("connecting to " + m.url))
	default:
		b.WriteString(helpStyle.Render(fmt.Sprintf("%d updates, last at %s", m.updates, m.updated.Format(time.TimeOnly))))
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("q to quit"))
	b.WriteString("\n")
	return b.String()
}

// Monitor runs the terminal monitor, fed by the stats socket, until quit.
func Monitor(ctx context.Context) {
	url := socketUrl()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newMonitorModel(url), tea.WithAltScreen(), tea.WithContext(ctx))
	go func() {
		err := streamStats(ctx, url, func(s miner.Stats) { p.Send(statsMsg(s)) })
		if ctx.Err() == nil {
			p.Send(streamErrMsg{err})
		}
	}()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		log.Fatal("monitor: ", err)
	}
}
