package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"pimine.team/miner/miner"
)

var (
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	miningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#34D399")).Bold(true)
	idleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FBBF24")).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#000000")).Background(lipgloss.Color("#FFFF00")).Padding(0, 2).Bold(true)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF")).Italic(true)
	panelStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#2563EB")).Padding(0, 1)
)

// formatHashRate scales a rate to H/s, KH/s or MH/s with two decimals.
func formatHashRate(rate float64) string {
	switch {
	case rate >= 1_000_000:
		return fmt.Sprintf("%.2f MH/s", rate/1_000_000)
	case rate >= 1_000:
		return fmt.Sprintf("%.2f KH/s", rate/1_000)
	default:
		return fmt.Sprintf("%.2f H/s", rate)
	}
}

// formatCount groups the digits of n in thousands.
func formatCount(n uint64) string {
	digits := strconv.FormatUint(n, 10)
	out := make([]byte, 0, len(digits)+len(digits)/3)
	for i := 0; i < len(digits); i++ {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, digits[i])
	}
	return string(out)
}

func miningLabel(mining bool) string {
	if mining {
		return "Mining"
	}
	return "Idle"
}

func formatStats(s miner.Stats) string {
	status := idleStyle.Render(miningLabel(s.IsMining))
	if s.IsMining {
		status = miningStyle.Render(miningLabel(s.IsMining))
	}
	return fmt.Sprintf("%s %s  %s %s  %s %s  %s %s",
		labelStyle.Render("status"), status,
		labelStyle.Render("rate"), valueStyle.Render(formatHashRate(s.HashRate)),
		labelStyle.Render("hashes"), valueStyle.Render(formatCount(s.TotalHashes)),
		labelStyle.Render("difficulty"), valueStyle.Render(strconv.FormatUint(uint64(s.CurrentDifficulty), 10)),
	)
}

func formatResult(r *miner.Result) string {
	style := idleStyle
	if r.Solved() {
		style = miningStyle
	}
	elapsed := time.Duration(r.ElapsedMs) * time.Millisecond
	line := fmt.Sprintf("%s after %s iterations in %s", style.Render(r.Status.String()), formatCount(r.Iterations), elapsed)
	if r.Solved() {
		line += fmt.Sprintf("\n%s %d\n%s %s", labelStyle.Render("nonce"), r.Nonce, labelStyle.Render("hash "), r.Hash)
	}
	return line
}
