// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/matt-FFFFFF/pdp/internal/progress"
	"github.com/matt-FFFFFF/pdp/internal/runbatch"
)

const (
	minStatusBarAvailableHeight = 10
	commandDurationRounding     = 100 * time.Millisecond
	ellipsis                    = "..."
)

// ProgressEventMsg wraps a progress event for the tea framework.
type ProgressEventMsg struct {
	Event progress.Event
}

// BatchCompletedMsg indicates that every command has finished.
type BatchCompletedMsg struct {
	Results runbatch.Results
}

// Init implements bubbletea.Model.Init.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements bubbletea.Model.Update.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd

		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd

	case ProgressEventMsg:
		m.processProgressEvent(msg.Event)
		return m, nil

	case BatchCompletedMsg:
		m.completed = true
		m.results = msg.Results
		m.updateErrorsFromResults()

		if m.autoQuit {
			m.quitting = true
			return m, tea.Quit
		}

		return m, nil
	}

	var cmd tea.Cmd

	m.viewport, cmd = m.viewport.Update(msg)

	return m, cmd
}

// handleKeyPress processes keyboard input. Keys other than quit scroll the viewport.
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	}

	var cmd tea.Cmd

	m.viewport, cmd = m.viewport.Update(msg)

	return m, cmd
}

// updateErrorsFromResults replaces event messages with the final result errors.
func (m *Model) updateErrorsFromResults() {
	for _, r := range m.results {
		if r == nil || r.Index < 0 || r.Index >= len(m.rows) {
			continue
		}

		row := m.rows[r.Index]

		switch {
		case r.Error != nil:
			row.ErrorMsg = r.Error.Error()
		case r.Status == runbatch.ResultStatusCompleted && r.ExitCode != 0:
			row.ErrorMsg = fmt.Sprintf("exit code %d", r.ExitCode)
		}
	}
}

// View implements bubbletea.Model.View.
func (m *Model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var content strings.Builder

	for _, row := range m.rows {
		m.renderRow(&content, row)
	}

	if m.completed {
		content.WriteString("\n")

		if m.failed > 0 {
			content.WriteString(m.styles.Failed.Render(fmt.Sprintf("⚠️  %d of %d commands failed", m.failed, len(m.rows))))
		} else {
			content.WriteString(m.styles.Success.Render("✅ All commands completed successfully"))
		}

		content.WriteString("\n")
	}

	m.viewport.SetContent(content.String())

	var view strings.Builder

	view.WriteString(m.styles.Title.Render("🧬 " + m.title))
	view.WriteString("\n")
	view.WriteString(m.styles.Border.Render(m.viewport.View()))
	view.WriteString("\n")
	view.WriteString(m.bar.ViewAs(m.percent()))

	if m.height > minStatusBarAvailableHeight {
		view.WriteString("\n")
		view.WriteString(m.renderStatusBar())
		view.WriteString("\n")

		helpText := "↑/↓ or j/k to scroll, PgUp/PgDn for pages, 'q' to quit and cancel"
		if m.completed {
			helpText = "↑/↓ or j/k to scroll, 'q' to quit and return to terminal"
		}

		view.WriteString(m.styles.Help.Render(helpText))
	}

	return view.String()
}

func (m *Model) renderStatusBar() string {
	running := 0

	for _, r := range m.rows {
		if r.Status == StatusRunning {
			running++
		}
	}

	elapsed := time.Since(m.startTime).Round(time.Second)

	return m.styles.Output.Render(fmt.Sprintf(
		"%d/%d finished, %d running, %d failed, elapsed %s",
		m.finished, len(m.rows), running, m.failed, elapsed,
	))
}

// renderRow renders a single command row with its error, if any, on the right.
func (m *Model) renderRow(b *strings.Builder, row *JobRow) {
	var statusIcon, styledName string

	switch row.Status {
	case StatusPending:
		statusIcon = "⏳"
		styledName = m.styles.Pending.Render(row.Name)
	case StatusRunning:
		statusIcon = m.spinner.View()
		styledName = m.styles.Running.Render(row.Name)
	case StatusSuccess:
		statusIcon = "✅"
		styledName = m.styles.Success.Render(row.Name)
	case StatusFailed:
		statusIcon = "❌"
		styledName = m.styles.Failed.Render(row.Name)
	case StatusCancelled:
		statusIcon = "🚫"
		styledName = m.styles.Cancelled.Render(row.Name)
	default:
		statusIcon = "❓"
		styledName = m.styles.Pending.Render(row.Name)
	}

	leftSide := fmt.Sprintf("%s %s", statusIcon, styledName)

	if row.StartTime != nil {
		elapsed := time.Since(*row.StartTime)
		if row.EndTime != nil {
			elapsed = row.EndTime.Sub(*row.StartTime)
		}

		leftSide += m.styles.Output.Render(fmt.Sprintf(" (%v)", elapsed.Round(commandDurationRounding)))
	}

	leftWidth := max(m.viewport.Width/2, 1) //nolint:mnd

	if pad := leftWidth - lipgloss.Width(leftSide); pad > 0 {
		leftSide += strings.Repeat(" ", pad)
	}

	b.WriteString(leftSide)

	if row.ErrorMsg != "" && (row.Status == StatusFailed || row.Status == StatusCancelled) {
		rightWidth := max(m.viewport.Width-leftWidth-1, len(ellipsis)+1)

		b.WriteString(" ")
		b.WriteString(m.styles.Error.Render(truncate(firstLine(row.ErrorMsg), rightWidth)))
	}

	b.WriteString("\n")
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

// truncate shortens s to at most width display cells.
func truncate(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}

	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+len(ellipsis) > width {
		runes = runes[:len(runes)-1]
	}

	return string(runes) + ellipsis
}
