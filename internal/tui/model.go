// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"time"

	bprogress "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	"github.com/matt-FFFFFF/pdp/internal/progress"
	"github.com/matt-FFFFFF/pdp/internal/runbatch"
)

// JobStatus represents the current state of a command in the TUI.
type JobStatus int

const (
	StatusPending JobStatus = iota
	StatusRunning
	StatusSuccess
	StatusFailed
	StatusCancelled
)

// String returns a string representation of the job status.
func (s JobStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// JobRow is the display state of one command.
type JobRow struct {
	Index     int
	Name      string
	Status    JobStatus
	Worker    int
	StartTime *time.Time
	EndTime   *time.Time
	ErrorMsg  string
}

func (r *JobRow) apply(event progress.Event) {
	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	switch event.Type {
	case progress.EventQueued:
		r.Status = StatusPending
	case progress.EventStarted:
		r.Status = StatusRunning
		r.Worker = event.Data.Worker

		if r.StartTime == nil {
			r.StartTime = &ts
		}
	case progress.EventCompleted:
		r.finish(StatusSuccess, ts)
	case progress.EventFailed:
		r.finish(StatusFailed, ts)
	case progress.EventCancelled:
		r.finish(StatusCancelled, ts)
	}

	if event.Type.Terminal() && event.Data.Error != nil {
		r.ErrorMsg = event.Data.Error.Error()
	} else if event.Type == progress.EventFailed && event.Message != "" {
		r.ErrorMsg = event.Message
	}
}

func (r *JobRow) finish(status JobStatus, ts time.Time) {
	r.Status = status

	if r.EndTime == nil {
		r.EndTime = &ts
	}
}

// Model represents the TUI application state.
// It is only touched from the bubbletea event loop.
type Model struct {
	title     string
	rows      []*JobRow
	finished  int
	failed    int
	width     int
	height    int
	quitting  bool
	completed bool
	autoQuit  bool
	results   runbatch.Results
	startTime time.Time

	spinner  spinner.Model
	bar      bprogress.Model
	viewport viewport.Model
	styles   *Styles
}

// Styles contains all the styling for the TUI.
type Styles struct {
	Title     lipgloss.Style
	Pending   lipgloss.Style
	Running   lipgloss.Style
	Success   lipgloss.Style
	Failed    lipgloss.Style
	Cancelled lipgloss.Style
	Output    lipgloss.Style
	Error     lipgloss.Style
	Help      lipgloss.Style
	Border    lipgloss.Style
}

// NewStyles creates the default styling for the TUI.
func NewStyles() *Styles {
	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			MarginBottom(1),
		Pending: lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")),
		Running: lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Bold(true),
		Success: lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")),
		Failed: lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")),
		Cancelled: lipgloss.NewStyle().
			Foreground(lipgloss.Color("3")),
		Output: lipgloss.NewStyle().
			Foreground(lipgloss.Color("7")).
			Italic(true),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Italic(true),
		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")).
			MarginTop(1),
		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")),
	}
}

const (
	defaultWidth    = 80
	defaultHeight   = 24
	reservedLines   = 9 // title, border, progress bar, status and help
	minViewportRows = 1
)

// NewModel creates a model with one pending row per label.
func NewModel(title string, labels []string) *Model {
	rows := make([]*JobRow, len(labels))
	for i, l := range labels {
		rows[i] = &JobRow{Index: i, Name: l}
	}

	m := &Model{
		title:     title,
		rows:      rows,
		startTime: time.Now(),
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
		bar:       bprogress.New(bprogress.WithDefaultGradient()),
		viewport:  viewport.New(defaultWidth, defaultHeight-reservedLines),
		styles:    NewStyles(),
	}

	m.spinner.Style = m.styles.Running
	m.resize(defaultWidth, defaultHeight)

	return m
}

// Rows returns the rows in submission order.
func (m *Model) Rows() []*JobRow {
	return m.rows
}

// Completed reports whether the batch has finished.
func (m *Model) Completed() bool {
	return m.completed
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = max(width-2, 1)
	m.viewport.Height = max(height-reservedLines, minViewportRows)
	m.bar.Width = max(width-4, 10)
}

// processProgressEvent applies an event to its row, growing the table for unknown indexes.
func (m *Model) processProgressEvent(event progress.Event) {
	if event.Index < 0 {
		return
	}

	for len(m.rows) <= event.Index {
		m.rows = append(m.rows, &JobRow{Index: len(m.rows)})
	}

	row := m.rows[event.Index]
	if row.Name == "" {
		row.Name = event.Label
	}

	wasTerminal := row.Status == StatusSuccess || row.Status == StatusFailed || row.Status == StatusCancelled

	row.apply(event)

	if event.Type.Terminal() && !wasTerminal {
		m.finished++

		if event.Type != progress.EventCompleted {
			m.failed++
		}
	}
}

func (m *Model) percent() float64 {
	if len(m.rows) == 0 {
		return 1
	}

	return float64(m.finished) / float64(len(m.rows))
}
