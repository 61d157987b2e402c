// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/matt-FFFFFF/pdp/internal/color"
)

// OutputOptions controls what is included in the output.
type OutputOptions struct {
	IncludeStdOut      bool // Whether to include stdout in the output
	IncludeStdErr      bool // Whether to include stderr in the output
	ShowSuccessDetails bool // Whether to show details for successful commands
}

// DefaultOutputOptions returns a default set of output options.
func DefaultOutputOptions() *OutputOptions {
	return &OutputOptions{
		IncludeStdOut:      false,
		IncludeStdErr:      true,
		ShowSuccessDetails: false,
	}
}

// writeTextResults writes one block per result followed by a summary line.
func writeTextResults(w io.Writer, results Results, options *OutputOptions) error {
	if options == nil {
		options = DefaultOutputOptions()
	}

	for _, r := range results {
		if r == nil {
			continue
		}

		if err := writeResult(w, r, options); err != nil {
			return err
		}
	}

	failed := len(results.Failed())

	summary := fmt.Sprintf("%d succeeded, %d failed", len(results)-failed, failed)
	if failed > 0 {
		summary = color.Colorize(summary, color.Bold, color.FgRed)
	} else {
		summary = color.Colorize(summary, color.Bold, color.FgGreen)
	}

	_, err := fmt.Fprintln(w, summary)

	return err
}

func writeResult(w io.Writer, r *Result, options *OutputOptions) error {
	statusStr, statusColour := statusGlyph(r)

	label := r.Label()
	if label == "" {
		label = "[unnamed]"
	}

	var sb strings.Builder

	fmt.Fprintf(&sb, "%s %s", statusStr, color.Colorize(label, color.Bold, statusColour))

	if r.Status == ResultStatusCompleted && r.ExitCode != 0 {
		fmt.Fprintf(&sb, " (exit code: %d)", r.ExitCode)
	}

	if r.Duration > 0 {
		sb.WriteString(color.Colorize(" ["+r.Duration.Round(time.Millisecond).String()+"]", color.Faint))
	}

	sb.WriteString("\n")

	if label != r.Descriptor.Text() {
		fmt.Fprintf(&sb, "  ➜ Command: %s\n", r.Descriptor.Text())
	}

	if r.Error != nil {
		fmt.Fprintf(&sb, "  %s %s\n", color.Colorize("➜ Error:", statusColour), r.Error.Error())
	}

	// Details are for failures unless explicitly requested for successes.
	showDetails := !r.Succeeded() || options.ShowSuccessDetails

	if showDetails && options.IncludeStdOut && len(r.StdOut) > 0 {
		sb.WriteString("  ➜ Output:\n")
		sb.WriteString(formatOutput(r.StdOut, "     "))
	}

	if showDetails && options.IncludeStdErr && len(r.StdErr) > 0 {
		fmt.Fprintf(&sb, "  %s\n", color.Colorize("➜ Error Output:", color.FgHiRed))
		sb.WriteString(formatOutput(r.StdErr, "     "))
	}

	_, err := io.WriteString(w, sb.String())

	return err
}

func statusGlyph(r *Result) (string, color.Code) {
	switch {
	case r.Succeeded():
		return color.Colorize("✓", color.FgGreen), color.FgGreen
	case r.Status == ResultStatusCancelled:
		return color.Colorize("~", color.FgYellow), color.FgYellow
	case r.Status == ResultStatusTimedOut:
		return color.Colorize("⧗", color.FgYellow), color.FgYellow
	case r.Status == ResultStatusUnknown:
		return color.Colorize("?", color.FgWhite), color.FgWhite
	default:
		return color.Colorize("✗", color.FgRed), color.FgRed
	}
}

// formatOutput formats multi-line output with proper indentation.
func formatOutput(output []byte, indent string) string {
	sb := strings.Builder{}
	lines := strings.Split(strings.TrimRight(string(output), "\n"), "\n")
	sb.Grow(len(output) + len(lines)*len(indent))

	for _, line := range lines {
		if line == "" {
			sb.WriteString("\n")
			continue
		}

		sb.WriteString(indent)
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	return sb.String()
}
