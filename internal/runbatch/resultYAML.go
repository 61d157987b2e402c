// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-yaml"
)

// ErrReadReport is returned when a saved report cannot be decoded.
var ErrReadReport = errors.New("cannot read results report")

type yamlReport struct {
	Results []yamlResult `yaml:"results"`
}

type yamlResult struct {
	Index    int    `yaml:"index"`
	Label    string `yaml:"label"`
	Command  string `yaml:"command"`
	Status   string `yaml:"status"`
	ExitCode int    `yaml:"exit_code"`
	Error    string `yaml:"error,omitempty"`
	StdOut   string `yaml:"stdout,omitempty"`
	StdErr   string `yaml:"stderr,omitempty"`
	Duration string `yaml:"duration"`
}

// WriteYAML saves the results so that they can be shown later with ReadYAML.
// Errors are stored as text and origins are not saved.
func (r Results) WriteYAML(w io.Writer) error {
	report := yamlReport{Results: make([]yamlResult, 0, len(r))}

	for _, res := range r {
		if res == nil {
			continue
		}

		yr := yamlResult{
			Index:    res.Index,
			Label:    res.Label(),
			Command:  res.Descriptor.Text(),
			Status:   res.Status.String(),
			ExitCode: res.ExitCode,
			StdOut:   string(res.StdOut),
			StdErr:   string(res.StdErr),
			Duration: res.Duration.String(),
		}

		if res.Error != nil {
			yr.Error = res.Error.Error()
		}

		report.Results = append(report.Results, yr)
	}

	out, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("cannot encode results: %w", err)
	}

	_, err = w.Write(out)

	return err
}

// ReadYAML loads results written by WriteYAML.
func ReadYAML(r io.Reader) (Results, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Join(ErrReadReport, err)
	}

	var report yamlReport
	if err := yaml.Unmarshal(data, &report); err != nil {
		return nil, errors.Join(ErrReadReport, err)
	}

	out := make(Results, 0, len(report.Results))

	for i, yr := range report.Results {
		d, err := NewDescriptor(yr.Label, yr.Command, nil)
		if err != nil {
			return nil, errors.Join(ErrReadReport, fmt.Errorf("result %d: %w", i, err))
		}

		status, err := ParseResultStatus(yr.Status)
		if err != nil {
			return nil, errors.Join(ErrReadReport, fmt.Errorf("result %d: %w", i, err))
		}

		var dur time.Duration
		if yr.Duration != "" {
			if dur, err = time.ParseDuration(yr.Duration); err != nil {
				return nil, errors.Join(ErrReadReport, fmt.Errorf("result %d: %w", i, err))
			}
		}

		res := &Result{
			Descriptor: d,
			Index:      yr.Index,
			ExitCode:   yr.ExitCode,
			Status:     status,
			Duration:   dur,
		}

		if yr.StdOut != "" {
			res.StdOut = []byte(yr.StdOut)
		}

		if yr.StdErr != "" {
			res.StdErr = []byte(yr.StdErr)
		}

		if yr.Error != "" {
			res.Error = errors.New(yr.Error)
		}

		out = append(out, res)
	}

	return out, nil
}
