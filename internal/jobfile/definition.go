// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package jobfile

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl/v2"
	"github.com/matt-FFFFFF/pdp/internal/ctxlog"
	"github.com/matt-FFFFFF/pdp/internal/runbatch"
	"github.com/spf13/afero"
)

const (
	shellAuto = "auto"
	shellNone = "none"

	unitNameField = "name"

	// outputDirectoryVar exposes output_directory to templates as ${var.output_directory}.
	outputDirectoryVar = "output_directory"
)

var (
	// ErrInvalidJob is wrapped by every validation problem in a job file.
	ErrInvalidJob = errors.New("invalid job file")
	// ErrReadJobFile is returned when a job file cannot be read.
	ErrReadJobFile = errors.New("failed to read job file")
)

// Definition is a parsed and validated job file.
type Definition struct {
	Name             string            `yaml:"name"`
	Description      string            `yaml:"description"`
	Workers          int               `yaml:"workers"`
	CaptureStdErr    *bool             `yaml:"capture_stderr"`
	Shell            string            `yaml:"shell"`
	Timeout          string            `yaml:"timeout"`
	WorkingDirectory string            `yaml:"working_directory"`
	OutputDirectory  string            `yaml:"output_directory"`
	Force            bool              `yaml:"force"`
	Env              map[string]string `yaml:"env"`
	Vars             map[string]string `yaml:"vars"`
	Jobs             []Job             `yaml:"jobs"`
	Template         *Template         `yaml:"template"`

	timeout     time.Duration
	descriptors []runbatch.Descriptor
}

// Job is one explicit command.
type Job struct {
	Name    string `yaml:"name"`
	Command string `yaml:"command"`
}

// Template produces one job per unit.
type Template struct {
	Name    string           `yaml:"name"`
	Command string           `yaml:"command"`
	Units   []map[string]any `yaml:"units"`
}

// Origin is attached to every descriptor built from a job file.
type Origin struct {
	Definition string            // Name of the job file definition
	Job        string            // Rendered job name
	Unit       map[string]string // Unit fields for template jobs, nil for explicit jobs
}

// Parse decodes and validates a job file. Every problem found is reported.
func Parse(data []byte) (*Definition, error) {
	def := &Definition{}

	if err := yaml.UnmarshalWithOptions(data, def, yaml.DisallowUnknownField()); err != nil {
		return nil, errors.Join(ErrInvalidJob, err)
	}

	if err := def.build(); err != nil {
		return nil, err
	}

	return def, nil
}

// Load reads the job file at path from FsFactory and parses it.
func Load(ctx context.Context, path string) (*Definition, error) {
	data, err := afero.ReadFile(FsFactory(), path)
	if err != nil {
		return nil, errors.Join(ErrReadJobFile, err)
	}

	ctxlog.Debug(ctx, "read job file", "path", path, "bytes", len(data))

	def, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return def, nil
}

// Descriptors returns the explicit jobs followed by the template expansions in unit order.
func (d *Definition) Descriptors() []runbatch.Descriptor {
	return slices.Clone(d.descriptors)
}

// CommandTimeout returns the parsed per-command timeout, zero when unset.
func (d *Definition) CommandTimeout() time.Duration {
	return d.timeout
}

// Policy overlays the settings of the job file on base.
func (d *Definition) Policy(base runbatch.Policy) runbatch.Policy {
	p := base

	switch d.Shell {
	case "":
	case shellAuto:
		p.Shell = runbatch.ShellAuto
		p.ShellPath = ""
	case shellNone:
		p.Shell = runbatch.ShellNone
	default:
		p.Shell = runbatch.ShellAuto
		p.ShellPath = d.Shell
	}

	if d.CaptureStdErr != nil {
		p.CaptureStdErr = *d.CaptureStdErr
	}

	if d.timeout > 0 {
		p.Timeout = d.timeout
	}

	if d.WorkingDirectory != "" {
		p.Dir = d.WorkingDirectory
	}

	if len(d.Env) > 0 {
		env := make(map[string]string, len(base.Env)+len(d.Env))
		maps.Copy(env, base.Env)
		maps.Copy(env, d.Env)
		p.Env = env
	}

	return p
}

// OutputDir returns the output directory, relative to the working directory when both are set.
// It is empty when the job file does not name one.
func (d *Definition) OutputDir() string {
	if d.OutputDirectory == "" || d.WorkingDirectory == "" || filepath.IsAbs(d.OutputDirectory) {
		return d.OutputDirectory
	}

	return filepath.Join(d.WorkingDirectory, d.OutputDirectory)
}

// templateVars returns the file variables plus output_directory, unless a variable of that name exists.
func (d *Definition) templateVars() map[string]string {
	if d.OutputDirectory == "" {
		return d.Vars
	}

	if _, ok := d.Vars[outputDirectoryVar]; ok {
		return d.Vars
	}

	vars := maps.Clone(d.Vars)
	if vars == nil {
		vars = make(map[string]string, 1)
	}

	vars[outputDirectoryVar] = d.OutputDirectory

	return vars
}

// build validates the definition and renders its descriptors.
func (d *Definition) build() error {
	var merr *multierror.Error

	invalid := func(format string, args ...any) {
		merr = multierror.Append(merr, fmt.Errorf("%w: "+format, append([]any{ErrInvalidJob}, args...)...))
	}

	if d.Workers < 0 {
		invalid("workers must not be negative, got %d", d.Workers)
	}

	if d.Timeout != "" {
		t, err := time.ParseDuration(d.Timeout)

		switch {
		case err != nil:
			invalid("timeout: %s", err.Error())
		case t <= 0:
			invalid("timeout must be positive, got %s", d.Timeout)
		default:
			d.timeout = t
		}
	}

	if d.Template != nil && strings.TrimSpace(d.Template.Command) == "" {
		invalid("template: command is empty")
	}

	if len(d.Jobs) == 0 && d.Template == nil {
		invalid("no jobs and no template")
	}

	seen := make(map[string]int)

	add := func(desc runbatch.Descriptor, where string) {
		if prev, ok := seen[desc.Label()]; ok {
			invalid("%s: duplicate job name %q, first used by job %d", where, desc.Label(), prev)
			return
		}

		seen[desc.Label()] = len(d.descriptors)
		d.descriptors = append(d.descriptors, desc)
	}

	vars := evalContext(nil, d.templateVars())

	for i, job := range d.Jobs {
		where := fmt.Sprintf("jobs[%d]", i)

		desc, err := d.render(job.Name, job.Command, where, vars, nil)
		if err != nil {
			merr = multierror.Append(merr, err)
			continue
		}

		add(desc, where)
	}

	if d.Template != nil && strings.TrimSpace(d.Template.Command) != "" {
		units := make([]runbatch.Unit, len(d.Template.Units))
		for i, u := range d.Template.Units {
			units[i] = toUnit(i, u)
		}

		descs, err := runbatch.Build(d.templateBuilder(), units)
		if err != nil {
			merr = multierror.Append(merr, err)
		}

		for i, desc := range descs {
			add(desc, fmt.Sprintf("template.units[%d]", i))
		}
	}

	return merr.ErrorOrNil()
}

func (d *Definition) templateBuilder() runbatch.Builder {
	return func(u runbatch.Unit) ([]runbatch.Descriptor, error) {
		desc, err := d.render(d.Template.Name, d.Template.Command, "template", evalContext(u.Fields, d.templateVars()), u.Fields)
		if err != nil {
			return nil, err
		}

		return []runbatch.Descriptor{desc}, nil
	}
}

func (d *Definition) render(nameTmpl, cmdTmpl, where string, ectx *hcl.EvalContext, unit map[string]string) (runbatch.Descriptor, error) {
	cmd, err := render(cmdTmpl, where+".command", ectx)
	if err != nil {
		return runbatch.Descriptor{}, errors.Join(ErrInvalidJob, err)
	}

	name, err := render(nameTmpl, where+".name", ectx)
	if err != nil {
		return runbatch.Descriptor{}, errors.Join(ErrInvalidJob, err)
	}

	cmd = strings.TrimSpace(cmd)

	label := strings.TrimSpace(name)
	if label == "" {
		label = cmd
	}

	desc, err := runbatch.NewDescriptor(label, cmd, Origin{
		Definition: d.Name,
		Job:        label,
		Unit:       unit,
	})
	if err != nil {
		return runbatch.Descriptor{}, fmt.Errorf("%w: %s: %w", ErrInvalidJob, where, err)
	}

	return desc, nil
}

// toUnit stringifies the fields of a template unit. A unit without a name field is named by its index.
func toUnit(i int, fields map[string]any) runbatch.Unit {
	u := runbatch.Unit{
		Name:   fmt.Sprintf("%d", i),
		Fields: make(map[string]string, len(fields)),
	}

	for k, v := range fields {
		u.Fields[k] = fmt.Sprint(v)
	}

	if n := u.Fields[unitNameField]; n != "" {
		u.Name = n
	}

	u.Fields[unitNameField] = u.Name

	return u
}
