// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// ErrInvalidCommand is returned when a command line is empty or otherwise unusable.
var ErrInvalidCommand = errors.New("invalid command")

// Descriptor is one pending external invocation. It is immutable once created.
type Descriptor struct {
	text   string
	label  string
	origin any
}

// NewDescriptor validates text and returns a Descriptor.
// The label is used for display and defaults to the command text.
// Origin is an opaque reference back to whatever requested the command,
// e.g. a sequence group, and is returned untouched in the Result.
func NewDescriptor(label, text string, origin any) (Descriptor, error) {
	if strings.TrimSpace(text) == "" {
		return Descriptor{}, fmt.Errorf("%w: command text is empty", ErrInvalidCommand)
	}

	if label == "" {
		label = text
	}

	return Descriptor{
		text:   text,
		label:  label,
		origin: origin,
	}, nil
}

// NewDescriptors builds one descriptor per command line, using the input index as origin.
// Every invalid entry is reported; no descriptors are returned if any entry is invalid.
func NewDescriptors(commands []string) ([]Descriptor, error) {
	var merr *multierror.Error

	out := make([]Descriptor, 0, len(commands))

	for i, c := range commands {
		d, err := NewDescriptor("", c, i)
		if err != nil {
			merr = multierror.Append(merr, fmt.Errorf("command %d: %w", i, err))
			continue
		}

		out = append(out, d)
	}

	if err := merr.ErrorOrNil(); err != nil {
		return nil, err
	}

	return out, nil
}

// Text returns the full command line.
func (d Descriptor) Text() string {
	return d.text
}

// Label returns the display label.
func (d Descriptor) Label() string {
	return d.label
}

// Origin returns the reference supplied at construction.
func (d Descriptor) Origin() any {
	return d.origin
}

// Valid reports whether d was built by NewDescriptor. The zero Descriptor is not valid.
func (d Descriptor) Valid() bool {
	return strings.TrimSpace(d.text) != ""
}

// Unit is one logical unit of work, such as a genome in a sequence group,
// from which a Builder derives command lines.
type Unit struct {
	Name   string
	Fields map[string]string
}

// Builder turns a unit into the command descriptors that process it.
// Tool-specific builders (gene prediction, primer design, sequence search) implement it.
type Builder func(unit Unit) ([]Descriptor, error)

// Build applies b to every unit and concatenates the descriptors in unit order.
func Build(b Builder, units []Unit) ([]Descriptor, error) {
	var (
		merr *multierror.Error
		out  []Descriptor
	)

	for _, u := range units {
		ds, err := b(u)
		if err != nil {
			merr = multierror.Append(merr, fmt.Errorf("unit %q: %w", u.Name, err))
			continue
		}

		out = append(out, ds...)
	}

	if err := merr.ErrorOrNil(); err != nil {
		return nil, err
	}

	return out, nil
}
