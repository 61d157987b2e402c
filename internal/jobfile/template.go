// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package jobfile

import (
	"errors"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// ErrTemplate is returned when a name or command template cannot be rendered.
var ErrTemplate = errors.New("template error")

// evalContext exposes unit fields as unit.<field> and file variables as var.<name>.
func evalContext(unit map[string]string, vars map[string]string) *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"unit": stringObject(unit),
			"var":  stringObject(vars),
		},
	}
}

func stringObject(m map[string]string) cty.Value {
	if len(m) == 0 {
		return cty.EmptyObjectVal
	}

	attrs := make(map[string]cty.Value, len(m))
	for k, v := range m {
		attrs[k] = cty.StringVal(v)
	}

	return cty.ObjectVal(attrs)
}

// render evaluates src as an HCL template. where names the source in diagnostics.
func render(src, where string, ectx *hcl.EvalContext) (string, error) {
	expr, diags := hclsyntax.ParseTemplate([]byte(src), where, hcl.InitialPos)
	if diags.HasErrors() {
		return "", errors.Join(ErrTemplate, diags)
	}

	val, diags := expr.Value(ectx)
	if diags.HasErrors() {
		return "", errors.Join(ErrTemplate, diags)
	}

	val, err := convert.Convert(val, cty.String)
	if err != nil {
		return "", errors.Join(ErrTemplate, fmt.Errorf("%s: %w", where, err))
	}

	if val.IsNull() || !val.IsKnown() {
		return "", fmt.Errorf("%w: %s: template did not produce a string", ErrTemplate, where)
	}

	return val.AsString(), nil
}
