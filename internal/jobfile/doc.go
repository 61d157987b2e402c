// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package jobfile reads YAML job files and turns them into command descriptors.
//
// A job file lists explicit jobs and, optionally, a template that is expanded once
// per unit. Every name and command is an HCL template: `${unit.<field>}` and
// `${var.<name>}` are substituted, and a literal `${` is written `$${`.
package jobfile
