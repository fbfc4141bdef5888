// Package embedded provides the bridge's compiled-in default assets: the
// Vision Entry template, the default command-guard policy, and the
// default configuration. Each is a fallback used only when no
// project-local override exists, mirroring the teacher's own
// compiled-in-defaults-with-override convention.
package embedded

import _ "embed"

// VisionEntryTemplate is the text/template source for rendering a single
// Vision Entry markdown file (internal/vision).
//
//go:embed templates/vision_entry.tmpl
var VisionEntryTemplate string

// CommandGuardPolicy is the default destructive-command guard policy
// (internal/guard), overridden by a project-local policy file.
//
//go:embed policy/command_guard.yaml
var CommandGuardPolicy []byte

// DefaultConfig is the base document external.YAMLConfigLoader unmarshals
// before overlaying a project-local config file on top.
//
//go:embed config/default.yaml
var DefaultConfig []byte
