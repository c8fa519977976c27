// Package configs provides the embedded user-config template for cortex.
//
// Templates are embedded at build time using Go's //go:embed directive so
// they ship inside the binary regardless of how it was built or
// distributed.
//
// Configuration hierarchy (see internal/config/config.go Load()):
//  1. Hardcoded defaults (internal/config/config.go NewConfig())
//  2. User config (~/.config/cortex/config.yaml)
//  3. Environment variables (CORTEX_*)
package configs

import _ "embed"

// UserConfigTemplate is the text of user-config.example.yaml: a starting
// point for ~/.config/cortex/config.yaml for a user who wants to override
// scan/watch/store/vector defaults. No cortex command writes it out.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string
