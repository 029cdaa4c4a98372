package graphkv

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var versionFile string

// Version is the current version of the graphkv library and server.
var Version = strings.TrimSpace(versionFile)
