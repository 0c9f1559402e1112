// Package manifests embeds the bundled timeline seed manifests.
package manifests

import "embed"

// FS holds the bundled manifests.
//
//go:embed *.json
var FS embed.FS
