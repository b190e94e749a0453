// Package assets embeds files shipped inside the pdqa binary.
package assets

import (
	_ "embed"
)

// DefaultConfigYAML is written to ~/.pdqa/config.yaml on first run and by
// `pdqa config reset`.
//
//go:embed defaults/config.yaml
var DefaultConfigYAML []byte

// ViewerPageHTML is the html/template source of the citation viewer page.
//
//go:embed viewer/page.html
var ViewerPageHTML []byte
