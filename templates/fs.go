// Package templates embeds the code templates the synthesizer renders.
package templates

import "embed"

//go:embed *.tmpl
var FS embed.FS
