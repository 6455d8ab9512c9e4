package golang

import (
	"go/format"

	"golang.org/x/tools/imports"
)

// Format gofmts the source and fixes up imports. Synthesized files always go
// through here so repeated runs stay byte-identical.
func Format(src []byte) ([]byte, error) {
	return imports.Process("", src, &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: false,
	})
}

// Gofmt formats the source without touching imports, for comparing
// declaration fragments that have no import block of their own.
func Gofmt(src []byte) ([]byte, error) {
	return format.Source(src)
}
