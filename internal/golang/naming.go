package golang

import (
	"go/token"
	"strings"
	"unicode"
)

var commonInitialisms = map[string]bool{
	"API":   true,
	"DNS":   true,
	"HTML":  true,
	"HTTP":  true,
	"HTTPS": true,
	"ID":    true,
	"IP":    true,
	"JSON":  true,
	"SQL":   true,
	"SSH":   true,
	"TCP":   true,
	"TLS":   true,
	"TTL":   true,
	"UDP":   true,
	"UI":    true,
	"UID":   true,
	"UUID":  true,
	"URI":   true,
	"URL":   true,
	"XML":   true,
	"YAML":  true,
}

func PascalCase(s string) string {
	words := splitWords(s)
	var result strings.Builder
	for _, word := range words {
		upper := strings.ToUpper(word)
		if commonInitialisms[upper] {
			result.WriteString(upper)
		} else {
			result.WriteString(capitalize(word))
		}
	}
	return result.String()
}

func SnakeCase(s string) string {
	words := splitWords(s)
	for i, word := range words {
		words[i] = strings.ToLower(word)
	}
	return strings.Join(words, "_")
}

func splitWords(s string) []string {
	var words []string
	var current strings.Builder

	for i, r := range s {
		if r == '_' || r == '-' || r == ' ' || r == '.' || r == '/' {
			if current.Len() > 0 {
				words = append(words, current.String())
				current.Reset()
			}
			continue
		}

		if unicode.IsUpper(r) && i > 0 {
			prev := rune(s[i-1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) {
				if current.Len() > 0 {
					words = append(words, current.String())
					current.Reset()
				}
			}
		}

		current.WriteRune(r)
	}

	if current.Len() > 0 {
		words = append(words, current.String())
	}

	return words
}

func capitalize(s string) string {
	if len(s) == 0 {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	for i := 1; i < len(runes); i++ {
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}

// Identifier converts an arbitrary spec name into a valid exported Go
// identifier.
func Identifier(s string) string {
	result := PascalCase(s)
	if len(result) == 0 {
		return "X"
	}
	if unicode.IsDigit(rune(result[0])) {
		return "X" + result
	}
	return result
}

// LocalIdent converts an arbitrary spec name into an unexported Go
// identifier, for function parameters.
func LocalIdent(s string) string {
	id := Identifier(s)
	runes := []rune(id)
	// Lower the leading upper-case run as one word, keeping the last
	// letter when it starts the next word: "APIKey" becomes "apiKey".
	run := 0
	for run < len(runes) && unicode.IsUpper(runes[run]) {
		run++
	}
	if run > 1 && run < len(runes) {
		run--
	}
	for i := 0; i < run; i++ {
		runes[i] = unicode.ToLower(runes[i])
	}
	out := string(runes)
	if token.IsKeyword(out) {
		out += "Arg"
	}
	return out
}

// FileStem derives the snake_case file-name form of a tag. A stem the Go
// toolchain would read as a test file ("test", or anything ending in
// "_test") is escaped with a trailing "x", because generated client files
// must never match the _test.go convention.
func FileStem(s string) string {
	stem := SnakeCase(s)
	if stem == "test" || strings.HasSuffix(stem, "_test") {
		stem += "x"
	}
	return stem
}

// PackageName derives a lower-case import-safe package name.
func PackageName(s string) string {
	name := strings.ToLower(strings.Join(splitWords(s), ""))
	if name == "" {
		return "client"
	}
	if unicode.IsDigit(rune(name[0])) {
		name = "x" + name
	}
	return name
}
