// Package templates renders the synthesizer's embedded templates, with an
// optional directory of user overrides layered on top.
package templates

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

type Engine interface {
	Execute(name string, data any) (string, error)
}

// TextTemplateEngine holds the parsed template set. Templates live flat:
// a name like "api.tmpl" maps to one embedded file, and a file of the same
// name in the override directory replaces it wholesale.
type TextTemplateEngine struct {
	templates *template.Template
}

func NewEngine(embedded embed.FS, customDir string, funcs template.FuncMap) (*TextTemplateEngine, error) {
	root := template.New("").Funcs(funcs)

	names, err := fs.Glob(embedded, "*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("listing embedded templates: %w", err)
	}
	for _, name := range names {
		content, err := fs.ReadFile(embedded, name)
		if err != nil {
			return nil, fmt.Errorf("reading embedded template %s: %w", name, err)
		}
		if _, err := root.New(name).Parse(string(content)); err != nil {
			return nil, fmt.Errorf("parsing embedded template %s: %w", name, err)
		}
	}

	if customDir != "" {
		if err := loadOverrides(root, customDir); err != nil {
			return nil, err
		}
	}

	return &TextTemplateEngine{templates: root}, nil
}

func loadOverrides(root *template.Template, dir string) error {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading custom templates: %w", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".tmpl") {
			continue
		}
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("reading custom template %s: %w", name, err)
		}
		if _, err := root.New(name).Parse(string(content)); err != nil {
			return fmt.Errorf("parsing custom template %s: %w", name, err)
		}
	}
	return nil
}

func (e *TextTemplateEngine) Execute(name string, data any) (string, error) {
	tmpl := e.templates.Lookup(name)
	if tmpl == nil {
		return "", fmt.Errorf("template not found: %s", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing template %s: %w", name, err)
	}

	return buf.String(), nil
}
