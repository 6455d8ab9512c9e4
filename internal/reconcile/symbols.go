// Package reconcile updates a generated client tree in place. Symbols are
// matched through the identity directives in their doc comments, never
// through display names, so a hand-renamed function or model keeps both its
// name and its body across updates.
package reconcile

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/kolah/probekit/internal/generr"
	"github.com/kolah/probekit/internal/model"
	"github.com/kolah/probekit/internal/synth"
)

type SymbolKind int

const (
	KindFunc SymbolKind = iota
	KindParams
	KindModel
)

func (k SymbolKind) String() string {
	switch k {
	case KindFunc:
		return "func"
	case KindParams:
		return "params"
	case KindModel:
		return "model"
	}
	return "unknown"
}

// Symbol is one generated declaration found in an existing tree, with the
// byte range its rewrite replaces.
type Symbol struct {
	Kind   SymbolKind
	Key    model.EndpointKey // funcs and params structs
	Origin string            // models
	Name   string
	File   string

	// Start and End are byte offsets of the declaration in File, doc
	// comment included.
	Start int
	End   int

	DeclText string
	// BodyText is the function body, braces included, with its leading
	// space. Rewrites splice it back in verbatim.
	BodyText string
	// ExtraDirectives are tool directives in the doc comment that this
	// tool does not own (nolint and friends); rewrites keep them.
	ExtraDirectives []string

	// Conflicted marks a symbol whose identity appears more than once;
	// conflicted symbols are never touched.
	Conflicted bool
}

// Tree is the scanned state of one generated client directory.
type Tree struct {
	Dir       string
	Files     map[string][]byte
	FileNames []string
	Symbols   []*Symbol
	Conflicts []error

	funcs  map[model.EndpointKey]*Symbol
	params map[model.EndpointKey]*Symbol
	models map[string]*Symbol
}

// Scan parses every Go file directly under dir and indexes the generated
// symbols by directive identity. An unparsable file is fatal: splicing
// into a file whose structure is unknown would corrupt it.
func Scan(dir string) (*Tree, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading client directory: %w", err)
	}

	t := &Tree{
		Dir:    dir,
		Files:  make(map[string][]byte),
		funcs:  make(map[model.EndpointKey]*Symbol),
		params: make(map[model.EndpointKey]*Symbol),
		models: make(map[string]*Symbol),
	}

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		src, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		t.Files[name] = src
		t.FileNames = append(t.FileNames, name)
		if err := t.scanFile(name, src); err != nil {
			return nil, err
		}
	}
	sort.Strings(t.FileNames)
	return t, nil
}

func (t *Tree) scanFile(name string, src []byte) error {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, name, src, parser.ParseComments)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}

	offset := func(pos token.Pos) int { return fset.Position(pos).Offset }

	for _, decl := range f.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if d.Doc == nil {
				continue
			}
			value, ok := directiveValue(d.Doc, synth.DirectiveEndpoint)
			if !ok {
				continue
			}
			key, ok := parseKey(value)
			if !ok {
				continue
			}
			sym := &Symbol{
				Kind:  KindFunc,
				Key:   key,
				Name:  d.Name.Name,
				File:  name,
				Start: offset(d.Doc.Pos()),
				End:   offset(d.End()),
			}
			sym.DeclText = string(src[sym.Start:sym.End])
			if d.Body != nil {
				sym.BodyText = " " + string(src[offset(d.Body.Pos()):offset(d.Body.End())])
			}
			sym.ExtraDirectives = extraDirectives(d.Doc)
			t.add(sym)

		case *ast.GenDecl:
			if d.Tok != token.TYPE || d.Doc == nil || len(d.Specs) != 1 {
				continue
			}
			ts, ok := d.Specs[0].(*ast.TypeSpec)
			if !ok {
				continue
			}
			sym := &Symbol{
				Name:  ts.Name.Name,
				File:  name,
				Start: offset(d.Doc.Pos()),
				End:   offset(d.End()),
			}
			if value, ok := directiveValue(d.Doc, synth.DirectiveParams); ok {
				key, ok := parseKey(value)
				if !ok {
					continue
				}
				sym.Kind, sym.Key = KindParams, key
			} else if origin, ok := directiveValue(d.Doc, synth.DirectiveModel); ok && origin != "" {
				sym.Kind, sym.Origin = KindModel, origin
			} else {
				continue
			}
			sym.DeclText = string(src[sym.Start:sym.End])
			sym.ExtraDirectives = extraDirectives(d.Doc)
			t.add(sym)
		}
	}
	return nil
}

func (t *Tree) add(sym *Symbol) {
	t.Symbols = append(t.Symbols, sym)

	var prev *Symbol
	switch sym.Kind {
	case KindFunc:
		prev = t.funcs[sym.Key]
		if prev == nil {
			t.funcs[sym.Key] = sym
		}
	case KindParams:
		prev = t.params[sym.Key]
		if prev == nil {
			t.params[sym.Key] = sym
		}
	case KindModel:
		prev = t.models[sym.Origin]
		if prev == nil {
			t.models[sym.Origin] = sym
		}
	}
	if prev != nil {
		prev.Conflicted = true
		sym.Conflicted = true
		t.Conflicts = append(t.Conflicts, &generr.ReconcileConflictError{
			Symbol:  sym.Name,
			Message: fmt.Sprintf("%s identity %s declared by both %s and %s", sym.Kind, sym.identity(), prev.Name, sym.Name),
		})
	}
}

func (s *Symbol) identity() string {
	if s.Kind == KindModel {
		return s.Origin
	}
	return fmt.Sprintf("%s %s %s", s.Key.Tag, s.Key.Method, s.Key.Path)
}

// Names exposes the tree's chosen display names in the form the
// synthesizer consumes, so regenerated declarations keep them.
func (t *Tree) Names() *synth.Names {
	n := &synth.Names{
		Func:   make(map[model.EndpointKey]string),
		Params: make(map[model.EndpointKey]string),
		Model:  make(map[string]string),
	}
	for key, s := range t.funcs {
		n.Func[key] = s.Name
	}
	for key, s := range t.params {
		n.Params[key] = s.Name
	}
	for origin, s := range t.models {
		n.Model[origin] = s.Name
	}
	return n
}

var specSourceRE = regexp.MustCompile(`SpecSource = ("(?:[^"\\]|\\.)*")`)

// SpecSource returns the document location recorded in the tree's spec.go,
// or "" when the tree does not record one.
func (t *Tree) SpecSource() string {
	src, ok := t.Files["spec.go"]
	if !ok {
		return ""
	}
	m := specSourceRE.FindSubmatch(src)
	if m == nil {
		return ""
	}
	s, err := strconv.Unquote(string(m[1]))
	if err != nil {
		return ""
	}
	return s
}

// Tags returns the set of tags the tree already materializes.
func (t *Tree) Tags() map[string]bool {
	tags := make(map[string]bool)
	for _, s := range t.Symbols {
		if s.Kind != KindModel {
			tags[s.Key.Tag] = true
		}
	}
	return tags
}

// directiveValue finds a "//name value" line in doc and returns the value.
func directiveValue(doc *ast.CommentGroup, name string) (string, bool) {
	prefix := "//" + name
	for _, c := range doc.List {
		if c.Text == prefix {
			return "", true
		}
		if strings.HasPrefix(c.Text, prefix+" ") {
			return strings.TrimSpace(c.Text[len(prefix)+1:]), true
		}
	}
	return "", false
}

// parseKey parses "<tag> <METHOD> <path>" from the end, so tag names may
// contain spaces.
func parseKey(value string) (model.EndpointKey, bool) {
	fields := strings.Fields(value)
	if len(fields) < 3 {
		return model.EndpointKey{}, false
	}
	return model.EndpointKey{
		Tag:    strings.Join(fields[:len(fields)-2], " "),
		Method: model.Method(fields[len(fields)-2]),
		Path:   fields[len(fields)-1],
	}, true
}

// extraDirectives collects doc-comment tool directives this tool does not
// manage, in order.
func extraDirectives(doc *ast.CommentGroup) []string {
	var out []string
	for _, c := range doc.List {
		text := c.Text
		if !strings.HasPrefix(text, "//") || strings.HasPrefix(text, "// ") || strings.HasPrefix(text, "//probekit:") {
			continue
		}
		rest := text[2:]
		if i := strings.IndexByte(rest, ':'); i > 0 && !strings.ContainsAny(rest[:i], " \t") {
			out = append(out, text)
		}
	}
	return out
}
