package reconcile

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/kolah/probekit/internal/generr"
	"github.com/kolah/probekit/internal/golang"
	"github.com/kolah/probekit/internal/model"
	"github.com/kolah/probekit/internal/synth"
)

type Action string

const (
	ActionUnchanged Action = "unchanged"
	ActionRewrite   Action = "rewrite"
	ActionAdd       Action = "add"
	ActionMissing   Action = "missing"
	ActionRemove    Action = "remove"
	ActionConflict  Action = "conflict"
)

// Entry records the planned fate of one symbol.
type Entry struct {
	Action Action
	Kind   SymbolKind
	Key    model.EndpointKey
	Origin string
	Name   string
	File   string
	Err    error
}

func (e Entry) String() string {
	id := e.Origin
	if e.Kind != KindModel {
		id = fmt.Sprintf("%s %s %s", e.Key.Tag, e.Key.Method, e.Key.Path)
	}
	s := fmt.Sprintf("%-9s %s %s (%s)", e.Action, e.Kind, e.Name, id)
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// PlannedFile is one file the plan would write. Old is nil for a new file.
type PlannedFile struct {
	Name string
	Old  []byte
	New  []byte
}

// Plan is the computed outcome of one update. Building it performs no
// writes; Apply does.
type Plan struct {
	Dir     string
	Entries []Entry
	Files   []PlannedFile
	Notes   []string
}

// Scope restricts an update to named tags and/or "METHOD /path" endpoint
// selectors. An empty scope allows everything; out-of-scope symbols pass
// through verbatim.
type Scope struct {
	Tags      []string
	Endpoints []string
}

func (s Scope) Empty() bool {
	return len(s.Tags) == 0 && len(s.Endpoints) == 0
}

func (s Scope) AllowsKey(key model.EndpointKey) bool {
	if s.Empty() {
		return true
	}
	for _, t := range s.Tags {
		if golang.SnakeCase(t) == golang.SnakeCase(key.Tag) {
			return true
		}
	}
	sel := string(key.Method) + " " + key.Path
	for _, e := range s.Endpoints {
		if e == sel {
			return true
		}
	}
	return false
}

// AllowsTag reports whether tag-level artifacts (model declarations) are in
// scope. An endpoint-only scope leaves models untouched. Tags compare in
// their file-name form so "User Management" matches models_user_management.
func (s Scope) AllowsTag(tag string) bool {
	if s.Empty() {
		return true
	}
	for _, t := range s.Tags {
		if golang.FileStem(t) == golang.FileStem(tag) {
			return true
		}
	}
	return false
}

// Options configures one plan.
type Options struct {
	App string
	Env string
	// Source records where the document came from; it is embedded in the
	// regenerated spec.go. Empty keeps the tree's recorded source.
	Source string
	Scope  Scope
	// AddNewTags materializes tags that exist in the document but not in
	// the tree. Without it new tags are reported only.
	AddNewTags bool
	// RemoveMissing deletes in-scope symbols the document no longer
	// declares. Without it they are kept and reported.
	RemoveMissing bool
}

type edit struct {
	start, end int
	text       string
}

type planner struct {
	tree    *Tree
	opts    Options
	plan    *Plan
	matched map[*Symbol]bool
	edits   map[string][]edit
	appends map[string][]string
}

// BuildPlan regenerates the client from spec with the tree's names held
// fixed and joins the result against the scanned symbols. The returned
// plan classifies every symbol and carries the full new content of every
// file that would change.
func BuildPlan(tree *Tree, spec *model.Spec, raw []byte, b *synth.Builder, opts Options) (*Plan, error) {
	p := &planner{
		tree:    tree,
		opts:    opts,
		plan:    &Plan{Dir: tree.Dir},
		matched: make(map[*Symbol]bool),
		edits:   make(map[string][]edit),
		appends: make(map[string][]string),
	}

	source := opts.Source
	if source == "" {
		source = tree.SpecSource()
	}

	eff := p.effectiveSpec(spec)
	res, err := b.Build(eff, raw, synth.Options{App: opts.App, Env: opts.Env, Source: source, Names: tree.Names()})
	if err != nil {
		return nil, err
	}

	for _, tu := range res.Units {
		apiFile := "api_" + golang.FileStem(tu.Tag) + ".go"
		modelsFile := "models_" + golang.FileStem(tu.Tag) + ".go"
		for _, fu := range tu.Funcs {
			if fu.ParamsText != "" {
				if err := p.planDecl(KindParams, fu.Key, "", fu.ParamsType, fu.ParamsText, p.tree.params[fu.Key], apiFile); err != nil {
					return nil, err
				}
			}
			if err := p.planFunc(fu, apiFile); err != nil {
				return nil, err
			}
		}
		for _, mu := range tu.Models {
			if !p.opts.Scope.AllowsTag(tu.Tag) {
				if sym := p.tree.models[mu.Origin]; sym != nil {
					p.matched[sym] = true
				}
				continue
			}
			if err := p.planDecl(KindModel, model.EndpointKey{}, mu.Origin, mu.Name, mu.Text, p.tree.models[mu.Origin], modelsFile); err != nil {
				return nil, err
			}
		}
	}

	p.planLeftovers()
	if err := p.render(res); err != nil {
		return nil, err
	}

	sort.Strings(p.plan.Notes)
	return p.plan, nil
}

// effectiveSpec drops endpoints whose primary tag is absent from the tree
// unless new tags were requested, noting each skipped tag once.
func (p *planner) effectiveSpec(spec *model.Spec) *model.Spec {
	if p.opts.AddNewTags {
		return spec
	}
	eff := *spec
	eff.Tags = nil
	eff.Endpoints = nil
	for _, tag := range spec.Tags {
		if p.hasTag(tag) {
			eff.Tags = append(eff.Tags, tag)
		} else {
			p.plan.Notes = append(p.plan.Notes,
				fmt.Sprintf("tag %q is new in the document; rerun with --add-new-classes to generate it", tag))
		}
	}
	for _, ep := range spec.Endpoints {
		if p.hasTag(ep.Key.Tag) {
			eff.Endpoints = append(eff.Endpoints, ep)
		}
	}
	return &eff
}

// hasTag reports whether the tree already materializes a tag. The api file
// is the authority: a tag whose endpoints all live under other primary tags
// has a class but no indexed symbols.
func (p *planner) hasTag(tag string) bool {
	if p.tree.Tags()[tag] {
		return true
	}
	_, ok := p.tree.Files["api_"+golang.FileStem(tag)+".go"]
	return ok
}

func (p *planner) planFunc(fu synth.FuncUnit, file string) error {
	sym := p.tree.funcs[fu.Key]
	if sym == nil {
		if _, exists := p.tree.Files[file]; !exists {
			// The whole file is new; it already carries the function.
			p.entry(Entry{Action: ActionAdd, Kind: KindFunc, Key: fu.Key, Name: fu.Name, File: file})
			return nil
		}
		if !p.opts.Scope.AllowsKey(fu.Key) {
			p.plan.Notes = append(p.plan.Notes,
				fmt.Sprintf("endpoint %s %s is new but outside the requested scope", fu.Key.Method, fu.Key.Path))
			return nil
		}
		p.appends[file] = append(p.appends[file], fu.Text)
		p.entry(Entry{Action: ActionAdd, Kind: KindFunc, Key: fu.Key, Name: fu.Name, File: file})
		return nil
	}

	p.matched[sym] = true
	if sym.Conflicted {
		return nil
	}
	if !p.opts.Scope.AllowsKey(fu.Key) {
		p.entry(Entry{Action: ActionUnchanged, Kind: KindFunc, Key: fu.Key, Name: sym.Name, File: sym.File})
		return nil
	}

	body := fu.Body
	if sym.BodyText != "" {
		body = sym.BodyText
	}
	doc := fu.Doc
	for _, d := range sym.ExtraDirectives {
		doc += d + "\n"
	}
	return p.reconcileSymbol(sym, KindFunc, fu.Key, "", doc+fu.Signature+body)
}

func (p *planner) planDecl(kind SymbolKind, key model.EndpointKey, origin, name, text string, sym *Symbol, file string) error {
	if sym == nil {
		if _, exists := p.tree.Files[file]; exists {
			if kind == KindParams && !p.opts.Scope.AllowsKey(key) {
				return nil
			}
			p.appends[file] = append(p.appends[file], text)
		}
		p.entry(Entry{Action: ActionAdd, Kind: kind, Key: key, Origin: origin, Name: name, File: file})
		return nil
	}

	p.matched[sym] = true
	if sym.Conflicted {
		return nil
	}
	if kind == KindParams && !p.opts.Scope.AllowsKey(key) {
		p.entry(Entry{Action: ActionUnchanged, Kind: kind, Key: key, Name: sym.Name, File: sym.File})
		return nil
	}

	if len(sym.ExtraDirectives) > 0 {
		// Declarations are rendered whole; re-attach foreign directives
		// before the type keyword.
		i := strings.Index(text, "\ntype ")
		if i >= 0 {
			text = text[:i+1] + strings.Join(sym.ExtraDirectives, "\n") + text[i:]
		}
	}
	return p.reconcileSymbol(sym, kind, key, origin, text)
}

// reconcileSymbol classifies one matched symbol by comparing its formatted
// declaration with the regenerated text, recording a splice when they
// differ.
func (p *planner) reconcileSymbol(sym *Symbol, kind SymbolKind, key model.EndpointKey, origin, newText string) error {
	fresh, err := formatDecl(newText)
	if err != nil {
		return fmt.Errorf("formatting regenerated %s %s: %w", kind, sym.Name, err)
	}
	current, err := formatDecl(sym.DeclText)
	if err != nil {
		current = strings.TrimSpace(sym.DeclText)
	}

	e := Entry{Kind: kind, Key: key, Origin: origin, Name: sym.Name, File: sym.File}
	if fresh == current {
		e.Action = ActionUnchanged
	} else {
		e.Action = ActionRewrite
		p.edits[sym.File] = append(p.edits[sym.File], edit{start: sym.Start, end: sym.End, text: newText})
	}
	p.entry(e)
	return nil
}

// planLeftovers handles symbols the document no longer produces, and the
// conflicted ones.
func (p *planner) planLeftovers() {
	for _, sym := range p.tree.Symbols {
		if sym.Conflicted {
			p.entry(Entry{Action: ActionConflict, Kind: sym.Kind, Key: sym.Key, Origin: sym.Origin,
				Name: sym.Name, File: sym.File, Err: &generr.ReconcileConflictError{
					Symbol:  sym.Name,
					Message: "duplicate identity " + sym.identity(),
				}})
			continue
		}
		if p.matched[sym] {
			continue
		}

		inScope := false
		switch sym.Kind {
		case KindModel:
			inScope = p.opts.Scope.AllowsTag(tagOfModelsFile(sym.File))
		default:
			inScope = p.opts.Scope.AllowsKey(sym.Key)
		}

		if p.opts.RemoveMissing && inScope {
			p.edits[sym.File] = append(p.edits[sym.File], edit{start: sym.Start, end: sym.End})
			p.entry(Entry{Action: ActionRemove, Kind: sym.Kind, Key: sym.Key, Origin: sym.Origin, Name: sym.Name, File: sym.File})
			continue
		}
		p.entry(Entry{Action: ActionMissing, Kind: sym.Kind, Key: sym.Key, Origin: sym.Origin, Name: sym.Name, File: sym.File})
	}
}

func (p *planner) entry(e Entry) {
	p.plan.Entries = append(p.plan.Entries, e)
}

// render composes the new content of every touched file.
func (p *planner) render(res *synth.Result) error {
	for _, name := range p.tree.FileNames {
		src := p.tree.Files[name]
		edits := p.edits[name]
		tail := p.appends[name]
		if len(edits) == 0 && len(tail) == 0 {
			continue
		}

		sort.Slice(edits, func(i, j int) bool { return edits[i].start > edits[j].start })
		out := append([]byte(nil), src...)
		for _, e := range edits {
			out = append(out[:e.start], append([]byte(e.text), out[e.end:]...)...)
		}
		for _, t := range tail {
			out = append(out, []byte("\n\n"+t+"\n")...)
		}

		formatted, err := golang.Format(out)
		if err != nil {
			return fmt.Errorf("formatting updated %s: %w", name, err)
		}
		if !bytes.Equal(formatted, src) {
			p.plan.Files = append(p.plan.Files, PlannedFile{Name: name, Old: src, New: formatted})
		}
	}

	for _, f := range res.Files {
		old, exists := p.tree.Files[f.Name]
		if !exists {
			if f.Name == "config.go" || f.Name == "client.go" || f.Name == "spec.go" {
				// A tree without the shared files is not a generated
				// client; Scan-level callers reject that earlier.
				continue
			}
			if strings.HasPrefix(f.Name, "models_") && !p.opts.Scope.AllowsTag(tagOfModelsFile(f.Name)) {
				continue
			}
			p.plan.Files = append(p.plan.Files, PlannedFile{Name: f.Name, New: f.Content})
			continue
		}
		// Shared managed files refresh wholesale, except config.go which
		// the user owns after generation.
		if f.Name == "client.go" || f.Name == "spec.go" {
			if !bytes.Equal(old, f.Content) && p.opts.Scope.Empty() {
				p.plan.Files = append(p.plan.Files, PlannedFile{Name: f.Name, Old: old, New: f.Content})
			}
		}
	}

	sort.Slice(p.plan.Files, func(i, j int) bool { return p.plan.Files[i].Name < p.plan.Files[j].Name })
	return nil
}

// Changed reports whether applying the plan would write anything.
func (p *Plan) Changed() bool { return len(p.Files) > 0 }

// Diff renders a unified diff of every planned file change.
func (p *Plan) Diff() (string, error) {
	var b strings.Builder
	for _, f := range p.Files {
		from := "/dev/null"
		if f.Old != nil {
			from = "a/" + f.Name
		}
		text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(string(f.Old)),
			B:        difflib.SplitLines(string(f.New)),
			FromFile: from,
			ToFile:   "b/" + f.Name,
			Context:  3,
		})
		if err != nil {
			return "", fmt.Errorf("diffing %s: %w", f.Name, err)
		}
		b.WriteString(text)
	}
	return b.String(), nil
}

// Apply writes every planned file atomically.
func (p *Plan) Apply() error {
	for _, f := range p.Files {
		if err := synth.WriteFile(filepath.Join(p.Dir, f.Name), f.New); err != nil {
			return err
		}
	}
	return nil
}

// Summary renders the per-symbol outcome counts and notes.
func (p *Plan) Summary() string {
	counts := make(map[Action]int)
	for _, e := range p.Entries {
		counts[e.Action]++
	}
	var b strings.Builder
	fmt.Fprintf(&b, "unchanged %d, rewritten %d, added %d, missing %d, removed %d, conflicts %d\n",
		counts[ActionUnchanged], counts[ActionRewrite], counts[ActionAdd],
		counts[ActionMissing], counts[ActionRemove], counts[ActionConflict])
	for _, e := range p.Entries {
		if e.Action == ActionUnchanged {
			continue
		}
		b.WriteString("  " + e.String() + "\n")
	}
	for _, n := range p.Notes {
		b.WriteString("  note: " + n + "\n")
	}
	return b.String()
}

func tagOfModelsFile(file string) string {
	return strings.TrimSuffix(strings.TrimPrefix(file, "models_"), ".go")
}

// formatDecl gofmts a lone declaration by wrapping it in a throwaway
// package clause, for order-insensitive comparison.
func formatDecl(text string) (string, error) {
	src, err := golang.Gofmt([]byte("package p\n\n" + strings.TrimSpace(text) + "\n"))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.TrimPrefix(string(src), "package p\n")), nil
}
