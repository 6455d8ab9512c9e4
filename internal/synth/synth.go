// Package synth renders generated client source from the extracted spec
// model. Function, params-struct and model declarations are rendered
// through the same helpers the updater uses, so a fresh generate and an
// update of an untouched tree produce byte-identical text.
package synth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/kolah/probekit/internal/generr"
	"github.com/kolah/probekit/internal/golang"
	"github.com/kolah/probekit/internal/mapper"
	"github.com/kolah/probekit/internal/model"
	"github.com/kolah/probekit/internal/templates"
)

// File is one rendered output file.
type File struct {
	Name    string
	Content []byte
}

// PathParam is a positional path argument of a generated function.
type PathParam struct {
	ArgName  string
	TypeExpr string
}

// FuncUnit is one rendered endpoint function plus its params struct. Doc,
// Signature and Body are kept separate because an update regenerates the
// first two while preserving a hand-edited body.
type FuncUnit struct {
	Key        model.EndpointKey
	Name       string
	ParamsType string
	ParamsText string // empty when the endpoint declares no fields
	Doc        string
	Signature  string
	Body       string
	Text       string
}

// ModelUnit is one rendered model declaration.
type ModelUnit struct {
	Name   string
	Origin string
	Text   string
}

// CrossRef points from a secondary tag's file to the function generated
// under the endpoint's primary tag.
type CrossRef struct {
	Method model.Method
	Path   string
	Owner  string
	Func   string
}

// TagUnit is everything rendered for one tag.
type TagUnit struct {
	Tag       string
	APIType   string
	Funcs     []FuncUnit
	Models    []ModelUnit
	CrossRefs []CrossRef
}

// Names carries the identities already present in a generated tree, keyed
// the way the updater matches them. Hand-chosen names win over derived
// defaults, so a rename survives every later update.
type Names struct {
	Func   map[model.EndpointKey]string
	Params map[model.EndpointKey]string
	Model  map[string]string // origin -> type name
}

// Options configures one build.
type Options struct {
	// App is the client name; it decides the package name and client type.
	App string
	// Env keys the first server URL in the generated config. Empty means
	// "dev".
	Env string
	// Source records where the document came from, for later updates.
	Source string
	// Names holds previously chosen identities; nil for a fresh generate.
	Names *Names
}

type Builder struct {
	engine templates.Engine
	report *generr.Report
}

func NewBuilder(engine templates.Engine, report *generr.Report) *Builder {
	return &Builder{engine: engine, report: report}
}

var placeholderRE = regexp.MustCompile(`^UnnamedEndpoint(\d+)$`)

type Header struct {
	SpecTitle   string
	SpecVersion string
}

// Result is one build's rendered files plus the per-tag units behind
// them; the updater joins the units against a scanned tree.
type Result struct {
	Files []File
	Units []TagUnit
}

// Build renders the complete client tree for spec in memory.
func (b *Builder) Build(spec *model.Spec, raw []byte, opts Options) (*Result, error) {
	if opts.Env == "" {
		opts.Env = "dev"
	}
	pkg := golang.PackageName(opts.App)
	hdr := Header{SpecTitle: spec.Title, SpecVersion: spec.Version}

	funcNames, paramsNames := b.assignNames(spec, opts.Names)

	var renames map[string]string
	if opts.Names != nil {
		renames = opts.Names.Model
	}
	reg := mapper.NewRegistryWithNames(renames)

	units, err := b.buildTags(spec, reg, funcNames, paramsNames)
	if err != nil {
		return nil, err
	}

	var files []File
	for _, tu := range units {
		f, err := b.renderTag(pkg, hdr, tu)
		if err != nil {
			return nil, err
		}
		files = append(files, f...)
	}

	shared, err := b.renderShared(spec, raw, pkg, hdr, opts, units)
	if err != nil {
		return nil, err
	}
	files = append(shared, files...)
	return &Result{Files: files, Units: units}, nil
}

// assignNames resolves every endpoint's function and params-struct name
// before any rendering, so cross-reference comments in other tags can name
// the owning function. Previously chosen names are kept verbatim; fresh
// nameless operations draw placeholder names from a per-tag counter that
// never reuses an index a prior run handed out.
func (b *Builder) assignNames(spec *model.Spec, prior *Names) (map[model.EndpointKey]string, map[model.EndpointKey]string) {
	funcNames := make(map[model.EndpointKey]string)
	paramsNames := make(map[model.EndpointKey]string)

	for _, tag := range spec.Tags {
		apiType := golang.Identifier(tag) + "API"
		taken := map[string]bool{apiType: true, "New" + apiType: true}
		next := 1

		if prior != nil {
			for key, name := range prior.Func {
				if key.Tag != tag {
					continue
				}
				taken[name] = true
				if m := placeholderRE.FindStringSubmatch(name); m != nil {
					if idx, err := strconv.Atoi(m[1]); err == nil && idx >= next {
						next = idx + 1
					}
				}
			}
		}

		for _, ep := range spec.ByTag(tag) {
			var name string
			if prior != nil {
				name = prior.Func[ep.Key]
			}
			if name == "" {
				name = defaultFuncName(&ep)
				if name == "" {
					for {
						name = "UnnamedEndpoint" + strconv.Itoa(next)
						next++
						if !taken[name] {
							break
						}
					}
				} else if taken[name] {
					base := name
					for n := 2; taken[name]; n++ {
						name = base + strconv.Itoa(n)
					}
				}
			}
			taken[name] = true
			funcNames[ep.Key] = name

			pName := ""
			if prior != nil {
				pName = prior.Params[ep.Key]
			}
			if pName == "" {
				pName = name + "Params"
			}
			paramsNames[ep.Key] = pName
		}
	}
	return funcNames, paramsNames
}

func defaultFuncName(ep *model.EndpointDescriptor) string {
	if ep.NameOverride != "" {
		return golang.Identifier(ep.NameOverride)
	}
	if ep.OperationID != "" {
		return golang.Identifier(ep.OperationID)
	}
	return ""
}

// buildTags maps and renders every tag's functions and models. A schema
// mapping failure skips that endpoint, a name collision abandons the tag;
// either way the rest of the run continues and the report records it.
func (b *Builder) buildTags(spec *model.Spec, reg *mapper.Registry, funcNames, paramsNames map[model.EndpointKey]string) ([]TagUnit, error) {
	var units []TagUnit
	apiTypes := make(map[string]string, len(spec.Tags))
	for _, tag := range spec.Tags {
		apiTypes[tag] = golang.Identifier(tag) + "API"
	}

	for _, tag := range spec.Tags {
		m := mapper.New(tag, reg, b.report)
		tu := TagUnit{Tag: tag, APIType: apiTypes[tag]}
		collided := false

		for _, ep := range spec.ByTag(tag) {
			fu, err := b.buildFunc(m, &ep, tu.APIType, funcNames[ep.Key], paramsNames[ep.Key])
			if err != nil {
				b.report.Add(err)
				if errors.Is(err, generr.ErrCollision) {
					collided = true
					break
				}
				continue
			}
			tu.Funcs = append(tu.Funcs, fu)
		}
		if collided {
			continue
		}

		for _, ep := range spec.MemberOf(tag) {
			if ep.Key.Tag == tag {
				continue
			}
			tu.CrossRefs = append(tu.CrossRefs, CrossRef{
				Method: ep.Key.Method,
				Path:   ep.Key.Path,
				Owner:  apiTypes[ep.Key.Tag],
				Func:   funcNames[ep.Key],
			})
		}

		for _, def := range reg.ModelsFor(tag) {
			tu.Models = append(tu.Models, ModelUnit{
				Name:   def.Name,
				Origin: def.Origin,
				Text:   RenderModel(def, def.Name),
			})
		}
		units = append(units, tu)
	}
	return units, nil
}

func (b *Builder) buildFunc(m *mapper.Mapper, ep *model.EndpointDescriptor, apiType, funcName, paramsType string) (FuncUnit, error) {
	pathParams := BuildPathParams(m, ep)

	fields, err := m.EndpointFields(ep, funcName)
	if err != nil {
		return FuncUnit{}, err
	}

	fu := FuncUnit{Key: ep.Key, Name: funcName}
	if len(fields) > 0 {
		fu.ParamsType = paramsType
		fu.ParamsText = RenderParams(ep.Key, paramsType, fields)
	}
	fu.Doc = FuncDoc(ep, funcName)
	fu.Signature = FuncSignature(apiType, funcName, pathParams, fu.ParamsType)
	fu.Body = FuncBody(ep, pathParams, fu.ParamsType)
	fu.Text = fu.Doc + fu.Signature + fu.Body
	return fu, nil
}

// BuildPathParams derives the positional argument list of an endpoint
// function, deduplicating against the fixed parameter names of the
// generated signature.
func BuildPathParams(m *mapper.Mapper, ep *model.EndpointDescriptor) []PathParam {
	reserved := map[string]bool{"ctx": true, "p": true, "opts": true, "a": true}
	out := make([]PathParam, 0, len(ep.PathParams))
	for _, pp := range ep.PathParams {
		arg := golang.LocalIdent(pp.Name)
		for reserved[arg] {
			arg += "Arg"
		}
		reserved[arg] = true
		out = append(out, PathParam{ArgName: arg, TypeExpr: m.PathType(pp.Schema)})
	}
	return out
}

func (b *Builder) renderTag(pkg string, hdr Header, tu TagUnit) ([]File, error) {
	snake := golang.FileStem(tu.Tag)

	apiData := struct {
		Header
		Package   string
		Tag       string
		APIType   string
		Funcs     []FuncUnit
		CrossRefs []CrossRef
	}{hdr, pkg, tu.Tag, tu.APIType, tu.Funcs, tu.CrossRefs}

	apiFile, err := b.renderFile("api.tmpl", "api_"+snake+".go", apiData)
	if err != nil {
		return nil, err
	}
	files := []File{apiFile}

	if len(tu.Models) > 0 {
		modelsData := struct {
			Header
			Package string
			Models  []ModelUnit
		}{hdr, pkg, tu.Models}
		modelsFile, err := b.renderFile("models.tmpl", "models_"+snake+".go", modelsData)
		if err != nil {
			return nil, err
		}
		files = append(files, modelsFile)
	}
	return files, nil
}

type envEntry struct {
	Name string
	URL  string
}

func (b *Builder) renderShared(spec *model.Spec, raw []byte, pkg string, hdr Header, opts Options, units []TagUnit) ([]File, error) {
	envs := b.envEntries(spec.Servers, opts.Env)

	configData := struct {
		Header
		Package    string
		Envs       []envEntry
		DefaultEnv string
	}{hdr, pkg, envs, envs[0].Name}
	configFile, err := b.renderFile("config.tmpl", "config.go", configData)
	if err != nil {
		return nil, err
	}

	type clientTag struct {
		Field   string
		APIType string
	}
	tags := make([]clientTag, 0, len(units))
	for _, tu := range units {
		tags = append(tags, clientTag{Field: golang.Identifier(tu.Tag), APIType: tu.APIType})
	}
	clientData := struct {
		Header
		Package    string
		ClientType string
		Tags       []clientTag
	}{hdr, pkg, golang.Identifier(opts.App) + "Client", tags}
	clientFile, err := b.renderFile("client.tmpl", "client.go", clientData)
	if err != nil {
		return nil, err
	}

	specData := struct {
		Header
		Package string
		Source  string
		RawSpec string
	}{hdr, pkg, opts.Source, goStringLiteral(raw)}
	specFile, err := b.renderFile("spec.tmpl", "spec.go", specData)
	if err != nil {
		return nil, err
	}

	return []File{configFile, clientFile, specFile}, nil
}

// envEntries keys the document's servers: the first under the chosen
// environment name, the rest under a name derived from their description.
func (b *Builder) envEntries(servers []model.Server, env string) []envEntry {
	if len(servers) == 0 {
		b.report.Warnf("document declares no servers; using a localhost placeholder base URL")
		return []envEntry{{Name: env, URL: "http://localhost"}}
	}

	var out []envEntry
	taken := make(map[string]bool)
	for i, s := range servers {
		name := env
		if i > 0 {
			name = golang.SnakeCase(s.Description)
			if name == "" {
				name = "env" + strconv.Itoa(i+1)
			}
		}
		base := name
		for n := 2; taken[name]; n++ {
			name = base + strconv.Itoa(n)
		}
		taken[name] = true
		out = append(out, envEntry{Name: name, URL: s.URL})
	}
	return out
}

func (b *Builder) renderFile(tmpl, name string, data any) (File, error) {
	content, err := b.engine.Execute(tmpl, data)
	if err != nil {
		return File{}, fmt.Errorf("rendering %s: %w", name, err)
	}
	formatted, err := golang.Format([]byte(content))
	if err != nil {
		return File{}, fmt.Errorf("formatting %s: %w", name, err)
	}
	return File{Name: name, Content: formatted}, nil
}

// goStringLiteral renders raw as a Go constant expression, preferring a
// raw string literal when the document contains no backticks.
func goStringLiteral(raw []byte) string {
	s := string(raw)
	if !strings.Contains(s, "`") {
		return "`" + s + "`"
	}
	return strconv.Quote(s)
}

// WriteFiles writes every file into dir atomically: full content to a temp
// file in the same directory, then rename.
func WriteFiles(dir string, files []File) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	for _, f := range files {
		if err := WriteFile(filepath.Join(dir, f.Name), f.Content); err != nil {
			return err
		}
	}
	return nil
}

// WriteFile atomically replaces path with content.
func WriteFile(path string, content []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
