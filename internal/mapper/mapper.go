// Package mapper converts resolved SchemaNodes into parameter-field
// declarations and registers the named models that nested objects require.
// Every body/query field is declared optional-with-sentinel; the documented
// required list is carried as metadata only, because the tool's purpose is
// to allow deliberately malformed calls.
package mapper

import (
	"github.com/kolah/probekit/internal/generr"
	"github.com/kolah/probekit/internal/golang"
	"github.com/kolah/probekit/internal/model"
)

// Mapper maps schemas for one tag into a client-wide model registry. All
// tags of a client share one generated package, so a component model is
// declared once, in the file of whichever tag registered it first.
type Mapper struct {
	tag    string
	reg    *Registry
	report *generr.Report
}

func New(tag string, reg *Registry, report *generr.Report) *Mapper {
	return &Mapper{tag: tag, reg: reg, report: report}
}

// EndpointFields derives the keyword-field set of a generated function:
// query parameters first, then the top-level properties of the request-body
// schema, both in declaration order.
func (m *Mapper) EndpointFields(ep *model.EndpointDescriptor, paramsModel string) ([]model.ParamFieldSpec, error) {
	var fields []model.ParamFieldSpec

	for _, q := range ep.QueryParams {
		f, err := m.Field(q.Name, "query", q.Schema, q.Required, paramsModel)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}

	if ep.Body != nil {
		switch {
		case ep.Body.IsObject():
			for _, p := range ep.Body.Properties {
				f, err := m.Field(p.Name, "body", p.Schema, p.Required, paramsModel)
				if err != nil {
					return nil, err
				}
				fields = append(fields, f)
			}
		case ep.Body.Kind == model.KindObject, ep.Body.Kind == model.KindAny:
			// Untyped body: nothing to declare, the catch-all accepts keys.
		default:
			m.report.Warnf("%s %s: %s request body has no keyword form, pass it with rest.WithRawBody",
				ep.Key.Method, ep.Key.Path, ep.Body.Kind)
		}
	}

	return fields, nil
}

// Field maps one named schema into a ParamFieldSpec, registering nested
// models as a side effect.
func (m *Mapper) Field(name, in string, node *model.SchemaNode, required bool, enclosing string) (model.ParamFieldSpec, error) {
	spec := model.ParamFieldSpec{
		Name:     name,
		GoName:   golang.Identifier(name),
		In:       in,
		Required: required,
	}
	if node == nil {
		spec.TypeExpr = "any"
		return spec, nil
	}

	expr, err := m.typeExpr(node, enclosing, name)
	if err != nil {
		return spec, err
	}
	spec.TypeExpr = expr
	spec.Format = node.Format
	spec.Constraints = node.Constraints
	spec.Nullable = node.Nullable
	spec.HasDefault = node.HasDefault
	spec.Enum = node.Enum
	spec.Doc = node.Description
	return spec, nil
}

// PathType maps a path parameter's schema. Path parameters are primitive
// in practice; any other shape degrades to string.
func (m *Mapper) PathType(node *model.SchemaNode) string {
	if node == nil {
		return "string"
	}
	switch node.Kind {
	case model.KindString, model.KindInteger, model.KindNumber, model.KindBoolean, model.KindEnum:
		if expr, err := m.typeExpr(node, "", ""); err == nil {
			return expr
		}
	}
	return "string"
}

// typeExpr maps a node to its Go type expression. Nested objects register a
// named model and return its name.
func (m *Mapper) typeExpr(node *model.SchemaNode, enclosing, propName string) (string, error) {
	switch node.Kind {
	case model.KindString:
		return "string", nil
	case model.KindInteger:
		switch node.Format {
		case "int32":
			return "int32", nil
		case "int64":
			return "int64", nil
		}
		return "int", nil
	case model.KindNumber:
		if node.Format == "float" {
			return "float32", nil
		}
		return "float64", nil
	case model.KindBoolean:
		return "bool", nil
	case model.KindArray:
		item, err := m.typeExpr(node.Items, enclosing, propName)
		if err != nil {
			return "", err
		}
		return "[]" + item, nil
	case model.KindEnum:
		base := &model.SchemaNode{Kind: node.EnumBase, Format: node.Format}
		if node.EnumBase == "" {
			base.Kind = model.KindAny
		}
		return m.typeExpr(base, enclosing, propName)
	case model.KindRef:
		// Forward reference out of a resolution cycle: the named model is
		// registered by whoever resolves the full component.
		if renamed, ok := m.reg.rename(node.Ref); ok {
			return renamed, nil
		}
		return golang.Identifier(node.Ref), nil
	case model.KindObject:
		if !node.IsObject() {
			return "map[string]any", nil
		}
		return m.registerObject(node, enclosing, propName)
	case model.KindNull, model.KindAny, "":
		return "any", nil
	default:
		m.report.Warnf("tag %s: schema kind %q has no mapping, using untyped fallback", m.tag, node.Kind)
		return "any", nil
	}
}

// modelName derives a nested model's name: an explicit override wins, a
// component schema reuses its declared name, and an inline object gets
// enclosing model + property, title-cased.
func (m *Mapper) modelName(node *model.SchemaNode, enclosing, propName string) string {
	if node.NameOverride != "" {
		return golang.Identifier(node.NameOverride)
	}
	if node.Ref != "" {
		return golang.Identifier(node.Ref)
	}
	if node.Title != "" {
		return golang.Identifier(node.Title)
	}
	return golang.Identifier(enclosing) + golang.Identifier(propName)
}

func (m *Mapper) registerObject(node *model.SchemaNode, enclosing, propName string) (string, error) {
	origin := node.Ref
	if origin == "" {
		origin = enclosing + "." + propName
	}
	name, ok := m.reg.rename(origin)
	if !ok {
		name = m.modelName(node, enclosing, propName)
	}
	if m.reg.has(name, origin) {
		return name, nil
	}

	def := model.ModelDef{Name: name, Origin: origin, Tag: m.tag, Doc: node.Description}
	for _, p := range node.Properties {
		f, err := m.Field(p.Name, "body", p.Schema, p.Required, name)
		if err != nil {
			return "", err
		}
		def.Fields = append(def.Fields, f)
	}
	if err := m.reg.add(def); err != nil {
		return "", err
	}
	return name, nil
}

// Registry holds a client's ordered model declarations, shared by every
// tag's mapper. A model registered under the same origin twice is deduped;
// two different origins competing for one name collide.
type Registry struct {
	models  []model.ModelDef
	index   map[string]string // name -> origin
	renames map[string]string // origin -> name the user chose
}

func NewRegistry() *Registry {
	return &Registry{index: make(map[string]string)}
}

// NewRegistryWithNames builds a registry that honors previously chosen
// names: when an origin appears in renames, its model keeps that name
// instead of the derived default. Updates use this so a hand-renamed type
// stays renamed.
func NewRegistryWithNames(renames map[string]string) *Registry {
	r := NewRegistry()
	r.renames = renames
	return r
}

func (r *Registry) rename(origin string) (string, bool) {
	name, ok := r.renames[origin]
	return name, ok && name != ""
}

// Models returns all registered declarations in registration order.
func (r *Registry) Models() []model.ModelDef { return r.models }

// ModelsFor returns the declarations owned by one tag, in registration
// order. A model is owned by the tag whose mapper registered it first.
func (r *Registry) ModelsFor(tag string) []model.ModelDef {
	var out []model.ModelDef
	for _, def := range r.models {
		if def.Tag == tag {
			out = append(out, def)
		}
	}
	return out
}

func (r *Registry) has(name, origin string) bool {
	o, ok := r.index[name]
	return ok && o == origin
}

func (r *Registry) add(def model.ModelDef) error {
	if origin, ok := r.index[def.Name]; ok {
		if origin == def.Origin {
			return nil
		}
		return &generr.NameCollisionError{Tag: def.Tag, Name: def.Name, A: origin, B: def.Origin}
	}
	r.index[def.Name] = def.Origin
	r.models = append(r.models, def)
	return nil
}
