// Package resolver expands libopenapi schema proxies into fully resolved
// SchemaNode trees. Resolution happens exactly once per distinct pointer via
// a cache keyed by pointer string; a pointer that references itself through
// its own transitive structure is broken with a named KindRef placeholder
// instead of recursing.
package resolver

import (
	"strings"

	"github.com/pb33f/libopenapi"
	"github.com/pb33f/libopenapi/datamodel/high/base"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"
	"github.com/pb33f/libopenapi/orderedmap"
	"go.yaml.in/yaml/v4"

	"github.com/kolah/probekit/internal/generr"
	"github.com/kolah/probekit/internal/model"
)

// Resolver resolves $ref pointers against one document.
type Resolver struct {
	// components maps schema objects back to their component name, so a
	// proxy that points at a component without carrying a reference string
	// still resolves to a named node (and participates in cycle breaking).
	components map[*base.Schema]string

	cache     map[string]*model.SchemaNode
	resolving map[string]bool
	// stack is the pointer chain of the current resolution, for error
	// diagnostics.
	stack []string

	report *generr.Report
}

// New builds a resolver over the document's component schemas.
func New(doc *libopenapi.DocumentModel[v3.Document], report *generr.Report) *Resolver {
	r := &Resolver{
		components: make(map[*base.Schema]string),
		cache:      make(map[string]*model.SchemaNode),
		resolving:  make(map[string]bool),
		report:     report,
	}
	if doc != nil && doc.Model.Components != nil && doc.Model.Components.Schemas != nil {
		for name, proxy := range doc.Model.Components.Schemas.FromOldest() {
			if s := proxy.Schema(); s != nil {
				r.components[s] = name
			}
		}
	}
	return r
}

// Component resolves the named component schema.
func (r *Resolver) Component(name string) (*model.SchemaNode, error) {
	for s, n := range r.components {
		if n == name {
			return r.resolveNamed(componentPointer(name), s)
		}
	}
	return nil, &generr.ReferenceResolutionError{Ref: componentPointer(name), Chain: r.chain()}
}

// ResolveProxy resolves a schema proxy into a SchemaNode. ctx names the
// location being resolved (tag, path/method, or pointer) for diagnostics.
func (r *Resolver) ResolveProxy(proxy *base.SchemaProxy, ctx string) (*model.SchemaNode, error) {
	if proxy == nil {
		return nil, nil
	}

	ref := proxy.GetReference()
	s := proxy.Schema()
	if s == nil {
		if ref == "" {
			ref = ctx
		}
		return nil, &generr.ReferenceResolutionError{Ref: ref, Chain: r.chain(), Cause: proxy.GetBuildError()}
	}

	pointer := ref
	if pointer == "" {
		if name, ok := r.components[s]; ok {
			pointer = componentPointer(name)
		}
	}
	if pointer == "" {
		// Plain inline schema, no identity to cache under.
		return r.convert(s, ctx)
	}
	return r.resolveNamed(pointer, s)
}

func (r *Resolver) resolveNamed(pointer string, s *base.Schema) (*model.SchemaNode, error) {
	if node, ok := r.cache[pointer]; ok {
		return node, nil
	}
	if r.resolving[pointer] {
		// An ancestor on the resolution stack references this pointer:
		// substitute a forward-reference placeholder.
		return &model.SchemaNode{Kind: model.KindRef, Ref: pointerName(pointer)}, nil
	}

	r.resolving[pointer] = true
	r.stack = append(r.stack, pointer)
	node, err := r.convert(s, pointer)
	r.stack = r.stack[:len(r.stack)-1]
	delete(r.resolving, pointer)
	if err != nil {
		return nil, err
	}

	node.Ref = pointerName(pointer)
	r.cache[pointer] = node
	return node, nil
}

func (r *Resolver) convert(s *base.Schema, ctx string) (*model.SchemaNode, error) {
	node := &model.SchemaNode{
		Title:       s.Title,
		Description: s.Description,
		Format:      s.Format,
		HasDefault:  s.Default != nil,
	}

	node.Nullable = isNullable(s)
	node.Constraints = constraintsOf(s)
	node.NameOverride = nameOverride(s.Extensions)

	// anyOf [X, null] collapses to a nullable wrapper around X. This is the
	// sole composition pattern mapped losslessly; other anyOf/oneOf shapes
	// degrade to the untyped fallback.
	if len(s.AnyOf) > 0 {
		if inner := nullableAlternative(s.AnyOf); inner != nil {
			resolved, err := r.ResolveProxy(inner, ctx)
			if err != nil {
				return nil, err
			}
			wrapped := *resolved
			wrapped.Nullable = true
			wrapped.NameOverride = node.NameOverride
			return &wrapped, nil
		}
		r.report.Warnf("%s: unsupported anyOf shape, falling back to untyped", ctx)
		node.Kind = model.KindAny
		return node, nil
	}
	if len(s.OneOf) > 0 {
		r.report.Warnf("%s: unsupported oneOf shape, falling back to untyped", ctx)
		node.Kind = model.KindAny
		return node, nil
	}
	if len(s.AllOf) > 0 {
		return r.flattenAllOf(s, node, ctx)
	}

	kind, nullType := kindOf(s)
	if nullType {
		node.Nullable = true
	}
	node.Kind = kind

	switch kind {
	case model.KindObject:
		if err := r.convertProperties(s, node, ctx); err != nil {
			return nil, err
		}
	case model.KindArray:
		if s.Items != nil && s.Items.A != nil {
			items, err := r.ResolveProxy(s.Items.A, ctx)
			if err != nil {
				return nil, err
			}
			node.Items = items
		} else {
			node.Items = &model.SchemaNode{Kind: model.KindAny}
		}
	}

	if len(s.Enum) > 0 {
		node.EnumBase = node.Kind
		node.Kind = model.KindEnum
		for _, e := range s.Enum {
			node.Enum = append(node.Enum, decodeYAML(e))
		}
	}

	return node, nil
}

// flattenAllOf merges object members in declaration order. Non-object
// members make the whole node degrade to the untyped fallback.
func (r *Resolver) flattenAllOf(s *base.Schema, node *model.SchemaNode, ctx string) (*model.SchemaNode, error) {
	node.Kind = model.KindObject
	seen := map[string]bool{}
	for _, proxy := range s.AllOf {
		member, err := r.ResolveProxy(proxy, ctx)
		if err != nil {
			return nil, err
		}
		if member.Kind != model.KindObject && member.Kind != model.KindRef {
			r.report.Warnf("%s: allOf member is not an object, falling back to untyped", ctx)
			node.Kind = model.KindAny
			node.Properties = nil
			return node, nil
		}
		for _, p := range member.Properties {
			if seen[p.Name] {
				continue
			}
			seen[p.Name] = true
			node.Properties = append(node.Properties, p)
		}
	}
	if err := r.convertProperties(s, node, ctx); err != nil {
		return nil, err
	}
	return node, nil
}

func (r *Resolver) convertProperties(s *base.Schema, node *model.SchemaNode, ctx string) error {
	if s.Properties == nil {
		return nil
	}
	required := map[string]bool{}
	for _, name := range s.Required {
		required[name] = true
	}
	for name, proxy := range s.Properties.FromOldest() {
		prop, err := r.ResolveProxy(proxy, ctx+"/"+name)
		if err != nil {
			return err
		}
		node.Properties = append(node.Properties, model.Property{
			Name:     name,
			Schema:   prop,
			Required: required[name],
		})
	}
	return nil
}

func (r *Resolver) chain() []string {
	out := make([]string, len(r.stack))
	copy(out, r.stack)
	return out
}

// nullableAlternative returns the non-null proxy when proxies is exactly one
// schema plus one null-type alternative.
func nullableAlternative(proxies []*base.SchemaProxy) *base.SchemaProxy {
	if len(proxies) != 2 {
		return nil
	}
	for i, p := range proxies {
		s := p.Schema()
		if s != nil && len(s.Type) == 1 && s.Type[0] == "null" {
			return proxies[1-i]
		}
	}
	return nil
}

func kindOf(s *base.Schema) (kind model.Kind, nullType bool) {
	var declared string
	for _, t := range s.Type {
		if t == "null" {
			nullType = true
			continue
		}
		if declared == "" {
			declared = t
		}
	}

	switch declared {
	case "string":
		kind = model.KindString
	case "integer":
		kind = model.KindInteger
	case "number":
		kind = model.KindNumber
	case "boolean":
		kind = model.KindBoolean
	case "array":
		kind = model.KindArray
	case "object":
		kind = model.KindObject
	case "":
		if s.Properties != nil && s.Properties.Len() > 0 {
			kind = model.KindObject
		} else if nullType {
			kind = model.KindNull
		} else {
			kind = model.KindAny
		}
	default:
		kind = model.KindAny
	}
	return kind, nullType
}

func isNullable(s *base.Schema) bool {
	return s.Nullable != nil && *s.Nullable
}

func constraintsOf(s *base.Schema) model.Constraints {
	var c model.Constraints
	if s.MinLength != nil {
		v := int64(*s.MinLength)
		c.MinLength = &v
	}
	if s.MaxLength != nil {
		v := int64(*s.MaxLength)
		c.MaxLength = &v
	}
	if s.Minimum != nil {
		v := float64(*s.Minimum)
		c.Minimum = &v
	}
	if s.Maximum != nil {
		v := float64(*s.Maximum)
		c.Maximum = &v
	}
	if s.MultipleOf != nil {
		v := float64(*s.MultipleOf)
		c.MultipleOf = &v
	}
	if s.MinItems != nil {
		v := int64(*s.MinItems)
		c.MinItems = &v
	}
	if s.MaxItems != nil {
		v := int64(*s.MaxItems)
		c.MaxItems = &v
	}
	c.Pattern = s.Pattern
	return c
}

func nameOverride(extensions *orderedmap.Map[string, *yaml.Node]) string {
	if extensions == nil {
		return ""
	}
	for pair := extensions.First(); pair != nil; pair = pair.Next() {
		if pair.Key() != "x-probekit-name" {
			continue
		}
		if node := pair.Value(); node != nil && node.Kind == yaml.ScalarNode {
			return node.Value
		}
	}
	return ""
}

func componentPointer(name string) string {
	return "#/components/schemas/" + name
}

func pointerName(pointer string) string {
	parts := strings.Split(pointer, "/")
	return parts[len(parts)-1]
}

func decodeYAML(node *yaml.Node) any {
	if node == nil {
		return nil
	}
	var v any
	if err := node.Decode(&v); err != nil {
		return node.Value
	}
	return v
}
