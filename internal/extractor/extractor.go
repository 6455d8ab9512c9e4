// Package extractor walks resolved paths and operations in document order
// and produces the ordered EndpointDescriptor collection the synthesizer and
// reconciler consume.
package extractor

import (
	"errors"
	"fmt"

	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"
	"go.yaml.in/yaml/v4"

	"github.com/kolah/probekit/internal/generr"
	"github.com/kolah/probekit/internal/loader"
	"github.com/kolah/probekit/internal/model"
	"github.com/kolah/probekit/internal/resolver"
)

// Extract builds the spec view from a loaded document. Per-endpoint problems
// are collected into report; document-level resolution failures abort.
func Extract(res *loader.Result, r *resolver.Resolver, report *generr.Report) (*model.Spec, error) {
	doc := res.Document.Model

	spec := &model.Spec{}
	if doc.Info != nil {
		spec.Title = doc.Info.Title
		spec.Version = doc.Info.Version
	}
	for _, s := range doc.Servers {
		spec.Servers = append(spec.Servers, model.Server{URL: s.URL, Description: s.Description})
	}

	seenTags := map[string]bool{}
	for pathStr, pathItem := range doc.Paths.PathItems.FromOldest() {
		for _, m := range pathMethods(pathItem) {
			if m.op == nil {
				continue
			}
			ep, err := extractOperation(pathStr, m.method, pathItem, m.op, r, report)
			if err != nil {
				// Unresolvable pointers are configuration errors: abort the
				// run rather than emitting partial code. Everything else is
				// fatal for the one endpoint only.
				if errors.Is(err, generr.ErrResolution) {
					return nil, err
				}
				report.Add(err)
				continue
			}
			if ep == nil {
				continue
			}
			spec.Endpoints = append(spec.Endpoints, *ep)
			// Secondary tags materialize too, so cross-references have a
			// class to point at.
			for _, tag := range ep.Tags {
				if !seenTags[tag] {
					seenTags[tag] = true
					spec.Tags = append(spec.Tags, tag)
				}
			}
		}
	}

	return spec, nil
}

type methodOp struct {
	method model.Method
	op     *v3.Operation
}

// pathMethods returns operations in a fixed method order for determinism.
func pathMethods(pathItem *v3.PathItem) []methodOp {
	return []methodOp{
		{model.MethodGet, pathItem.Get},
		{model.MethodPost, pathItem.Post},
		{model.MethodPut, pathItem.Put},
		{model.MethodDelete, pathItem.Delete},
		{model.MethodPatch, pathItem.Patch},
		{model.MethodHead, pathItem.Head},
		{model.MethodOptions, pathItem.Options},
		{model.MethodTrace, pathItem.Trace},
	}
}

func extractOperation(pathStr string, method model.Method, pathItem *v3.PathItem, op *v3.Operation, r *resolver.Resolver, report *generr.Report) (*model.EndpointDescriptor, error) {
	loc := fmt.Sprintf("%s %s", method, pathStr)

	if len(op.Tags) == 0 {
		return nil, fmt.Errorf("%s: operation has no tags; every endpoint must belong to a generable tag", loc)
	}

	ep := &model.EndpointDescriptor{
		Key:          model.EndpointKey{Tag: op.Tags[0], Method: method, Path: pathStr},
		Tags:         append([]string(nil), op.Tags...),
		OperationID:  op.OperationId,
		Summary:      op.Summary,
		Description:  op.Description,
		Deprecated:   op.Deprecated != nil && *op.Deprecated,
		Public:       op.Security != nil && len(op.Security) == 0,
		NameOverride: operationNameOverride(op),
	}

	// Path-item level parameters apply to every operation; operation-level
	// declarations override by (name, in).
	params := mergeParameters(pathItem.Parameters, op.Parameters)
	var pathParams []model.Param
	for _, p := range params {
		schema, err := r.ResolveProxy(p.Schema, loc+" parameter "+p.Name)
		if err != nil {
			return nil, err
		}
		switch p.In {
		case "path":
			pathParams = append(pathParams, model.Param{Name: p.Name, Required: true, Schema: schema})
		case "query":
			required := p.Required != nil && *p.Required
			ep.QueryParams = append(ep.QueryParams, model.Param{Name: p.Name, Required: required, Schema: schema})
		default:
			report.Warnf("%s: %s parameter %q not generable, set it per call via rest options", loc, p.In, p.Name)
		}
	}
	ep.PathParams = orderByTemplate(pathStr, pathParams)

	if op.RequestBody != nil {
		body, contentType, err := extractBody(op.RequestBody, r, loc)
		if err != nil {
			return nil, err
		}
		if body != nil && body.Kind == model.KindAny {
			report.Warnf("%s: request body degraded to untyped mapping", loc)
		}
		ep.Body = body
		ep.ContentType = contentType
	}

	return ep, nil
}

func mergeParameters(shared, own []*v3.Parameter) []*v3.Parameter {
	if len(shared) == 0 {
		return own
	}
	merged := make([]*v3.Parameter, 0, len(shared)+len(own))
	overridden := func(p *v3.Parameter) bool {
		for _, o := range own {
			if o.Name == p.Name && o.In == p.In {
				return true
			}
		}
		return false
	}
	for _, p := range shared {
		if !overridden(p) {
			merged = append(merged, p)
		}
	}
	return append(merged, own...)
}

// orderByTemplate reorders path parameters by their appearance in the path
// template. This ordering is load-bearing: generated functions expose path
// parameters positionally in this exact order.
func orderByTemplate(pathStr string, params []model.Param) []model.Param {
	placeholders := model.PathPlaceholders(pathStr)
	var ordered []model.Param
	taken := map[string]bool{}
	for _, name := range placeholders {
		for _, p := range params {
			if p.Name == name && !taken[name] {
				taken[name] = true
				p.Required = true
				ordered = append(ordered, p)
			}
		}
	}
	// Declared path parameters that never appear in the template keep their
	// declaration order at the end.
	for _, p := range params {
		if !taken[p.Name] {
			ordered = append(ordered, p)
		}
	}
	return ordered
}

func extractBody(rb *v3.RequestBody, r *resolver.Resolver, loc string) (*model.SchemaNode, string, error) {
	if rb.Content == nil || rb.Content.Len() == 0 {
		return nil, "", nil
	}

	// Prefer application/json; otherwise the first documented media type.
	var contentType string
	var media *v3.MediaType
	for mt, content := range rb.Content.FromOldest() {
		if media == nil {
			contentType = mt
			media = content
		}
		if mt == "application/json" {
			contentType = mt
			media = content
			break
		}
	}

	if media == nil || media.Schema == nil {
		required := rb.Required != nil && *rb.Required
		if required {
			return nil, "", &generr.SchemaMappingError{Context: loc, Shape: "request body without schema", Fatal: true}
		}
		return nil, contentType, nil
	}

	schema, err := r.ResolveProxy(media.Schema, loc+" body")
	if err != nil {
		return nil, "", err
	}
	return schema, contentType, nil
}

func operationNameOverride(op *v3.Operation) string {
	if op.Extensions == nil {
		return ""
	}
	for pair := op.Extensions.First(); pair != nil; pair = pair.Next() {
		if pair.Key() != "x-probekit-name" {
			continue
		}
		if node := pair.Value(); node != nil && node.Kind == yaml.ScalarNode {
			return node.Value
		}
	}
	return ""
}
