package synth

import (
	"fmt"
	"strings"

	"github.com/kolah/probekit/internal/model"
)

// Directive names carried in generated doc comments. The endpoint, params
// and model directives are identity: updates match symbols through them,
// never through display names.
const (
	DirectiveEndpoint    = "probekit:endpoint"
	DirectiveParams      = "probekit:params"
	DirectiveModel       = "probekit:model"
	DirectiveContentType = "probekit:content-type"
	DirectiveDeprecated  = "probekit:deprecated"
	DirectivePublic      = "probekit:public"
)

// EndpointDirective renders the identity line for an endpoint function.
func EndpointDirective(key model.EndpointKey) string {
	return fmt.Sprintf("//%s %s %s %s", DirectiveEndpoint, key.Tag, key.Method, key.Path)
}

// ParamsDirective renders the identity line for a params struct.
func ParamsDirective(key model.EndpointKey) string {
	return fmt.Sprintf("//%s %s %s %s", DirectiveParams, key.Tag, key.Method, key.Path)
}

// ModelDirective renders the identity line for a model struct.
func ModelDirective(origin string) string {
	return fmt.Sprintf("//%s %s", DirectiveModel, origin)
}

// FuncDoc renders the full doc comment of an endpoint function: a summary
// line, the document's description, and the managed directives. Updates
// regenerate exactly this block, so hand edits belong in the body, not
// here.
func FuncDoc(ep *model.EndpointDescriptor, funcName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "// %s issues %s %s.\n", funcName, ep.Key.Method, ep.Key.Path)
	b.WriteString("//\n")
	for _, line := range wrapComment(ep.Doc(), 74) {
		b.WriteString("// " + line + "\n")
	}
	b.WriteString("//\n")
	b.WriteString(EndpointDirective(ep.Key) + "\n")
	if ep.ContentType != "" {
		fmt.Fprintf(&b, "//%s %s\n", DirectiveContentType, ep.ContentType)
	}
	if ep.Deprecated {
		fmt.Fprintf(&b, "//%s\n", DirectiveDeprecated)
	}
	if ep.Public {
		fmt.Fprintf(&b, "//%s\n", DirectivePublic)
	}
	return b.String()
}

// FuncSignature renders an endpoint function's signature: ctx first, path
// parameters positionally in template order, the params-struct pointer when
// declared fields exist, and a trailing call-option catch-all.
func FuncSignature(apiType, funcName string, pathParams []PathParam, paramsType string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "func (a *%s) %s(ctx context.Context", apiType, funcName)
	for _, p := range pathParams {
		fmt.Fprintf(&b, ", %s %s", p.ArgName, p.TypeExpr)
	}
	if paramsType != "" {
		fmt.Fprintf(&b, ", p *%s", paramsType)
	}
	b.WriteString(", opts ...rest.CallOption) (*rest.Response, error)")
	return b.String()
}

// FuncBody renders the canonical Invoke body.
func FuncBody(ep *model.EndpointDescriptor, pathParams []PathParam, paramsType string) string {
	var b strings.Builder
	b.WriteString(" {\n")
	b.WriteString("\treturn a.Invoke(ctx, api.Endpoint{\n")
	fmt.Fprintf(&b, "\t\tTag:    %q,\n", ep.Key.Tag)
	fmt.Fprintf(&b, "\t\tMethod: %q,\n", ep.Key.Method)
	fmt.Fprintf(&b, "\t\tPath:   %q,\n", ep.Key.Path)
	if ep.ContentType != "" {
		fmt.Fprintf(&b, "\t\tContentType: %q,\n", ep.ContentType)
	}
	if ep.Deprecated {
		b.WriteString("\t\tDeprecated: true,\n")
	}
	if ep.Public {
		b.WriteString("\t\tPublic: true,\n")
	}
	b.WriteString("\t}, ")
	if len(pathParams) == 0 {
		b.WriteString("nil, ")
	} else {
		b.WriteString("[]any{")
		for i, p := range pathParams {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(p.ArgName)
		}
		b.WriteString("}, ")
	}
	if paramsType != "" {
		b.WriteString("param.Collect(p), ")
	} else {
		b.WriteString("nil, ")
	}
	b.WriteString("opts...)\n}")
	return b.String()
}

// RenderFunc assembles a complete endpoint function declaration.
func RenderFunc(ep *model.EndpointDescriptor, apiType, funcName string, pathParams []PathParam, paramsType string) string {
	return FuncDoc(ep, funcName) + FuncSignature(apiType, funcName, pathParams, paramsType) + FuncBody(ep, pathParams, paramsType)
}

// RenderParams renders an endpoint's params struct. Every field is a
// sentinel param.Field so the zero value means "omit from the request".
func RenderParams(key model.EndpointKey, paramsType string, fields []model.ParamFieldSpec) string {
	var b strings.Builder
	fmt.Fprintf(&b, "// %s holds the declared query and body parameters of %s %s.\n", paramsType, key.Method, key.Path)
	b.WriteString("// Every field is optional; the zero value is omitted from the request.\n")
	b.WriteString("//\n")
	b.WriteString(ParamsDirective(key) + "\n")
	fmt.Fprintf(&b, "type %s struct {\n", paramsType)
	for _, f := range fields {
		b.WriteString("\t" + StructField(f) + "\n")
	}
	b.WriteString("}")
	return b.String()
}

// RenderModel renders a registered model declaration.
func RenderModel(def model.ModelDef, name string) string {
	var b strings.Builder
	if def.Doc != "" {
		for _, line := range wrapComment(def.Doc, 74) {
			b.WriteString("// " + line + "\n")
		}
	} else {
		fmt.Fprintf(&b, "// %s mirrors the %s schema.\n", name, def.Origin)
	}
	b.WriteString("//\n")
	b.WriteString(ModelDirective(def.Origin) + "\n")
	fmt.Fprintf(&b, "type %s struct {\n", name)
	for _, f := range def.Fields {
		b.WriteString("\t" + StructField(f) + "\n")
	}
	b.WriteString("}")
	return b.String()
}

// StructField renders one sentinel field declaration with its metadata
// tags. gofmt aligns the columns afterwards.
func StructField(f model.ParamFieldSpec) string {
	return fmt.Sprintf("%s param.Field[%s] `%s`", f.GoName, f.TypeExpr, fieldTag(f))
}

// fieldTag renders the struct tag: wire name and location first, then the
// documented metadata the runtime and readers inspect.
func fieldTag(f model.ParamFieldSpec) string {
	parts := []string{
		fmt.Sprintf("json:%q", f.Name+",omitzero"),
		fmt.Sprintf("in:%q", f.In),
	}
	if f.Format != "" {
		parts = append(parts, fmt.Sprintf("format:%q", f.Format))
	}
	if len(f.Enum) > 0 {
		vals := make([]string, len(f.Enum))
		for i, v := range f.Enum {
			vals[i] = fmt.Sprintf("%v", v)
		}
		parts = append(parts, fmt.Sprintf("enum:%q", strings.Join(vals, ",")))
	}
	if tag := f.Constraints.Tag(); tag != "" {
		parts = append(parts, fmt.Sprintf("constraint:%q", tag))
	}
	if f.Required {
		parts = append(parts, `required:"true"`)
	}
	if f.Nullable {
		parts = append(parts, `nullable:"true"`)
	}
	return strings.Join(parts, " ")
}

// wrapComment word-wraps text for a doc comment. Existing newlines are
// paragraph breaks.
func wrapComment(text string, width int) []string {
	var lines []string
	for _, para := range strings.Split(strings.TrimSpace(text), "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		line := words[0]
		for _, w := range words[1:] {
			if len(line)+1+len(w) > width {
				lines = append(lines, line)
				line = w
				continue
			}
			line += " " + w
		}
		lines = append(lines, line)
	}
	return lines
}
