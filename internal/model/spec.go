package model

// Spec is the extracted, fully resolved view of one OpenAPI document.
// It is rebuilt from scratch on every run; nothing is persisted.
type Spec struct {
	Title   string
	Version string
	Servers []Server

	// Endpoints in path-then-method document order.
	Endpoints []EndpointDescriptor

	// Tags in first-appearance order across primary tags.
	Tags []string
}

type Server struct {
	URL         string
	Description string
}

// ByTag returns the endpoints whose primary tag is tag, in document order.
func (s *Spec) ByTag(tag string) []EndpointDescriptor {
	var out []EndpointDescriptor
	for _, e := range s.Endpoints {
		if e.Key.Tag == tag {
			out = append(out, e)
		}
	}
	return out
}

// MemberOf returns the endpoints associated with tag through any position in
// their tag list, including those generated under a different primary tag.
func (s *Spec) MemberOf(tag string) []EndpointDescriptor {
	var out []EndpointDescriptor
	for _, e := range s.Endpoints {
		for _, t := range e.Tags {
			if t == tag {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// ParamFieldSpec is one field of a generated parameter model or function
// signature, derived from a SchemaNode property. Every body/query field is
// declared optional-with-sentinel regardless of the spec's required list;
// Required is metadata only.
type ParamFieldSpec struct {
	// Name is the wire name.
	Name string
	// GoName is the exported field identifier.
	GoName string
	// TypeExpr is the declared Go type expression inside param.Field, e.g.
	// "string", "[]int", "*Metadata".
	TypeExpr string
	// In is "query" or "body".
	In string

	Format      string
	Constraints Constraints
	Nullable    bool
	Required    bool
	HasDefault  bool
	// Enum holds the closed value set, in spec order, when the field is an
	// enumerated type.
	Enum []any
	Doc  string
}

// ModelDef is a named parameter-model declaration to emit.
type ModelDef struct {
	// Name is the Go type name.
	Name string
	// Origin identifies the schema this model came from: the component name
	// for $ref schemas, or "<Parent>.<property>" for inline objects. Origin
	// is the reconciliation identity for models.
	Origin string
	// Tag is the tag whose mapper registered the model first; it decides
	// which models file declares it.
	Tag    string
	Doc    string
	Fields []ParamFieldSpec
}
