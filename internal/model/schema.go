package model

import (
	"fmt"
	"sort"
	"strings"
)

// Kind classifies a resolved schema node.
type Kind string

const (
	KindString  Kind = "string"
	KindInteger Kind = "integer"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
	KindArray   Kind = "array"
	KindObject  Kind = "object"
	KindEnum    Kind = "enum"
	KindNull    Kind = "null"
	// KindAny is the untyped fallback for shapes with no defined mapping.
	KindAny Kind = "any"
	// KindRef is a named forward reference, substituted when resolution
	// encounters a pointer that is already on the resolution stack.
	KindRef Kind = "ref"
)

// SchemaNode is one fully resolved JSON-Schema fragment. A SchemaNode never
// carries an unresolved $ref; cycles are broken with KindRef placeholders
// naming the target component.
type SchemaNode struct {
	Kind        Kind
	Title       string
	Description string

	// Ref holds the originating component name for schemas resolved from
	// #/components/schemas, and the target name for KindRef placeholders.
	Ref string

	Format   string
	Nullable bool

	// Properties preserves declaration order for objects.
	Properties []Property

	// Items for arrays.
	Items *SchemaNode

	// Enum values in spec order. EnumBase is the declared scalar kind the
	// values belong to.
	Enum     []any
	EnumBase Kind

	Constraints Constraints

	// HasDefault records whether the spec documents a concrete default.
	// Generated declarations never materialize it.
	HasDefault bool

	// NameOverride is the x-probekit-name extension value, if present.
	NameOverride string
}

// Property is one named member of an object schema.
type Property struct {
	Name     string
	Schema   *SchemaNode
	Required bool
}

// Property returns the named property schema, or nil.
func (n *SchemaNode) Property(name string) *SchemaNode {
	for i := range n.Properties {
		if n.Properties[i].Name == name {
			return n.Properties[i].Schema
		}
	}
	return nil
}

// IsObject reports whether the node is an object with declared properties.
func (n *SchemaNode) IsObject() bool {
	return n != nil && n.Kind == KindObject && len(n.Properties) > 0
}

// Constraints carries every constraint keyword present on a schema node,
// verbatim. Nothing is inferred.
type Constraints struct {
	MinLength  *int64
	MaxLength  *int64
	Minimum    *float64
	Maximum    *float64
	MultipleOf *float64
	Pattern    string
	MinItems   *int64
	MaxItems   *int64
}

// IsZero reports whether no constraint keyword was present.
func (c Constraints) IsZero() bool {
	return c.MinLength == nil && c.MaxLength == nil &&
		c.Minimum == nil && c.Maximum == nil &&
		c.MultipleOf == nil && c.Pattern == "" &&
		c.MinItems == nil && c.MaxItems == nil
}

// Tag renders the constraints as a comma-joined annotation in sorted key
// order, e.g. "maxLength=255,minLength=1", so output is deterministic.
func (c Constraints) Tag() string {
	pairs := map[string]string{}
	if c.MinLength != nil {
		pairs["minLength"] = fmt.Sprintf("%d", *c.MinLength)
	}
	if c.MaxLength != nil {
		pairs["maxLength"] = fmt.Sprintf("%d", *c.MaxLength)
	}
	if c.Minimum != nil {
		pairs["minimum"] = formatNumber(*c.Minimum)
	}
	if c.Maximum != nil {
		pairs["maximum"] = formatNumber(*c.Maximum)
	}
	if c.MultipleOf != nil {
		pairs["multipleOf"] = formatNumber(*c.MultipleOf)
	}
	if c.Pattern != "" {
		pairs["pattern"] = c.Pattern
	}
	if c.MinItems != nil {
		pairs["minItems"] = fmt.Sprintf("%d", *c.MinItems)
	}
	if c.MaxItems != nil {
		pairs["maxItems"] = fmt.Sprintf("%d", *c.MaxItems)
	}
	if len(pairs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+pairs[k])
	}
	return strings.Join(parts, ",")
}

func formatNumber(f float64) string {
	return fmt.Sprintf("%g", f)
}
