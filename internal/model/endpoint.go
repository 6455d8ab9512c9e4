package model

import "strings"

// Method is an HTTP method documented by an operation.
type Method string

const (
	MethodGet     Method = "GET"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodDelete  Method = "DELETE"
	MethodPatch   Method = "PATCH"
	MethodHead    Method = "HEAD"
	MethodOptions Method = "OPTIONS"
	MethodTrace   Method = "TRACE"
)

// EndpointKey identifies one documented operation independently of any name a
// user may have given its generated function. It is the join point between
// the spec and previously generated code.
type EndpointKey struct {
	Tag    string
	Method Method
	Path   string
}

func (k EndpointKey) String() string {
	return string(k.Method) + " " + k.Path
}

// EndpointDescriptor is one documented (path, method) operation.
type EndpointDescriptor struct {
	// Key carries the primary tag: the first tag the operation lists.
	Key EndpointKey

	// Tags is the full ordered tag list. The endpoint belongs to every tag
	// for class-membership purposes but generates exactly one function.
	Tags []string

	OperationID string
	Summary     string
	Description string

	// NameOverride is the x-probekit-name extension on the operation.
	NameOverride string

	// PathParams are ordered by appearance in the path template. Generated
	// functions expose them as positional parameters in this exact order.
	PathParams []Param

	// QueryParams preserve declaration order.
	QueryParams []Param

	// Body is the request-body schema, if any.
	Body        *SchemaNode
	ContentType string

	Deprecated bool
	// Public marks operations documented with an empty security list.
	// Informational only, never enforced.
	Public bool
}

// Param is one documented path or query parameter.
type Param struct {
	Name     string
	Required bool
	Schema   *SchemaNode
}

// PrimaryTag returns the grouping tag for the endpoint.
func (e *EndpointDescriptor) PrimaryTag() string { return e.Key.Tag }

// PathPlaceholders returns the {name} placeholders of a path template in
// order of appearance.
func PathPlaceholders(path string) []string {
	var names []string
	for {
		open := strings.IndexByte(path, '{')
		if open < 0 {
			return names
		}
		close := strings.IndexByte(path[open:], '}')
		if close < 0 {
			return names
		}
		names = append(names, path[open+1:open+close])
		path = path[open+close+1:]
	}
}

// Doc returns the text used for the generated function's doc comment.
func (e *EndpointDescriptor) Doc() string {
	if e.Summary != "" {
		return e.Summary
	}
	if e.Description != "" {
		return e.Description
	}
	return "No summary or description is available for this API"
}
