package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPathPlaceholders(t *testing.T) {
	tests := []struct {
		path string
		want []string
	}{
		{"/v1/things", nil},
		{"/v1/things/{id}", []string{"id"}},
		{"/v1/{org}/things/{thing_id}/tags/{tag}", []string{"org", "thing_id", "tag"}},
		{"/v1/broken/{open", nil},
		{"/{a}{b}", []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, PathPlaceholders(tt.path))
		})
	}
}

func TestEndpointKeyString(t *testing.T) {
	k := EndpointKey{Tag: "Users", Method: MethodGet, Path: "/v1/users"}
	assert.Equal(t, "GET /v1/users", k.String())
}

func TestEndpointDoc(t *testing.T) {
	tests := []struct {
		name string
		ep   EndpointDescriptor
		want string
	}{
		{"summary wins", EndpointDescriptor{Summary: "List users", Description: "Long text"}, "List users"},
		{"description fallback", EndpointDescriptor{Description: "Long text"}, "Long text"},
		{"neither", EndpointDescriptor{}, "No summary or description is available for this API"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ep.Doc())
		})
	}
}

func TestSpecByTagAndMemberOf(t *testing.T) {
	spec := &Spec{
		Endpoints: []EndpointDescriptor{
			{Key: EndpointKey{Tag: "Users", Method: MethodGet, Path: "/u"}, Tags: []string{"Users"}},
			{Key: EndpointKey{Tag: "Users", Method: MethodPost, Path: "/u"}, Tags: []string{"Users", "Admin"}},
			{Key: EndpointKey{Tag: "Admin", Method: MethodDelete, Path: "/a"}, Tags: []string{"Admin"}},
		},
	}

	users := spec.ByTag("Users")
	assert.Len(t, users, 2)

	admin := spec.ByTag("Admin")
	assert.Len(t, admin, 1)
	assert.Equal(t, MethodDelete, admin[0].Key.Method)

	// MemberOf also picks up the cross-listed POST /u.
	adminMembers := spec.MemberOf("Admin")
	assert.Len(t, adminMembers, 2)
	assert.Equal(t, "Users", adminMembers[0].Key.Tag)
}

func TestConstraintsTag(t *testing.T) {
	i := func(v int64) *int64 { return &v }
	f := func(v float64) *float64 { return &v }

	tests := []struct {
		name string
		c    Constraints
		want string
	}{
		{"empty", Constraints{}, ""},
		{"length pair sorted", Constraints{MinLength: i(1), MaxLength: i(255)}, "maxLength=255,minLength=1"},
		{"numeric range", Constraints{Minimum: f(0), Maximum: f(99.5)}, "maximum=99.5,minimum=0"},
		{"pattern and items", Constraints{Pattern: "^[a-z]+$", MinItems: i(1)}, "minItems=1,pattern=^[a-z]+$"},
		{"multipleOf", Constraints{MultipleOf: f(0.25)}, "multipleOf=0.25"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.c.Tag())
			assert.Equal(t, tt.want == "", tt.c.IsZero())
		})
	}
}

func TestSchemaNodeProperty(t *testing.T) {
	n := &SchemaNode{
		Kind: KindObject,
		Properties: []Property{
			{Name: "name", Schema: &SchemaNode{Kind: KindString}},
			{Name: "age", Schema: &SchemaNode{Kind: KindInteger}},
		},
	}
	assert.True(t, n.IsObject())
	assert.Equal(t, KindInteger, n.Property("age").Kind)
	assert.Nil(t, n.Property("missing"))

	empty := &SchemaNode{Kind: KindObject}
	assert.False(t, empty.IsObject())
}
