package resolver

import (
	"testing"

	"github.com/pb33f/libopenapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolah/probekit/internal/generr"
	"github.com/kolah/probekit/internal/model"
)

func buildResolver(t *testing.T, schemas string) (*Resolver, *generr.Report) {
	t.Helper()
	spec := `openapi: 3.1.0
info:
  title: Fixture
  version: 0.1.0
paths:
  /ping:
    get:
      responses:
        "200":
          description: ok
components:
  schemas:
` + schemas
	doc, err := libopenapi.NewDocument([]byte(spec))
	require.NoError(t, err)
	docModel, err := doc.BuildV3Model()
	require.NoError(t, err)

	report := &generr.Report{}
	return New(docModel, report), report
}

func TestComponentObject(t *testing.T) {
	r, report := buildResolver(t, `
    User:
      type: object
      required: [name]
      properties:
        name:
          type: string
          minLength: 1
          maxLength: 64
        age:
          type: integer
          format: int32
`)
	node, err := r.Component("User")
	require.NoError(t, err)
	assert.Equal(t, model.KindObject, node.Kind)
	assert.Equal(t, "User", node.Ref)
	require.Len(t, node.Properties, 2)

	name := node.Properties[0]
	assert.Equal(t, "name", name.Name)
	assert.True(t, name.Required)
	assert.Equal(t, model.KindString, name.Schema.Kind)
	assert.Equal(t, "maxLength=64,minLength=1", name.Schema.Constraints.Tag())

	age := node.Properties[1]
	assert.False(t, age.Required)
	assert.Equal(t, "int32", age.Schema.Format)
	assert.True(t, report.Empty())
}

func TestAnyOfNullCollapses(t *testing.T) {
	r, report := buildResolver(t, `
    Inner:
      type: object
      properties:
        id:
          type: string
    Wrapper:
      anyOf:
        - $ref: "#/components/schemas/Inner"
        - type: "null"
`)
	node, err := r.Component("Wrapper")
	require.NoError(t, err)
	assert.Equal(t, model.KindObject, node.Kind)
	assert.True(t, node.Nullable)
	require.Len(t, node.Properties, 1)
	assert.True(t, report.Empty())
}

func TestAnyOfUnsupportedFallsBack(t *testing.T) {
	r, report := buildResolver(t, `
    Either:
      anyOf:
        - type: string
        - type: integer
`)
	node, err := r.Component("Either")
	require.NoError(t, err)
	assert.Equal(t, model.KindAny, node.Kind)
	require.Len(t, report.Warnings(), 1)
	assert.Contains(t, report.Warnings()[0], "anyOf")
}

func TestTypeArrayNull(t *testing.T) {
	r, _ := buildResolver(t, `
    MaybeName:
      type: [string, "null"]
`)
	node, err := r.Component("MaybeName")
	require.NoError(t, err)
	assert.Equal(t, model.KindString, node.Kind)
	assert.True(t, node.Nullable)
}

func TestAllOfMergesProperties(t *testing.T) {
	r, report := buildResolver(t, `
    Base:
      type: object
      properties:
        id:
          type: string
        kind:
          type: string
    Extended:
      allOf:
        - $ref: "#/components/schemas/Base"
        - type: object
          properties:
            kind:
              type: integer
            extra:
              type: boolean
`)
	node, err := r.Component("Extended")
	require.NoError(t, err)
	assert.Equal(t, model.KindObject, node.Kind)

	names := make([]string, 0, len(node.Properties))
	for _, p := range node.Properties {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"id", "kind", "extra"}, names)
	// First declaration of a duplicate name wins.
	assert.Equal(t, model.KindString, node.Property("kind").Kind)
	assert.True(t, report.Empty())
}

func TestSelfReferenceBreaksWithPlaceholder(t *testing.T) {
	r, _ := buildResolver(t, `
    TreeNode:
      type: object
      properties:
        value:
          type: string
        children:
          type: array
          items:
            $ref: "#/components/schemas/TreeNode"
`)
	node, err := r.Component("TreeNode")
	require.NoError(t, err)

	children := node.Property("children")
	require.NotNil(t, children)
	assert.Equal(t, model.KindArray, children.Kind)
	assert.Equal(t, model.KindRef, children.Items.Kind)
	assert.Equal(t, "TreeNode", children.Items.Ref)
}

func TestEnumKeepsBaseKind(t *testing.T) {
	r, _ := buildResolver(t, `
    Version:
      type: integer
      enum: [1, 2]
`)
	node, err := r.Component("Version")
	require.NoError(t, err)
	assert.Equal(t, model.KindEnum, node.Kind)
	assert.Equal(t, model.KindInteger, node.EnumBase)
	assert.Equal(t, []any{1, 2}, node.Enum)
}

func TestNameOverrideExtension(t *testing.T) {
	r, _ := buildResolver(t, `
    internal_user_record:
      type: object
      x-probekit-name: Account
      properties:
        id:
          type: string
`)
	node, err := r.Component("internal_user_record")
	require.NoError(t, err)
	assert.Equal(t, "Account", node.NameOverride)
}

func TestUnknownComponent(t *testing.T) {
	r, _ := buildResolver(t, `
    User:
      type: object
      properties:
        id:
          type: string
`)
	_, err := r.Component("Missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, generr.ErrResolution)
}

func TestResolveCachesByPointer(t *testing.T) {
	r, _ := buildResolver(t, `
    User:
      type: object
      properties:
        id:
          type: string
`)
	first, err := r.Component("User")
	require.NoError(t, err)
	second, err := r.Component("User")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestNilProxy(t *testing.T) {
	r, _ := buildResolver(t, `
    User:
      type: object
`)
	node, err := r.ResolveProxy(nil, "ctx")
	require.NoError(t, err)
	assert.Nil(t, node)
}
