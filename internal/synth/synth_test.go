package synth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolah/probekit/internal/generr"
	"github.com/kolah/probekit/internal/model"
	"github.com/kolah/probekit/internal/templates"
	embeddedtmpl "github.com/kolah/probekit/templates"
)

func newBuilder(t *testing.T) (*Builder, *generr.Report) {
	t.Helper()
	engine, err := templates.NewEngine(embeddedtmpl.FS, "", nil)
	require.NoError(t, err)
	report := &generr.Report{}
	return NewBuilder(engine, report), report
}

func fixtureSpec() *model.Spec {
	return &model.Spec{
		Title:   "Test Service",
		Version: "1.2.0",
		Servers: []model.Server{
			{URL: "https://api.example.com", Description: "Production"},
			{URL: "https://staging.example.com", Description: "Staging"},
		},
		Tags: []string{"Users"},
		Endpoints: []model.EndpointDescriptor{
			{
				Key:         model.EndpointKey{Tag: "Users", Method: model.MethodGet, Path: "/v1/users"},
				Tags:        []string{"Users"},
				OperationID: "listUsers",
				Summary:     "List users",
				QueryParams: []model.Param{
					{Name: "limit", Required: true, Schema: &model.SchemaNode{Kind: model.KindInteger}},
				},
			},
			{
				Key:         model.EndpointKey{Tag: "Users", Method: model.MethodPost, Path: "/v1/users"},
				Tags:        []string{"Users"},
				OperationID: "createUser",
				Summary:     "Create a user",
				ContentType: "application/json",
				Body: &model.SchemaNode{
					Kind: model.KindObject,
					Properties: []model.Property{
						{Name: "name", Schema: &model.SchemaNode{Kind: model.KindString}, Required: true},
						{Name: "metadata", Schema: &model.SchemaNode{
							Kind: model.KindObject,
							Ref:  "Metadata",
							Properties: []model.Property{
								{Name: "version", Schema: &model.SchemaNode{Kind: model.KindInteger, Enum: nil}},
							},
						}},
					},
				},
			},
			{
				Key:  model.EndpointKey{Tag: "Users", Method: model.MethodGet, Path: "/v1/users/{user_id}"},
				Tags: []string{"Users"},
				PathParams: []model.Param{
					{Name: "user_id", Required: true, Schema: &model.SchemaNode{Kind: model.KindString}},
				},
			},
		},
	}
}

const rawDoc = "openapi: 3.1.0\n"

func TestBuildFileSet(t *testing.T) {
	b, report := newBuilder(t)
	res, err := b.Build(fixtureSpec(), []byte(rawDoc), Options{App: "testsvc", Source: "openapi.yaml"})
	require.NoError(t, err)
	assert.True(t, report.Empty(), report.String())

	names := make([]string, 0, len(res.Files))
	for _, f := range res.Files {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"config.go", "client.go", "spec.go", "api_users.go", "models_users.go"}, names)
}

// A tag whose snake_case form the toolchain would treat as a test file gets
// an escaped stem, so the generated client never gains a _test.go.
func TestBuildEscapesTestStems(t *testing.T) {
	b, _ := newBuilder(t)
	spec := &model.Spec{
		Title:   "Test Service",
		Version: "1.0.0",
		Tags:    []string{"Test", "SmokeTest"},
		Endpoints: []model.EndpointDescriptor{
			{
				Key:         model.EndpointKey{Tag: "Test", Method: model.MethodGet, Path: "/v1/checks"},
				Tags:        []string{"Test"},
				OperationID: "listChecks",
				Body: &model.SchemaNode{
					Kind: model.KindObject,
					Ref:  "Check",
					Properties: []model.Property{
						{Name: "name", Schema: &model.SchemaNode{Kind: model.KindString}},
					},
				},
			},
			{
				Key:         model.EndpointKey{Tag: "SmokeTest", Method: model.MethodGet, Path: "/v1/smoke"},
				Tags:        []string{"SmokeTest"},
				OperationID: "runSmoke",
			},
		},
	}
	res, err := b.Build(spec, []byte(rawDoc), Options{App: "testsvc", Source: "openapi.yaml"})
	require.NoError(t, err)

	names := make([]string, 0, len(res.Files))
	for _, f := range res.Files {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, "api_testx.go")
	assert.Contains(t, names, "api_smoke_testx.go")
	assert.NotContains(t, names, "api_test.go")
	assert.NotContains(t, names, "api_smoke_test.go")
}

// An endpoint's secondary tags still get a class, holding the client field
// and a cross-reference to the owning function.
func TestBuildSecondaryTagClass(t *testing.T) {
	b, _ := newBuilder(t)
	spec := &model.Spec{
		Title:   "Test Service",
		Version: "1.0.0",
		Tags:    []string{"Users", "Admin"},
		Endpoints: []model.EndpointDescriptor{
			{
				Key:         model.EndpointKey{Tag: "Users", Method: model.MethodDelete, Path: "/v1/users/{id}"},
				Tags:        []string{"Users", "Admin"},
				OperationID: "deleteUser",
				PathParams: []model.Param{
					{Name: "id", Required: true, Schema: &model.SchemaNode{Kind: model.KindString}},
				},
			},
		},
	}
	res, err := b.Build(spec, []byte(rawDoc), Options{App: "testsvc", Source: "openapi.yaml"})
	require.NoError(t, err)

	var admin string
	for _, f := range res.Files {
		if f.Name == "api_admin.go" {
			admin = string(f.Content)
		}
	}
	require.NotEmpty(t, admin)
	assert.Contains(t, admin, "type AdminAPI struct")
	assert.Contains(t, admin, "DELETE /v1/users/{id} is also tagged Admin")
	assert.Contains(t, admin, "UsersAPI.DeleteUser")
}

func TestBuildIsDeterministic(t *testing.T) {
	b, _ := newBuilder(t)
	first, err := b.Build(fixtureSpec(), []byte(rawDoc), Options{App: "testsvc", Source: "openapi.yaml"})
	require.NoError(t, err)
	second, err := b.Build(fixtureSpec(), []byte(rawDoc), Options{App: "testsvc", Source: "openapi.yaml"})
	require.NoError(t, err)

	require.Equal(t, len(first.Files), len(second.Files))
	for i := range first.Files {
		assert.Equal(t, string(first.Files[i].Content), string(second.Files[i].Content), first.Files[i].Name)
	}
}

func TestBuildRenderedContent(t *testing.T) {
	b, _ := newBuilder(t)
	res, err := b.Build(fixtureSpec(), []byte(rawDoc), Options{App: "testsvc", Source: "openapi.yaml"})
	require.NoError(t, err)

	byName := map[string]string{}
	for _, f := range res.Files {
		byName[f.Name] = string(f.Content)
	}

	api := byName["api_users.go"]
	assert.Contains(t, api, "package testsvc")
	assert.Contains(t, api, "//probekit:endpoint Users GET /v1/users\n")
	assert.Contains(t, api, "func (a *UsersAPI) ListUsers(ctx context.Context, p *ListUsersParams, opts ...rest.CallOption)")
	assert.Contains(t, api, "func (a *UsersAPI) UnnamedEndpoint1(ctx context.Context, userID string, opts ...rest.CallOption)")
	assert.Contains(t, api, "//probekit:content-type application/json")
	assert.Contains(t, api, "Limit param.Field[int]")

	models := byName["models_users.go"]
	assert.Contains(t, models, "//probekit:model Metadata")
	assert.Contains(t, models, "type Metadata struct")

	config := byName["config.go"]
	assert.Contains(t, config, `"dev":     "https://api.example.com"`)
	assert.Contains(t, config, `"staging": "https://staging.example.com"`)

	spec := byName["spec.go"]
	assert.Contains(t, spec, `const SpecSource = "openapi.yaml"`)
	assert.Contains(t, spec, "const SpecDocument = `openapi: 3.1.0")

	client := byName["client.go"]
	assert.Contains(t, client, "type TestsvcClient struct")
	assert.Contains(t, client, "Users *UsersAPI")
}

func TestAssignNamesPlaceholders(t *testing.T) {
	b, _ := newBuilder(t)
	spec := &model.Spec{
		Tags: []string{"Misc"},
		Endpoints: []model.EndpointDescriptor{
			{Key: model.EndpointKey{Tag: "Misc", Method: model.MethodGet, Path: "/a"}, Tags: []string{"Misc"}},
			{Key: model.EndpointKey{Tag: "Misc", Method: model.MethodGet, Path: "/b"}, Tags: []string{"Misc"}},
		},
	}
	funcs, params := b.assignNames(spec, nil)
	assert.Equal(t, "UnnamedEndpoint1", funcs[spec.Endpoints[0].Key])
	assert.Equal(t, "UnnamedEndpoint2", funcs[spec.Endpoints[1].Key])
	assert.Equal(t, "UnnamedEndpoint1Params", params[spec.Endpoints[0].Key])
}

func TestAssignNamesNeverReusesPlaceholderIndex(t *testing.T) {
	b, _ := newBuilder(t)
	spec := &model.Spec{
		Tags: []string{"Misc"},
		Endpoints: []model.EndpointDescriptor{
			{Key: model.EndpointKey{Tag: "Misc", Method: model.MethodGet, Path: "/a"}, Tags: []string{"Misc"}},
			{Key: model.EndpointKey{Tag: "Misc", Method: model.MethodGet, Path: "/new"}, Tags: []string{"Misc"}},
		},
	}
	prior := &Names{
		Func: map[model.EndpointKey]string{
			{Tag: "Misc", Method: model.MethodGet, Path: "/a"}: "UnnamedEndpoint5",
		},
	}
	funcs, _ := b.assignNames(spec, prior)
	assert.Equal(t, "UnnamedEndpoint5", funcs[spec.Endpoints[0].Key])
	assert.Equal(t, "UnnamedEndpoint6", funcs[spec.Endpoints[1].Key])
}

func TestAssignNamesKeepsPriorAndSuffixesDuplicates(t *testing.T) {
	b, _ := newBuilder(t)
	spec := &model.Spec{
		Tags: []string{"Users"},
		Endpoints: []model.EndpointDescriptor{
			{Key: model.EndpointKey{Tag: "Users", Method: model.MethodGet, Path: "/a"}, Tags: []string{"Users"}, OperationID: "fetch"},
			{Key: model.EndpointKey{Tag: "Users", Method: model.MethodGet, Path: "/b"}, Tags: []string{"Users"}, OperationID: "fetch"},
			{Key: model.EndpointKey{Tag: "Users", Method: model.MethodGet, Path: "/c"}, Tags: []string{"Users"}, OperationID: "other"},
		},
	}
	prior := &Names{
		Func: map[model.EndpointKey]string{
			{Tag: "Users", Method: model.MethodGet, Path: "/c"}: "FetchLegacy",
		},
		Params: map[model.EndpointKey]string{
			{Tag: "Users", Method: model.MethodGet, Path: "/c"}: "LegacyParams",
		},
	}
	funcs, params := b.assignNames(spec, prior)
	assert.Equal(t, "Fetch", funcs[spec.Endpoints[0].Key])
	assert.Equal(t, "Fetch2", funcs[spec.Endpoints[1].Key])
	assert.Equal(t, "FetchLegacy", funcs[spec.Endpoints[2].Key])
	assert.Equal(t, "LegacyParams", params[spec.Endpoints[2].Key])
}

func TestEnvEntries(t *testing.T) {
	b, _ := newBuilder(t)
	envs := b.envEntries([]model.Server{
		{URL: "https://a", Description: "Production"},
		{URL: "https://b", Description: "Staging Env"},
		{URL: "https://c"},
	}, "dev")
	require.Len(t, envs, 3)
	assert.Equal(t, envEntry{Name: "dev", URL: "https://a"}, envs[0])
	assert.Equal(t, envEntry{Name: "staging_env", URL: "https://b"}, envs[1])
	assert.Equal(t, envEntry{Name: "env3", URL: "https://c"}, envs[2])
}

func TestEnvEntriesNoServers(t *testing.T) {
	b, report := newBuilder(t)
	envs := b.envEntries(nil, "dev")
	require.Len(t, envs, 1)
	assert.Equal(t, "http://localhost", envs[0].URL)
	assert.NotEmpty(t, report.Warnings())
}

func TestGoStringLiteral(t *testing.T) {
	assert.Equal(t, "`plain`", goStringLiteral([]byte("plain")))
	quoted := goStringLiteral([]byte("has ` tick"))
	assert.True(t, strings.HasPrefix(quoted, `"`))
	assert.Contains(t, quoted, "has ` tick")
}

func TestStructFieldTags(t *testing.T) {
	min := int64(1)
	f := model.ParamFieldSpec{
		Name:        "status",
		GoName:      "Status",
		TypeExpr:    "string",
		In:          "body",
		Format:      "enumish",
		Enum:        []any{"on", "off"},
		Constraints: model.Constraints{MinLength: &min},
		Required:    true,
		Nullable:    true,
	}
	got := StructField(f)
	assert.Equal(t, "Status param.Field[string] `json:\"status,omitzero\" in:\"body\" format:\"enumish\" enum:\"on,off\" constraint:\"minLength=1\" required:\"true\" nullable:\"true\"`", got)
}

func TestFuncBodyShapes(t *testing.T) {
	ep := &model.EndpointDescriptor{
		Key: model.EndpointKey{Tag: "Users", Method: model.MethodDelete, Path: "/v1/users/{id}"},
	}
	body := FuncBody(ep, []PathParam{{ArgName: "id", TypeExpr: "string"}}, "")
	assert.Contains(t, body, "[]any{id}, nil, opts...)")

	withParams := FuncBody(ep, nil, "DeleteParams")
	assert.Contains(t, withParams, "nil, param.Collect(p), opts...)")
}
