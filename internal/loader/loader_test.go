package loader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolah/probekit/internal/generr"
)

const minimalSpec = `openapi: 3.1.0
info:
  title: Minimal
  version: 0.1.0
paths:
  /ping:
    get:
      operationId: ping
      responses:
        "200":
          description: ok
`

const swaggerSpec = `swagger: "2.0"
info:
  title: Legacy
  version: 0.1.0
paths:
  /ping:
    get:
      responses:
        "200":
          description: ok
`

const pathlessSpec = `openapi: 3.1.0
info:
  title: Empty
  version: 0.1.0
paths: {}
`

func writeSpec(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "openapi.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeSpec(t, minimalSpec)

	res, err := Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "3.1.0", res.Version)
	assert.Equal(t, path, res.Source)
	assert.Equal(t, []byte(minimalSpec), res.RawData)
	assert.Equal(t, "Minimal", res.Document.Model.Info.Title)
	assert.Empty(t, res.Warnings)
}

func TestLoadRejectsSwagger2(t *testing.T) {
	path := writeSpec(t, swaggerSpec)

	_, err := Load(context.Background(), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, generr.ErrSpecParse)
	assert.Contains(t, err.Error(), "only 3.x supported")
}

func TestLoadRejectsPathless(t *testing.T) {
	path := writeSpec(t, pathlessSpec)

	_, err := Load(context.Background(), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, generr.ErrSpecParse)
	assert.Contains(t, err.Error(), "no paths")
}

func TestLoadWarnsOn30(t *testing.T) {
	spec := `openapi: 3.0.3
info:
  title: Older
  version: 0.1.0
paths:
  /ping:
    get:
      responses:
        "200":
          description: ok
`
	res, err := Load(context.Background(), writeSpec(t, spec))
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "3.0.x")
}

func TestLoadURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(minimalSpec))
	}))
	defer srv.Close()

	res, err := Load(context.Background(), srv.URL+"/openapi.yaml")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/openapi.yaml", res.Source)
	assert.Equal(t, "Minimal", res.Document.Model.Info.Title)
}

func TestLoadURLFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := Load(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, generr.ErrSpecParse)
}

func TestLoadEmptySource(t *testing.T) {
	_, err := Load(context.Background(), "  ")
	require.Error(t, err)
	assert.ErrorIs(t, err, generr.ErrSpecParse)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, generr.ErrSpecParse)
}
