package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolah/probekit/rest"
)

const petSpec = `openapi: 3.1.0
info:
  title: Pets
  version: 1.0.0
paths:
  /pets:
    get:
      operationId: listPets
      parameters:
        - name: limit
          in: query
          required: true
          schema:
            type: integer
      responses:
        "200":
          description: ok
`

func TestNew(t *testing.T) {
	v, err := New([]byte(petSpec))
	require.NoError(t, err)
	require.NotNil(t, v)
}

func TestNewRejectsGarbage(t *testing.T) {
	_, err := New([]byte("not: [a spec"))
	assert.Error(t, err)
}

func TestAttachRegistersPreHook(t *testing.T) {
	v, err := New([]byte(petSpec))
	require.NoError(t, err)

	c := rest.NewClient("http://localhost")
	require.Empty(t, c.PreHooks)
	v.Attach(c)
	assert.Len(t, c.PreHooks, 1)
}

func TestErrorMessage(t *testing.T) {
	e := &Error{Request: "GET /pets"}
	assert.Equal(t, "request validation failed for GET /pets", e.Error())
}
