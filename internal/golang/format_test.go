package golang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatStripsUnusedImports(t *testing.T) {
	src := []byte("package p\n\nimport (\n\"fmt\"\n\"os\"\n)\n\nfunc f(){fmt.Println(1)}\n")
	out, err := Format(src)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"fmt"`)
	assert.NotContains(t, string(out), `"os"`)
}

func TestFormatIsIdempotent(t *testing.T) {
	src := []byte("package p\n\nfunc   f( ) {\n\treturn\n}\n")
	once, err := Format(src)
	require.NoError(t, err)
	twice, err := Format(once)
	require.NoError(t, err)
	assert.Equal(t, string(once), string(twice))
}

func TestGofmtLeavesImportsAlone(t *testing.T) {
	src := []byte("package p\n\nfunc f() { fmt.Println(1) }\n")
	out, err := Gofmt(src)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "import")
}

func TestGofmtRejectsInvalidSource(t *testing.T) {
	_, err := Gofmt([]byte("func broken"))
	assert.Error(t, err)
}
