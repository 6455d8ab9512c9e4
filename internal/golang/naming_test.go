package golang

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPascalCase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"user_id", "UserID"},
		{"user-profile", "UserProfile"},
		{"api key", "APIKey"},
		{"json.payload", "JSONPayload"},
		{"already Pascal", "AlreadyPascal"},
		{"camelCase", "CamelCase"},
		{"HTMLParser", "HTMLParser"},
		{"v2/things", "V2Things"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, PascalCase(tt.in))
		})
	}
}

func TestSnakeCase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"TestAPI", "test_api"},
		{"userProfile", "user_profile"},
		{"User Profile", "user_profile"},
		{"already_snake", "already_snake"},
		{"mixed-Separators.here", "mixed_separators_here"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SnakeCase(tt.in))
		})
	}
}

func TestFileStem(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Users", "users"},
		{"User Management", "user_management"},
		// Stems the toolchain would read as test files are escaped.
		{"Test", "testx"},
		{"UnitTest", "unit_testx"},
		{"Testing", "testing"},
		{"testx", "testx"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FileStem(tt.in))
		})
	}
}

func TestIdentifier(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"user_id", "UserID"},
		{"2fa", "X2fa"},
		{"", "X"},
		{"404 response", "X404Response"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Identifier(tt.in))
		})
	}
}

func TestLocalIdent(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"user_id", "userID"},
		{"api_key", "apiKey"},
		{"ID", "id"},
		{"type", "typeArg"},
		{"range", "rangeArg"},
		{"name", "name"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, LocalIdent(tt.in))
		})
	}
}

func TestPackageName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"My App", "myapp"},
		{"test-service.v2", "testservicev2"},
		{"2cool", "x2cool"},
		{"", "client"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, PackageName(tt.in))
		})
	}
}
