package util_test

import (
	"regexp"
	"testing"

	"github.com/Totarae/shortlinks/internal/util"
	"github.com/stretchr/testify/assert"
)

var codeAlphabet = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func TestGenerateCode(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for range 1000 {
		code := util.GenerateCode()
		assert.Len(t, code, 12)
		assert.Regexp(t, codeAlphabet, code)
		seen[code] = struct{}{}
	}
	assert.Len(t, seen, 1000)
}

func TestGenerateCodeN_Clamped(t *testing.T) {
	assert.Len(t, util.GenerateCodeN(1), 7)
	assert.Len(t, util.GenerateCodeN(5), 7)
	assert.Len(t, util.GenerateCodeN(10), 14)
	assert.Len(t, util.GenerateCodeN(64), 14)
}

func TestNormalizeTarget(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"example.com", "https://example.com"},
		{"http://example.com", "http://example.com"},
		{"https://example.com/a?b=c", "https://example.com/a?b=c"},
		{"HTTPS://Example.com", "HTTPS://Example.com"},
		{"HTTP://FOO.COM", "HTTP://FOO.COM"},
		{"ftp://example.com", "https://ftp://example.com"},
		{"www.foo.com/path", "https://www.foo.com/path"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, util.NormalizeTarget(tt.in), tt.in)
	}
}

func TestShortURL(t *testing.T) {
	assert.Equal(t, "http://localhost:8080/abc", util.ShortURL("http://localhost:8080/", "abc"))
	assert.Equal(t, "http://localhost:8080/abc", util.ShortURL("http://localhost:8080", "abc"))
}
