package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveHost(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		want   string
		wantOK bool
	}{
		{"https with path and query", "https://example.com/path?x=1", "example.com", true},
		{"subdomain", "https://sub.example.com", "sub.example.com", true},
		{"port dropped", "http://example.com:8080/a", "example.com", true},
		{"upper case", "https://Example.COM/", "example.com", true},
		{"userinfo ignored", "https://user:pw@example.com/", "example.com", true},
		{"ipv6", "http://[::1]:3000/", "::1", true},
		{"surrounding space", "  https://example.com  ", "example.com", true},

		{"empty", "", "", false},
		{"bare word", "example", "", false},
		{"no scheme", "example.com/path", "", false},
		{"file url", "file:///etc/hosts", "", false},
		{"about blank", "about:blank", "", false},
		{"bad escape", "https://exa mple.com/%zz", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, ok := DeriveHost(tt.url)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, host)
		})
	}
}

func TestResolveHost(t *testing.T) {
	tests := []struct {
		arg    string
		want   string
		wantOK bool
	}{
		{"example.com", "example.com", true},
		{"Example.com:443", "example.com", true},
		{"example.com/some/path", "example.com", true},
		{"https://sub.example.com/x", "sub.example.com", true},
		{"", "", false},
		{"   ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			host, ok := ResolveHost(tt.arg)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, host)
		})
	}
}
