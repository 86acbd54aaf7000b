package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsHTTPURL(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"http://intranet.cresol.test", true},
		{"https://crm.cresol.test/login?next=/", true},
		{"httpx://crm.cresol.test", false},
		{"ftp://files.cresol.test", false},
		{"https://", false},
		{"/media/banners/a.jpg", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, IsHTTPURL(tt.in))
		})
	}
}

func TestIsLink(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"https://crm.cresol.test", true},
		{"/media/banners/a.jpg", true},
		{"//evil.test/a.jpg", false},
		{"httpx://crm.cresol.test", false},
		{"banners/a.jpg", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, IsLink(tt.in))
		})
	}
}
