// internal/scraper/validator_test.go
package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const testHost = "images.example.com"

func TestURLValidator(t *testing.T) {
	v := NewURLValidator(testHost)

	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{"thumbnail rewritten", "https://images.example.com/thumbs/abc123_375x500.jpg", "https://images.example.com/thumbs/abc123_pb_x960.jpg", true},
		{"logo rejected", "https://images.example.com/logo_small.png", "", false},
		{"protocol relative", "//images.example.com/labels/xyz.png", "https://images.example.com/labels/xyz.png", true},
		{"root relative", "/labels/xyz_150x200.png", "https://images.example.com/labels/xyz_pb_x960.png", true},
		{"foreign host", "https://cdn.other.com/thumbs/abc.jpg", "", false},
		{"subdomain is not the host", "https://evil.images.example.com/thumbs/abc.jpg", "", false},
		{"host case ignored", "https://IMAGES.example.com/thumbs/abc.jpg", "https://IMAGES.example.com/thumbs/abc.jpg", true},
		{"user content", "https://images.example.com/users/42/avatar.jpg", "", false},
		{"flag", "https://images.example.com/flags/ar.png", "", false},
		{"keyword in query", "https://images.example.com/thumbs/a.jpg?kind=banner", "", false},
		{"empty", "   ", "", false},
		{"not http", "ftp://images.example.com/thumbs/a.jpg", "", false},
		{"large rendition kept", "https://images.example.com/labels/abc_1200x1600.jpg", "https://images.example.com/labels/abc_1200x1600.jpg", true},
		{"edge at thumbnail limit", "https://images.example.com/labels/abc_500x900.jpg", "https://images.example.com/labels/abc_pb_x960.jpg", true},
		{"fragment dropped", "https://images.example.com/thumbs/a.jpg#top", "https://images.example.com/thumbs/a.jpg", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := v.Validate(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestURLValidatorWithoutHost(t *testing.T) {
	_, ok := NewURLValidator("").Validate("https://images.example.com/thumbs/a.jpg")
	assert.False(t, ok)
}

func TestHasExclusionKeyword(t *testing.T) {
	assert.True(t, HasExclusionKeyword("https://photos.example.com/brand-logo.jpg"))
	assert.True(t, HasExclusionKeyword("https://photos.example.com/p1.jpg?type=placeholder"))
	assert.False(t, HasExclusionKeyword("https://photos.example.com/p1.jpg"))
	assert.False(t, HasExclusionKeyword("https://logo.example.com/p1.jpg"), "host is not inspected")
}
