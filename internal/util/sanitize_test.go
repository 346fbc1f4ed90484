package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  plain text  ", "plain text"},
		{`<script>alert("x")</script>`, "&lt;script&gt;alert(&#34;x&#34;)&lt;/script&gt;"},
		{"Tom & Jerry's", "Tom &amp; Jerry&#39;s"},
		{"   ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeInput(tt.in))
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "jane@example.com", NormalizeEmail("  Jane@Example.COM "))
}
