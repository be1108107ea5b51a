package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeArg(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"unreserved only", "abcXYZ019-._~", "abcXYZ019-._~"},
		{"space", "Example Name", "Example%20Name"},
		{"percent sign", "100% sure", "100%25%20sure"},
		{"non-ascii", "café", "caf%C3%A9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := escapeArg(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, unescapeArg(got))
		})
	}
}

func TestUnescapeArgMalformed(t *testing.T) {
	assert.Equal(t, "abc%", unescapeArg("abc%"))
	assert.Equal(t, "abc%2", unescapeArg("abc%2"))
	assert.Equal(t, "abc%zz", unescapeArg("abc%zz"))
}
