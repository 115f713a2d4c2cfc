package transcript

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsNoise(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"empty", "", true},
		{"whitespace only", "   ", true},
		{"short acronym", "OK", true},
		{"acronym groups", "AB CD", false}, // 5 chars, above the short cutoff
		{"four letter acronym", "HTTP", true},
		{"lowercase word", "ok", false},
		{"sentence", "I think we should use Go", false},
		{"short mixed", "Hi!", false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, IsNoise(tt.text))
		})
	}
}

func TestIsCodeLike(t *testing.T) {
	longSymbolSoup := strings.Repeat("call(a, b); map[x]=y; ", 8) // >120 chars, many symbols

	tests := []struct {
		name string
		text string
		want bool
	}{
		{"empty", "", false},
		{"plain speech", "I have five years of integration experience", false},
		{"code fence", "```python\nprint('x')\n```", true},
		{"trailing fence", "some code ```", true},
		{"shebang", "#!/bin/bash", true},
		{"chat template token", "<|begin_of_text|>whatever", true},
		{"import prefix", "import os", true},
		{"function prefix", "function handle(req) {", true},
		{"short with braces", "use {} here", false},
		{"long with code tokens", "this string mentions => arrows and == equality checks repeatedly enough", true},
		{"symbol density", longSymbolSoup, true},
		{"question exempt", "What is the difference between == and != in Java", false},
		{"question with fence", "What does this do? ```rm -rf /```", true},
		{"question with mule markup", "can you explain <mule:flow> configs", true},
		{"how question", "how would you design a retry policy", false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, IsCodeLike(tt.text))
		})
	}
}
