package util

import (
	"strings"
	"testing"
)

func TestWrapString(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"Empty", "", ""},
		{"Short", "a short line", "a short line"},
		{"CollapsesSpaces", "a   b \n c", "a b c"},
		{
			"Wraps",
			strings.Repeat("word ", 12),
			"word word word word word word word word word word\nword word",
		},
		{"LongWord", strings.Repeat("x", 60), strings.Repeat("x", 60)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WrapString(tt.in); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
