package sanitize_test

import (
	"testing"

	"github.com/dalemusser/volunteerhub/internal/app/system/sanitize"
)

func TestPlainText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain", "Hello, World!", "Hello, World!"},
		{"trims", "  hi  ", "hi"},
		{"removes script", "<p>Hello</p><script>alert('xss')</script>", "Hello"},
		{"removes tags keeps text", "<b>bold</b> and <i>italic</i>", "bold and italic"},
		{"keeps ampersand", "Tom & Jerry", "Tom & Jerry"},
		{"keeps apostrophe", "it's fine", "it's fine"},
		{"only markup", "<img src=x onerror=alert(1)>", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitize.PlainText(tt.input); got != tt.want {
				t.Errorf("PlainText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestLength_CountsRunes(t *testing.T) {
	if got := sanitize.Length("héllo"); got != 5 {
		t.Errorf("Length = %d, want 5", got)
	}
}
